package bulk

import (
	"bytes"

	"github.com/bimmerbailey/sentinel/internal/kernel"
)

// SplitPoint returns the length of the longest prefix of buf that can be
// redacted on its own without changing the result: the prefix ends at a
// newline and leaves no private key block open. It returns 0 when there is no
// such prefix.
func SplitPoint(buf []byte) int {
	end := len(buf)
	for end > 0 {
		nl := bytes.LastIndexByte(buf[:end], '\n')
		if nl < 0 {
			return 0
		}
		cut := nl + 1
		open := kernel.UnterminatedBlock(buf[:cut])
		if open < 0 {
			return cut
		}
		end = open
	}
	return 0
}
