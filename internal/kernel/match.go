package kernel

import "bytes"

// MaxPrivateKeyBlock bounds how far past a "-----BEGIN ... PRIVATE KEY-----"
// header the scanner looks for the matching END marker. When no END marker
// is found inside the window only the header itself is masked.
const MaxPrivateKeyBlock = 64 << 10

// Each matcher inspects buf at position i and reports the span [start, end)
// that must be masked. Scanning resumes at end. Matchers never read outside
// buf and never allocate.

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return c|0x20 >= 'a' && c|0x20 <= 'z' }

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

func isWord(c byte) bool { return isAlnum(c) || c == '_' }

func isHex(c byte) bool { return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f') }

func isUpperAlnum(c byte) bool { return isDigit(c) || (c >= 'A' && c <= 'Z') }

func isBase64URL(c byte) bool { return isAlnum(c) || c == '_' || c == '-' }

func isEmailLocal(c byte) bool {
	return isAlnum(c) || c == '.' || c == '_' || c == '%' || c == '+' || c == '-'
}

func isEmailDomain(c byte) bool { return isAlnum(c) || c == '.' || c == '-' }

// wordStart reports whether a \b boundary precedes position i.
func wordStart(buf []byte, i int) bool { return i == 0 || !isWord(buf[i-1]) }

// wordEnd reports whether a \b boundary follows a word ending before i.
func wordEnd(buf []byte, i int) bool { return i >= len(buf) || !isWord(buf[i]) }

func hasPrefixAt(buf []byte, i int, prefix []byte) bool {
	return i >= 0 && len(buf)-i >= len(prefix) && bytes.Equal(buf[i:i+len(prefix)], prefix)
}

// hasFoldPrefixAt is an ASCII case-insensitive hasPrefixAt. prefix must be lower case.
func hasFoldPrefixAt(buf []byte, i int, prefix string) bool {
	if len(buf)-i < len(prefix) {
		return false
	}
	for k := 0; k < len(prefix); k++ {
		c := buf[i+k]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[k] {
			return false
		}
	}
	return true
}

// run returns the index of the first byte at or after i that does not satisfy ok.
func run(buf []byte, i int, ok func(byte) bool) int {
	for i < len(buf) && ok(buf[i]) {
		i++
	}
	return i
}

// runN is run limited to at most max bytes.
func runN(buf []byte, i, max int, ok func(byte) bool) int {
	end := i + max
	if end > len(buf) {
		end = len(buf)
	}
	for i < end && ok(buf[i]) {
		i++
	}
	return i
}

var (
	pemBegin   = []byte("-----BEGIN ")
	pemEnd     = []byte("-----END ")
	pemKeyTail = []byte("PRIVATE KEY-----")
	pemKinds   = [][]byte{[]byte("RSA "), []byte("EC "), []byte("DSA "), []byte("OPENSSH "), {}}

	jwtSegment  = []byte("eyJ")
	awsPrefix   = []byte("AKIA")
	ipv6Compact = []byte("::")
)

// privateKeyHeader reports the length of a private key header at i and the
// key kind it names.
func privateKeyHeader(buf []byte, i int) (n int, kind []byte) {
	if !hasPrefixAt(buf, i, pemBegin) {
		return 0, nil
	}
	j := i + len(pemBegin)
	for _, k := range pemKinds {
		if hasPrefixAt(buf, j, k) && hasPrefixAt(buf, j+len(k), pemKeyTail) {
			return len(pemBegin) + len(k) + len(pemKeyTail), k
		}
	}
	return 0, nil
}

// privateKeyEnd returns the end of the END marker matching kind, searching
// buf[from:limit]. It returns -1 when there is none.
func privateKeyEnd(buf []byte, from, limit int, kind []byte) int {
	for from < limit {
		idx := bytes.Index(buf[from:limit], pemEnd)
		if idx < 0 {
			return -1
		}
		p := from + idx + len(pemEnd)
		if hasPrefixAt(buf[:limit], p, kind) && hasPrefixAt(buf[:limit], p+len(kind), pemKeyTail) {
			return p + len(kind) + len(pemKeyTail)
		}
		from = p
	}
	return -1
}

func blockLimit(buf []byte, i int) int {
	if len(buf)-i > MaxPrivateKeyBlock {
		return i + MaxPrivateKeyBlock
	}
	return len(buf)
}

func matchPrivateKey(buf []byte, i int) (int, int, bool) {
	n, kind := privateKeyHeader(buf, i)
	if n == 0 {
		return 0, 0, false
	}
	if end := privateKeyEnd(buf, i+n, blockLimit(buf, i), kind); end > 0 {
		return i, end, true
	}
	return i, i + n, true
}

// UnterminatedBlock returns the offset of the first private key header in buf
// whose END marker is missing but could still appear in bytes that follow
// buf. It returns -1 when every header in buf is settled. Callers that split
// input into chunks must not cut after such a header.
func UnterminatedBlock(buf []byte) int {
	for from := 0; from < len(buf); {
		idx := bytes.Index(buf[from:], pemBegin)
		if idx < 0 {
			return -1
		}
		i := from + idx
		n, kind := privateKeyHeader(buf, i)
		if n == 0 {
			if partialHeader(buf[i+len(pemBegin):]) {
				return i
			}
			from = i + len(pemBegin)
			continue
		}
		limit := blockLimit(buf, i)
		end := privateKeyEnd(buf, i+n, limit, kind)
		if end < 0 {
			if len(buf)-i < MaxPrivateKeyBlock {
				return i
			}
			from = i + n
			continue
		}
		from = end
	}
	return -1
}

// partialHeader reports whether rest, the bytes after "-----BEGIN ", is a
// truncated private key header that more input could complete.
func partialHeader(rest []byte) bool {
	for _, k := range pemKinds {
		n := len(rest)
		if n >= len(k)+len(pemKeyTail) {
			continue
		}
		a := n
		if a > len(k) {
			a = len(k)
		}
		if bytes.Equal(rest[:a], k[:a]) && bytes.Equal(rest[a:], pemKeyTail[:n-a]) {
			return true
		}
	}
	return false
}

func matchJWT(buf []byte, i int) (int, int, bool) {
	if buf[i] != 'e' || !wordStart(buf, i) || !hasPrefixAt(buf, i, jwtSegment) {
		return 0, 0, false
	}
	j := run(buf, i+3, isBase64URL)
	if j >= len(buf) || buf[j] != '.' || !hasPrefixAt(buf, j+1, jwtSegment) {
		return 0, 0, false
	}
	j = run(buf, j+4, isBase64URL)
	if j >= len(buf) || buf[j] != '.' {
		return 0, 0, false
	}
	end := run(buf, j+1, isBase64URL)
	if end == j+1 {
		return 0, 0, false
	}
	return i, end, true
}

func matchAWSKey(buf []byte, i int) (int, int, bool) {
	if buf[i] != 'A' || !wordStart(buf, i) || !hasPrefixAt(buf, i, awsPrefix) {
		return 0, 0, false
	}
	end := runN(buf, i+4, 16, isUpperAlnum)
	if end-i != 20 || !wordEnd(buf, end) {
		return 0, 0, false
	}
	return i, end, true
}

// credentialKeys are matched case-insensitively, longest first so that
// "api_key" wins over "key" at the same position.
var credentialKeys = []string{
	"access_token",
	"credential",
	"passphrase",
	"password",
	"username",
	"api_key",
	"apikey",
	"passwd",
	"secret",
	"token",
	"email",
	"auth",
	"user",
	"key",
	"pwd",
	"ip",
}

func isValueDelim(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\n', ',', ';', '"', '\'', '&', '}', ']', ')':
		return true
	}
	return false
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

func isQuote(c byte) bool { return c == '"' || c == '\'' }

// matchKeyValue masks the value of a credential-like key. The key itself and
// the separator are kept so the log line stays readable.
func matchKeyValue(buf []byte, i int) (int, int, bool) {
	if !isAlpha(buf[i]) || (i > 0 && isAlnum(buf[i-1])) {
		return 0, 0, false
	}
	for _, key := range credentialKeys {
		if !hasFoldPrefixAt(buf, i, key) {
			continue
		}
		j := i + len(key)
		if j < len(buf) && isQuote(buf[j]) {
			j++
		}
		j = run(buf, j, isBlank)
		if j >= len(buf) || (buf[j] != '=' && buf[j] != ':') {
			continue
		}
		j = run(buf, j+1, isBlank)
		if j < len(buf) && isQuote(buf[j]) {
			j++
		}
		end := j
		for end < len(buf) && !isValueDelim(buf[end]) {
			end++
		}
		if end == j {
			continue
		}
		return j, end, true
	}
	return 0, 0, false
}

func matchEmail(buf []byte, i int) (int, int, bool) {
	if !isEmailLocal(buf[i]) || (i > 0 && isEmailLocal(buf[i-1])) {
		return 0, 0, false
	}
	at := run(buf, i, isEmailLocal)
	if at >= len(buf) || buf[at] != '@' {
		return 0, 0, false
	}
	domEnd := run(buf, at+1, isEmailDomain)
	// The last dot followed by two or more letters ends the longest match.
	for p := domEnd - 1; p >= at+2; p-- {
		if buf[p] != '.' {
			continue
		}
		tld := run(buf, p+1, isAlpha)
		if tld-(p+1) >= 2 {
			return i, tld, true
		}
	}
	return 0, 0, false
}

// hexGroups matches len(groups) hex runs of the given sizes separated by sep.
func hexGroups(buf []byte, i int, sep byte, sizes ...int) (int, bool) {
	j := i
	for k, size := range sizes {
		if k > 0 {
			if j >= len(buf) || buf[j] != sep {
				return 0, false
			}
			j++
		}
		end := runN(buf, j, size, isHex)
		if end-j != size {
			return 0, false
		}
		j = end
	}
	return j, true
}

func matchUUID(buf []byte, i int) (int, int, bool) {
	if !isHex(buf[i]) || !wordStart(buf, i) {
		return 0, 0, false
	}
	end, ok := hexGroups(buf, i, '-', 8, 4, 4, 4, 12)
	if !ok || !wordEnd(buf, end) {
		return 0, 0, false
	}
	return i, end, true
}

func matchMAC(buf []byte, i int) (int, int, bool) {
	if !isHex(buf[i]) || !wordStart(buf, i) || len(buf)-i < 17 {
		return 0, 0, false
	}
	sep := buf[i+2]
	if sep != ':' && sep != '-' {
		return 0, 0, false
	}
	end, ok := hexGroups(buf, i, sep, 2, 2, 2, 2, 2, 2)
	if !ok || !wordEnd(buf, end) {
		return 0, 0, false
	}
	return i, end, true
}

func matchIPv6(buf []byte, i int) (int, int, bool) {
	c := buf[i]
	if !isHex(c) && c != ':' {
		return 0, 0, false
	}
	if i > 0 {
		p := buf[i-1]
		if isWord(p) || p == ':' || p == '.' {
			return 0, 0, false
		}
	}
	j := i
	groups := 0
	compressed := false
	if hasPrefixAt(buf, j, ipv6Compact) {
		compressed = true
		j += 2
	}
	for j < len(buf) {
		end := runN(buf, j, 5, isHex)
		if end-j > 4 {
			return 0, 0, false
		}
		if end == j {
			break
		}
		groups++
		j = end
		if j+1 >= len(buf) || buf[j] != ':' {
			break
		}
		if buf[j+1] == ':' {
			if compressed {
				return 0, 0, false
			}
			compressed = true
			j += 2
			continue
		}
		if !isHex(buf[j+1]) {
			break
		}
		j++
	}
	if groups == 0 || groups > 8 || (compressed && groups > 7) || (!compressed && groups != 8) {
		return 0, 0, false
	}
	if j < len(buf) && (isWord(buf[j]) || buf[j] == '.') {
		return 0, 0, false
	}
	return i, j, true
}

func matchIPv4(buf []byte, i int) (int, int, bool) {
	if !isDigit(buf[i]) || !wordStart(buf, i) {
		return 0, 0, false
	}
	j := i
	for octet := 0; octet < 4; octet++ {
		if octet > 0 {
			if j >= len(buf) || buf[j] != '.' {
				return 0, 0, false
			}
			j++
		}
		end := runN(buf, j, 4, isDigit)
		if end == j || end-j > 3 {
			return 0, 0, false
		}
		v := 0
		for k := j; k < end; k++ {
			v = v*10 + int(buf[k]-'0')
		}
		if v > 255 {
			return 0, 0, false
		}
		j = end
	}
	if !wordEnd(buf, j) {
		return 0, 0, false
	}
	return i, j, true
}

func matchCreditCard(buf []byte, i int) (int, int, bool) {
	if !isDigit(buf[i]) || !wordStart(buf, i) {
		return 0, 0, false
	}
	j := i
	sum := 0
	pos := 0
	for group := 0; group < 4; group++ {
		if group > 0 && j < len(buf) && (buf[j] == '-' || buf[j] == ' ') {
			j++
		}
		end := runN(buf, j, 4, isDigit)
		if end-j != 4 {
			return 0, 0, false
		}
		for k := j; k < end; k++ {
			d := int(buf[k] - '0')
			// Luhn doubles every second digit counting from the right; with
			// exactly 16 digits that is every even index from the left.
			if pos%2 == 0 {
				d *= 2
				if d > 9 {
					d -= 9
				}
			}
			sum += d
			pos++
		}
		j = end
	}
	if !wordEnd(buf, j) || sum%10 != 0 {
		return 0, 0, false
	}
	return i, j, true
}

type matcher struct {
	detector Detector
	match    func(buf []byte, i int) (int, int, bool)
}

// matchers is in BuiltInDetectors order.
var matchers = [...]matcher{
	{DetectPrivateKey, matchPrivateKey},
	{DetectJWT, matchJWT},
	{DetectAWSKey, matchAWSKey},
	{DetectKeyValue, matchKeyValue},
	{DetectEmail, matchEmail},
	{DetectUUID, matchUUID},
	{DetectMAC, matchMAC},
	{DetectIPv6, matchIPv6},
	{DetectIPv4, matchIPv4},
	{DetectCreditCard, matchCreditCard},
}

// nextMatch returns the first span at or after from matched by any detector
// in set. Position from counts as a boundary: callers pass the end of the
// previous match, whose bytes become inert mask text once redacted, so a
// second pass over the output finds nothing the first pass skipped.
func nextMatch(set DetectorSet, buf []byte, from int) (start, end int, d Detector, ok bool) {
	view := buf[from:]
	for i := range view {
		for k := range matchers {
			m := &matchers[k]
			if !set.Has(m.detector) {
				continue
			}
			if s, e, hit := m.match(view, i); hit {
				return from + s, from + e, m.detector, true
			}
		}
	}
	return 0, 0, 0, false
}
