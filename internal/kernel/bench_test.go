package kernel

import (
	"bytes"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func benchmarkCorpus(size int) []byte {
	line := []byte(strings.Join(sensitiveCorpus, "\n") + "\n")
	return bytes.Repeat(line, size/len(line)+1)[:size]
}

func BenchmarkRedact(b *testing.B) {
	for _, size := range []int{1 << 10, 64 << 10, 1 << 20} {
		in := benchmarkCorpus(size)
		out := make([]byte, len(in))
		b.Run(byteSize(size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(in)))
			for i := 0; i < b.N; i++ {
				Redact(in, out)
			}
		})
	}
}

func BenchmarkRedact_Clean(b *testing.B) {
	in := bytes.Repeat([]byte("GET /api/v1/users 200 12ms handler=list\n"), 1<<14)
	out := make([]byte, len(in))
	b.ReportAllocs()
	b.SetBytes(int64(len(in)))
	for i := 0; i < b.N; i++ {
		Redact(in, out)
	}
}

func BenchmarkSimilarity(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{128, 768, 1536} {
		x := randomVector(rng, n)
		y := randomVector(rng, n)
		b.Run(fmt.Sprintf("d%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				Similarity(x, y)
			}
		})
	}
}

func BenchmarkDotScalar(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	x := randomVector(rng, 1536)
	y := randomVector(rng, 1536)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		dotScalar(x, y)
	}
}

func BenchmarkDotVek(b *testing.B) {
	rng := rand.New(rand.NewSource(3))
	x := randomVector(rng, 1536)
	y := randomVector(rng, 1536)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		dotVek(x, y)
	}
}

func byteSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%dMiB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%dKiB", n>>10)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
