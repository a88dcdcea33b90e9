package app

import (
	"crypto/rand"
	"io"
	"math/big"
	"strings"
)

// CodeAlphabet leaves out characters that are easy to misread (0/O, 1/I).
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codeLength         = 4
	codeAttempts       = 25
	fallbackCodeLength = 6
)

// CodeGenerator produces short room codes.
type CodeGenerator struct {
	random io.Reader
}

// NewCodeGenerator returns a generator backed by crypto/rand.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{random: rand.Reader}
}

// NewCodeGeneratorFrom draws characters from random instead of crypto/rand.
func NewCodeGeneratorFrom(random io.Reader) *CodeGenerator {
	return &CodeGenerator{random: random}
}

// Generate tries 25 four-character codes that collide with none of existing
// (compared case-insensitively), then falls back to an unchecked six-character code.
func (g *CodeGenerator) Generate(existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, code := range existing {
		taken[strings.ToUpper(code)] = struct{}{}
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := g.code(codeLength)
		if _, ok := taken[code]; !ok {
			return code
		}
	}
	return g.code(fallbackCodeLength)
}

func (g *CodeGenerator) code(length int) string {
	size := big.NewInt(int64(len(CodeAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(g.random, size)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic("room code: random source failed: " + err.Error())
		}
		out[i] = CodeAlphabet[n.Int64()]
	}
	return string(out)
}

// NormalizeCode trims and uppercases a client supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
