package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/nettodev/realms-auth/config"
)

var ErrCodeSpaceExhausted = errors.New("could not generate a unique code")

// codeIssueAttempts caps the existence-check-then-regenerate loop. With a
// 4-character code over a 24-letter alphabet the space holds ~330k codes, so
// hitting the cap means something is wrong with the store, not bad luck.
const codeIssueAttempts = 5

// CodeIssuer produces short random uppercase codes for the proofing
// workflows. Codes are not unique by construction; IssueUnique enforces
// uniqueness against the store on a best-effort basis.
type CodeIssuer struct {
	length   int
	alphabet string
}

func NewCodeIssuer(length int, alphabet string) *CodeIssuer {
	if length <= 0 {
		length = 4
	}
	if alphabet == "" {
		alphabet = config.DefaultCodeAlphabet
	}
	return &CodeIssuer{length: length, alphabet: alphabet}
}

// Generate draws each character independently and uniformly from the
// alphabet and returns the result uppercased.
func (g *CodeIssuer) Generate() (string, error) {
	var b strings.Builder
	b.Grow(g.length)

	max := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(g.alphabet[n.Int64()])
	}

	return strings.ToUpper(b.String()), nil
}

// IssueUnique regenerates until exists reports no match, giving up after a
// fixed number of attempts. This avoids collisions with outstanding codes
// but is not a hard guarantee under concurrent generation.
func (g *CodeIssuer) IssueUnique(ctx context.Context, exists func(context.Context, string) (bool, error)) (string, error) {
	for attempt := 0; attempt < codeIssueAttempts; attempt++ {
		code, err := g.Generate()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", ErrCodeSpaceExhausted
}
