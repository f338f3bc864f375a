package application

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/sp3dr4/relink/internal/domain"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Bytes at or above this value are rejected so every symbol is equally likely.
	rejectionLimit = 256 - 256%len(alphabet)

	DefaultShortCodeLength       = 8
	DefaultMaxGenerationAttempts = 10
)

// ExistenceChecker reports whether a short code is already taken.
type ExistenceChecker interface {
	Exists(ctx context.Context, shortCode string) (bool, error)
}

// CodeGenerator draws random alphanumeric codes and checks them against the
// durable store. It never writes.
type CodeGenerator struct {
	checker     ExistenceChecker
	length      int
	maxAttempts int
	random      io.Reader
}

func NewCodeGenerator(checker ExistenceChecker, length, maxAttempts int) *CodeGenerator {
	if length <= 0 {
		length = DefaultShortCodeLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxGenerationAttempts
	}
	return &CodeGenerator{
		checker:     checker,
		length:      length,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
}

// Generate returns a code that was free at the time of the check. After
// maxAttempts collisions it gives up with domain.ErrGenerationExhausted.
func (g *CodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		code, err := g.randomCode()
		if err != nil {
			return "", err
		}

		exists, err := g.checker.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check short code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts", domain.ErrGenerationExhausted, g.maxAttempts)
}

func (g *CodeGenerator) randomCode() (string, error) {
	code := make([]byte, 0, g.length)
	buf := make([]byte, g.length*2)

	for len(code) < g.length {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= rejectionLimit {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == g.length {
				break
			}
		}
	}

	return string(code), nil
}
