// Package codes generates short human-readable codes that are checked
// against the store for collisions before use.
package codes

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet leaves out 0/O and 1/I so codes survive being read aloud.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// ErrExhausted is returned when every attempt collided.
var ErrExhausted = errors.New("codes: could not generate a unique code")

// ExistsFunc reports whether code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator produces codes of Length characters, falling back to
// FallbackLength after MaxAttempts collisions.
type Generator struct {
	Length         int
	FallbackLength int
	MaxAttempts    int

	random func(length int) (string, error)
}

// BookingCodes is used for whole-booking codes, e.g. "K7P2QX".
func BookingCodes() *Generator {
	return &Generator{Length: 6, FallbackLength: 10, MaxAttempts: 5, random: Random}
}

// MemberCodes is used for per-attendee codes.
func MemberCodes() *Generator {
	return &Generator{Length: 8, FallbackLength: 12, MaxAttempts: 5, random: Random}
}

// Generate retries until exists reports the code free.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	for _, length := range []int{g.Length, g.FallbackLength} {
		for attempt := 0; attempt < g.MaxAttempts; attempt++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			code, err := g.next(length)
			if err != nil {
				return "", err
			}
			taken, err := exists(ctx, code)
			if err != nil {
				return "", fmt.Errorf("check code collision: %w", err)
			}
			if !taken {
				return code, nil
			}
		}
	}
	return "", ErrExhausted
}

func (g *Generator) next(length int) (string, error) {
	if g.random != nil {
		return g.random(length)
	}
	return Random(length)
}

// Random draws length characters from Alphabet.
func Random(length int) (string, error) {
	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return code, nil
}
