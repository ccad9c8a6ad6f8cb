// Package accountid generates the public 16-character player identifiers.
package accountid

import "crypto/rand"

const (
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	Length   = 16
)

// MaxAttempts bounds collision retries during account creation. Exhausting it
// is a hard failure, never a silent duplicate.
const MaxAttempts = 5

// New draws a Length-character identifier from the 62-symbol alphabet using
// rejection sampling, so every symbol is equally likely.
func New() string {
	out := make([]byte, Length)
	buf := make([]byte, Length)
	// Largest multiple of len(Alphabet) below 256; bytes at or above it are
	// redrawn to avoid modulo bias.
	limit := byte(256 - 256%len(Alphabet)) // 248

	i := 0
	for i < Length {
		_, _ = rand.Read(buf)
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out[i] = Alphabet[int(b)%len(Alphabet)]
			i++
			if i == Length {
				break
			}
		}
	}
	return string(out)
}
