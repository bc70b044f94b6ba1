// Package claimcode generates the short random codes used to redeem deferred
// awards. Codes are meant to be read over the phone or typed from a printed
// sheet, so the alphabet omits characters that are easy to confuse
// (0/o, 1/l/i).
package claimcode

import (
	"crypto/rand"
	"math/big"
)

// Alphabet is the set of characters claim codes are drawn from.
const Alphabet = "abcdefghjkmnpqrstuvwxyz23456789"

// DefaultLength balances guessability against typing effort. With a 31
// character alphabet, 8 characters give roughly 2^39 combinations.
const DefaultLength = 8

// New returns a fresh random claim code of the default length.
func New() (string, error) {
	return NewWithLength(DefaultLength)
}

// NewWithLength returns a fresh random claim code of the given length.
func NewWithLength(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	max := big.NewInt(int64(len(Alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = Alphabet[n.Int64()]
	}
	return string(out), nil
}

// Valid reports whether a string could have been produced by this package.
// Useful for rejecting junk before hitting the store.
func Valid(code string) bool {
	if code == "" {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !inAlphabet(code[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	for i := 0; i < len(Alphabet); i++ {
		if Alphabet[i] == c {
			return true
		}
	}
	return false
}
