package service

import "math/rand"

const (
	refCodeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	refCodeLength   = 20
)

// NewRefCode returns a reference code of 20 characters drawn uniformly from
// the lowercase-alphanumeric alphabet.
func NewRefCode() string {
	b := make([]byte, refCodeLength)
	for i := range b {
		b[i] = refCodeAlphabet[rand.Intn(len(refCodeAlphabet))]
	}
	return string(b)
}
