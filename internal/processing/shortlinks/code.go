package shortlinks

import (
	"crypto/rand"
)

// codeAlphabet is the alphabet the service has always minted codes from.
// Codes are case-sensitive and may contain the punctuation characters.
const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz_-!@$&*"

// CryptoCoder mints short codes from codeAlphabet using crypto/rand. It holds
// no mutable state and is safe for concurrent use.
type CryptoCoder struct{}

func NewCryptoCoder() *CryptoCoder { return &CryptoCoder{} }

func (c *CryptoCoder) Generate(length int) (string, error) {
	if length <= 0 {
		length = 5
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	out := make([]byte, length)
	for i := range buf {
		out[i] = codeAlphabet[int(buf[i])%len(codeAlphabet)]
	}

	return string(out), nil
}
