package service

import (
	"crypto/rand"
	"math/big"
)

const (
	// ShortCodeLength is the length of every generated short code.
	ShortCodeLength = 6

	// TriesToGenerateUniqueCode bounds the retries after a short code collision.
	TriesToGenerateUniqueCode = 10

	shortCodeSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var shortCodeSymbolsLen = big.NewInt(int64(len(shortCodeSymbols)))

// GenerateShortCode returns ShortCodeLength characters drawn uniformly from [a-zA-Z0-9].
func GenerateShortCode() (string, error) {
	result := make([]byte, ShortCodeLength)
	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, shortCodeSymbolsLen)
		if err != nil {
			return "", err
		}
		result[i] = shortCodeSymbols[randomIndex.Int64()]
	}

	return string(result), nil
}
