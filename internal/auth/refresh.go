package auth

import (
	"fmt"

	"github.com/jaevor/go-nanoid"
)

const refreshTokenLength = 40

var newRefreshID = mustGenerator(refreshTokenLength)

// NewRefreshToken returns an opaque, URL-safe refresh token.
func NewRefreshToken() string {
	return newRefreshID()
}

func mustGenerator(length int) func() string {
	gen, err := nanoid.Standard(length)
	if err != nil {
		panic(fmt.Sprintf("auth: nanoid generator: %v", err))
	}
	return gen
}
