// Package cryptox issues and verifies deletion tokens. A token is a random
// opaque string handed to the uploader once; only its BLAKE2b digest is
// persisted.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	"golang.org/x/crypto/blake2b"
)

// NewDeletionToken returns a fresh hex token of common.DeletionTokenSize
// random bytes. It does not depend on the artifact content.
func NewDeletionToken() (string, error) {
	t, err := common.MakeRandHexString(common.DeletionTokenSize)
	if err != nil {
		return "", fmt.Errorf("deletion token: %w", err)
	}
	return t, nil
}

// HashToken returns the hex BLAKE2b-256 digest stored in place of token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyToken compares token against a stored digest in constant time.
func VerifyToken(token, digest string) bool {
	if token == "" || digest == "" {
		return false
	}
	got := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(got), []byte(digest)) == 1
}
