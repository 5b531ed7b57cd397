package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a fresh random identifier for runs, jobs, sources, documents.
func NewID() string {
	return uuid.NewString()
}

// MakeProcedureID derives the stable procedure identity. Every caller that
// needs a procedure id goes through here; the derivation must never change
// or reruns stop being idempotent.
func MakeProcedureID(titleNorm, municipalityKey string, keyTokens []string) string {
	h := sha256.New()
	h.Write([]byte(titleNorm))
	h.Write([]byte{0})
	h.Write([]byte(municipalityKey))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(keyTokens, "\x1f")))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// SHA256Hex returns the hex digest of a byte slice, the content identity of
// every stored document.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
