package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// newID returns a prefixed random identifier, e.g. "sp-1f2e3d4c5b6a7988".
func newID(prefix string) string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return prefix + "-" + hex.EncodeToString(b)
}
