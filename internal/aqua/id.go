package aqua

import (
	"crypto/rand"
	"encoding/hex"
)

// NewTankID generates a random tank identifier.
func NewTankID() TankID {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return TankID(hex.EncodeToString(b))
}
