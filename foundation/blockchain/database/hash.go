package database

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ZeroHash represents a hash code of zeros. It is used as the previous hash
// of the genesis block.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// Hash returns a unique string for the value. The value is marshaled to JSON
// and hashed with sha256. The result is hex encoded without a 0x prefix so
// the proof of work can count leading zero characters.
func Hash(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
