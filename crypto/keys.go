// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GeneratePublicKey mints the election's public key material. The blob is
// ElGamal-shaped but placeholder: the server only stores and republishes
// it, encryption happens in the voting client and decryption with trustee
// key shares that never touch this service.
func GeneratePublicKey() (json.RawMessage, error) {
	y := make([]byte, 32)
	if _, err := rand.Read(y); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}

	key := map[string]string{
		"scheme": "elgamal",
		"g":      "2",
		"y":      hex.EncodeToString(y),
	}
	raw, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	return raw, nil
}
