// Copyright (c) 2026 The NovaVote Authors.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
)

// Choice is the plaintext form of one question's answer. Exactly one of
// the fields is meaningful, depending on the question type.
type Choice struct {
	Single   string         // single-choice: the selected option label
	Selected []string       // multiple-choice: zero or more option labels
	Ranking  map[int]string // ranking: rank (1-based) -> option label
}

// ChoiceDecrypter turns one ballot's one ciphertext back into a plaintext
// choice. Invoked only by the tally engine after an election closes. Real
// deployments back this with trustee-held key material.
type ChoiceDecrypter interface {
	DecryptChoice(ciphertext string) (Choice, error)
}

// Base64Decrypter is the placeholder scheme: ciphertexts are base64-wrapped
// JSON (array for multiple, rank-keyed object for ranking) or a bare label
// for single-choice answers.
type Base64Decrypter struct{}

func NewBase64Decrypter() *Base64Decrypter {
	return &Base64Decrypter{}
}

func (d *Base64Decrypter) DecryptChoice(ciphertext string) (Choice, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return Choice{}, fmt.Errorf("undecodable ciphertext: %w", err)
	}

	var selected []string
	if err := json.Unmarshal(raw, &selected); err == nil {
		return Choice{Selected: selected}, nil
	}

	var ranked map[string]string
	if err := json.Unmarshal(raw, &ranked); err == nil {
		ranking := make(map[int]string, len(ranked))
		for k, label := range ranked {
			rank, err := strconv.Atoi(k)
			if err != nil {
				return Choice{}, fmt.Errorf("non-numeric rank %q", k)
			}
			ranking[rank] = label
		}
		return Choice{Ranking: ranking}, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return Choice{Single: single}, nil
	}

	// Not JSON at all: treat the raw bytes as a bare single-choice label.
	return Choice{Single: string(raw)}, nil
}

// Encoding helpers for the placeholder scheme. The voting client performs
// the real encryption; these exist for tooling and tests.

func EncodeSingle(label string) string {
	return base64.StdEncoding.EncodeToString([]byte(label))
}

func EncodeMultiple(labels []string) string {
	raw, _ := json.Marshal(labels)
	return base64.StdEncoding.EncodeToString(raw)
}

func EncodeRanking(ordered []string) string {
	ranked := make(map[string]string, len(ordered))
	for i, label := range ordered {
		ranked[strconv.Itoa(i+1)] = label
	}
	raw, _ := json.Marshal(ranked)
	return base64.StdEncoding.EncodeToString(raw)
}
