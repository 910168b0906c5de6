// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package keystore

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/blinklabs-io/gouroboros/cbor"
)

// Key envelope types as written by cardano-cli
const (
	keyTypePaymentSigning      = "PaymentSigningKeyShelley_ed25519"
	keyTypePaymentVerification = "PaymentVerificationKeyShelley_ed25519"
)

// maxKeyFileSize bounds reads of key files. Valid key files, including
// encrypted ones, are well under this size.
const maxKeyFileSize = 1 << 20

type keyFileEnvelope struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	CborHex     string `json:"cborHex"`
}

// readKeyFile reads a key file after checking its permissions
func readKeyFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file %q: %w", path, err)
	}
	defer f.Close()
	if err := checkOpenFilePermissions(f); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(f, maxKeyFileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read key file %q: %w", path, err)
	}
	return data, nil
}

// isEncrypted reports whether the file content is a SOPS document
func isEncrypted(fileBytes []byte) bool {
	var tmp map[string]json.RawMessage
	if err := json.Unmarshal(fileBytes, &tmp); err != nil {
		return false
	}
	_, ok := tmp["sops"]
	return ok
}

// parseSigningKey decodes a payment signing key envelope and returns the
// 32 byte seed
func parseSigningKey(fileBytes []byte) ([]byte, error) {
	var env keyFileEnvelope
	if err := json.Unmarshal(fileBytes, &env); err != nil {
		return nil, fmt.Errorf("could not parse key file envelope: %w", err)
	}
	if env.Type != keyTypePaymentSigning {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, env.Type)
	}
	cborData, err := hex.DecodeString(env.CborHex)
	if err != nil {
		return nil, fmt.Errorf("could not decode key from hex: %w", err)
	}
	var seed []byte
	if _, err := cbor.Decode(cborData, &seed); err != nil {
		return nil, fmt.Errorf("failed to unmarshal signing key CBOR: %w", err)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf(
			"invalid signing key: expected %d bytes, got %d",
			SeedSize,
			len(seed),
		)
	}
	return seed, nil
}

func encodeEnvelope(keyType string, description string, key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, errors.New("empty key")
	}
	cborData, err := cbor.Encode(key)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(
		keyFileEnvelope{
			Type:        keyType,
			Description: description,
			CborHex:     hex.EncodeToString(cborData),
		},
		"",
		"    ",
	)
}
