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

// Package keystore loads and stores the ed25519 payment keys used to sign
// campaign transactions. Key files use the cardano-cli text envelope and
// may be encrypted with SOPS.
package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// SeedSize is the size of an ed25519 signing key seed
const SeedSize = ed25519.SeedSize

var (
	ErrInsecureFileMode   = errors.New("insecure file permissions")
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrNoMasterKeys       = errors.New("no SOPS master keys configured")
	ErrKeyFileEncrypted   = errors.New("key file already encrypted")
)

// PaymentKey is an ed25519 payment signing key
type PaymentKey struct {
	private ed25519.PrivateKey
}

// NewPaymentKey returns the key for a 32 byte seed
func NewPaymentKey(seed []byte) (*PaymentKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("invalid seed size %d", len(seed))
	}
	return &PaymentKey{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// GeneratePaymentKey returns a new random key
func GeneratePaymentKey() (*PaymentKey, error) {
	_, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PaymentKey{private: private}, nil
}

// LoadPaymentKey reads a signing key file. Encrypted files are decrypted
// with the SOPS master keys available in the environment.
func LoadPaymentKey(path string) (*PaymentKey, error) {
	fileBytes, err := readKeyFile(path)
	if err != nil {
		return nil, err
	}
	if isEncrypted(fileBytes) {
		fileBytes, err = openKeyFile(fileBytes)
		if err != nil {
			return nil, fmt.Errorf("key file %q: %w", path, err)
		}
	}
	seed, err := parseSigningKey(fileBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse key file %q: %w", path, err)
	}
	return NewPaymentKey(seed)
}

// VerificationKey returns the 32 byte public key
func (k *PaymentKey) VerificationKey() []byte {
	return []byte(k.private.Public().(ed25519.PublicKey))
}

// KeyHash returns the payment key hash used in addresses and as a required
// signer
func (k *PaymentKey) KeyHash() lcommon.Blake2b224 {
	return lcommon.Blake2b224Hash(k.VerificationKey())
}

// Address returns the enterprise address of the key
func (k *PaymentKey) Address(networkId uint8) (lcommon.Address, error) {
	return lcommon.NewAddressFromParts(
		lcommon.AddressTypeKeyNone,
		networkId,
		k.KeyHash().Bytes(),
		nil,
	)
}

func (k *PaymentKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// Witness signs a transaction body hash
func (k *PaymentKey) Witness(bodyHash lcommon.Blake2b256) lcommon.VkeyWitness {
	return lcommon.VkeyWitness{
		Vkey:      k.VerificationKey(),
		Signature: k.Sign(bodyHash.Bytes()),
	}
}

// WriteFiles writes the signing and verification key files. The signing
// key is encrypted when encrypt is set.
func (k *PaymentKey) WriteFiles(skeyPath string, vkeyPath string, encrypt bool) error {
	skey, err := encodeEnvelope(
		keyTypePaymentSigning,
		"Payment Signing Key",
		k.private.Seed(),
	)
	if err != nil {
		return err
	}
	if encrypt {
		skey, err = sealKeyFile(skey, kmsConfigFromEnv())
		if err != nil {
			return err
		}
	}
	if err := os.WriteFile(skeyPath, skey, 0o600); err != nil {
		return fmt.Errorf("write signing key: %w", err)
	}
	if vkeyPath == "" {
		return nil
	}
	vkey, err := encodeEnvelope(
		keyTypePaymentVerification,
		"Payment Verification Key",
		k.VerificationKey(),
	)
	if err != nil {
		return err
	}
	// #nosec G306
	if err := os.WriteFile(vkeyPath, vkey, 0o644); err != nil {
		return fmt.Errorf("write verification key: %w", err)
	}
	return nil
}
