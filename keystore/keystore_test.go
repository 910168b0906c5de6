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
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSkey is a cardano-cli payment signing key for the seed 0x01..0x20
const testSkey = `{
    "type": "PaymentSigningKeyShelley_ed25519",
    "description": "Payment Signing Key",
    "cborHex": "58200102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"
}`

func testSeed() []byte {
	ret := make([]byte, SeedSize)
	for i := range ret {
		ret[i] = byte(i + 1)
	}
	return ret
}

func TestLoadPaymentKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payment.skey")
	require.NoError(t, os.WriteFile(path, []byte(testSkey), 0o600))
	key, err := LoadPaymentKey(path)
	require.NoError(t, err)
	expected, err := NewPaymentKey(testSeed())
	require.NoError(t, err)
	assert.Equal(t, expected.VerificationKey(), key.VerificationKey())
	assert.Equal(
		t,
		lcommon.Blake2b224Hash(key.VerificationKey()),
		key.KeyHash(),
	)
}

func TestLoadPaymentKeyInsecure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not used on windows")
	}
	path := filepath.Join(t.TempDir(), "payment.skey")
	require.NoError(t, os.WriteFile(path, []byte(testSkey), 0o600))
	require.NoError(t, os.Chmod(path, 0o644))
	_, err := LoadPaymentKey(path)
	assert.ErrorIs(t, err, ErrInsecureFileMode)
}

func TestLoadPaymentKeyErrors(t *testing.T) {
	testDefs := []struct {
		name    string
		content string
		err     error
	}{
		{
			name:    "wrong type",
			content: `{"type":"StakeSigningKeyShelley_ed25519","cborHex":"5820` + string(bytes.Repeat([]byte("00"), 32)) + `"}`,
			err:     ErrUnsupportedKeyType,
		},
		{
			name:    "short key",
			content: `{"type":"PaymentSigningKeyShelley_ed25519","cborHex":"43010203"}`,
		},
		{
			name:    "bad hex",
			content: `{"type":"PaymentSigningKeyShelley_ed25519","cborHex":"zz"}`,
		},
		{
			name:    "not json",
			content: `payment key`,
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "payment.skey")
			require.NoError(t, os.WriteFile(path, []byte(testDef.content), 0o600))
			_, err := LoadPaymentKey(path)
			require.Error(t, err)
			if testDef.err != nil {
				assert.ErrorIs(t, err, testDef.err)
			}
		})
	}
}

func TestWriteFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	key, err := GeneratePaymentKey()
	require.NoError(t, err)
	skeyPath := filepath.Join(dir, "payment.skey")
	vkeyPath := filepath.Join(dir, "payment.vkey")
	require.NoError(t, key.WriteFiles(skeyPath, vkeyPath, false))
	loaded, err := LoadPaymentKey(skeyPath)
	require.NoError(t, err)
	assert.Equal(t, key.KeyHash(), loaded.KeyHash())
	vkey, err := os.ReadFile(vkeyPath)
	require.NoError(t, err)
	assert.Contains(t, string(vkey), keyTypePaymentVerification)
}

func TestEncryptRequiresMasterKeys(t *testing.T) {
	t.Setenv(EnvGcpKmsResourceId, "")
	t.Setenv(EnvAwsKmsKeyArns, "")
	key, err := GeneratePaymentKey()
	require.NoError(t, err)
	err = key.WriteFiles(filepath.Join(t.TempDir(), "payment.skey"), "", true)
	assert.ErrorIs(t, err, ErrNoMasterKeys)
}

func TestKmsKeyGroups(t *testing.T) {
	groups, err := kmsConfig{
		gcpResourceIds: "projects/p/locations/global/keyRings/r/cryptoKeys/k",
		awsKeyArns:     "arn:aws:kms:us-east-1:111:key/a,arn:aws:kms:us-east-1:111:key/b",
		awsProfile:     "medifund",
	}.keyGroups()
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Len(t, groups[0], 1)
	assert.Len(t, groups[1], 2)

	groups, err = kmsConfig{awsKeyArns: "arn:aws:kms:us-east-1:111:key/a"}.keyGroups()
	require.NoError(t, err)
	require.Len(t, groups, 1)

	_, err = kmsConfig{}.keyGroups()
	assert.ErrorIs(t, err, ErrNoMasterKeys)
}

func TestSealKeyFileRejectsEncrypted(t *testing.T) {
	_, err := sealKeyFile(
		[]byte(`{"data":"ENC[...]","sops":{"version":"3.9.0"}}`),
		kmsConfig{gcpResourceIds: "projects/p/locations/global/keyRings/r/cryptoKeys/k"},
	)
	assert.ErrorIs(t, err, ErrKeyFileEncrypted)
}

func TestIsEncrypted(t *testing.T) {
	assert.False(t, isEncrypted([]byte(testSkey)))
	assert.True(t, isEncrypted([]byte(`{"data":"ENC[...]","sops":{"version":"3.9.0"}}`)))
	assert.False(t, isEncrypted([]byte("not json")))
}

func TestWitness(t *testing.T) {
	key, err := NewPaymentKey(testSeed())
	require.NoError(t, err)
	bodyHash := lcommon.Blake2b256Hash([]byte("body"))
	w := key.Witness(bodyHash)
	assert.True(t, ed25519.Verify(w.Vkey, bodyHash.Bytes(), w.Signature))
	addr, err := key.Address(0)
	require.NoError(t, err)
	assert.Equal(t, key.KeyHash(), addr.PaymentKeyHash())
}

func TestCheckSDDL(t *testing.T) {
	testDefs := []struct {
		name   string
		sddl   string
		secure bool
	}{
		{name: "owner only", sddl: "O:S-1-5-21-1D:P(A;;GA;;;S-1-5-21-1)", secure: true},
		{name: "everyone", sddl: "D:(A;;GR;;;WD)"},
		{name: "users sid", sddl: "D:(A;;GR;;;S-1-5-32-545)"},
		{name: "deny everyone", sddl: "D:(D;;GA;;;WD)(A;;GA;;;SY)", secure: true},
		{name: "no dacl", sddl: "O:SY"},
		{name: "sacl ignored", sddl: "D:(A;;GA;;;SY)S:(AU;SA;GA;;;WD)", secure: true},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := checkSDDL("key", testDef.sddl)
			if testDef.secure {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInsecureFileMode)
			}
		})
	}
}
