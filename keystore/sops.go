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
	"fmt"
	"os"

	sopsapi "github.com/getsops/sops/v3"
	"github.com/getsops/sops/v3/aes"
	scommon "github.com/getsops/sops/v3/cmd/sops/common"
	"github.com/getsops/sops/v3/config"
	"github.com/getsops/sops/v3/decrypt"
	"github.com/getsops/sops/v3/gcpkms"
	skeys "github.com/getsops/sops/v3/keys"
	awskms "github.com/getsops/sops/v3/kms"
	jsonstore "github.com/getsops/sops/v3/stores/json"
	"github.com/getsops/sops/v3/version"
)

// Environment variables naming the KMS master keys that protect signing
// key files
const (
	EnvGcpKmsResourceId = "MEDIFUND_GCP_KMS_RESOURCE_ID"
	EnvAwsKmsKeyArns    = "MEDIFUND_AWS_KMS_KEY_ARNS"
	EnvAwsKmsProfile    = "MEDIFUND_AWS_KMS_PROFILE"
)

// sopsFormat stores the key envelope as a single opaque value
const sopsFormat = "binary"

// kmsConfig names the master keys a signing key file is encrypted to.
// Each provider becomes its own key group, so any one of them can
// decrypt.
type kmsConfig struct {
	gcpResourceIds string
	awsKeyArns     string
	awsProfile     string
}

func kmsConfigFromEnv() kmsConfig {
	return kmsConfig{
		gcpResourceIds: os.Getenv(EnvGcpKmsResourceId),
		awsKeyArns:     os.Getenv(EnvAwsKmsKeyArns),
		awsProfile:     os.Getenv(EnvAwsKmsProfile),
	}
}

func keyGroup[K skeys.MasterKey](keys []K) sopsapi.KeyGroup {
	ret := make(sopsapi.KeyGroup, 0, len(keys))
	for _, k := range keys {
		ret = append(ret, k)
	}
	return ret
}

func (c kmsConfig) keyGroups() ([]sopsapi.KeyGroup, error) {
	var ret []sopsapi.KeyGroup
	if c.gcpResourceIds != "" {
		if g := keyGroup(gcpkms.MasterKeysFromResourceIDString(c.gcpResourceIds)); len(g) > 0 {
			ret = append(ret, g)
		}
	}
	if c.awsKeyArns != "" {
		if g := keyGroup(awskms.MasterKeysFromArnString(c.awsKeyArns, nil, c.awsProfile)); len(g) > 0 {
			ret = append(ret, g)
		}
	}
	if len(ret) == 0 {
		return nil, fmt.Errorf(
			"%w: set %s or %s",
			ErrNoMasterKeys,
			EnvGcpKmsResourceId,
			EnvAwsKmsKeyArns,
		)
	}
	return ret, nil
}

// sealKeyFile encrypts a signing key envelope to the configured master
// keys
func sealKeyFile(envelope []byte, kms kmsConfig) ([]byte, error) {
	if isEncrypted(envelope) {
		return nil, ErrKeyFileEncrypted
	}
	groups, err := kms.keyGroups()
	if err != nil {
		return nil, err
	}
	store := jsonstore.NewBinaryStore(&config.JSONBinaryStoreConfig{})
	branches, err := store.LoadPlainFile(envelope)
	if err != nil {
		return nil, fmt.Errorf("load key envelope: %w", err)
	}
	tree := sopsapi.Tree{
		Branches: branches,
		Metadata: sopsapi.Metadata{
			KeyGroups: groups,
			Version:   version.Version,
		},
	}
	dataKey, errs := tree.GenerateDataKey()
	if len(errs) > 0 {
		return nil, fmt.Errorf("generate data key: %v", errs)
	}
	err = scommon.EncryptTree(scommon.EncryptTreeOpts{
		DataKey: dataKey,
		Tree:    &tree,
		Cipher:  aes.NewCipher(),
	})
	if err != nil {
		return nil, fmt.Errorf("encrypt key envelope: %w", err)
	}
	ret, err := store.EmitEncryptedFile(tree)
	if err != nil {
		return nil, fmt.Errorf("emit key file: %w", err)
	}
	return ret, nil
}

// openKeyFile returns the plain envelope of an encrypted signing key file
func openKeyFile(fileBytes []byte) ([]byte, error) {
	ret, err := decrypt.Data(fileBytes, sopsFormat)
	if err != nil {
		return nil, fmt.Errorf("decrypt key file: %w", err)
	}
	return ret, nil
}
