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

package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/medifund/medifund/internal/config"
	"github.com/medifund/medifund/keystore"
	"github.com/spf13/cobra"
)

type keyView struct {
	KeyHash string `json:"keyHash"`
	Address string `json:"address"`
	Skey    string `json:"skey,omitempty"`
	Vkey    string `json:"vkey,omitempty"`
}

func newKeyView(cfg *config.Config, key *keystore.PaymentKey) (*keyView, error) {
	network, err := cfg.NetworkInfo()
	if err != nil {
		return nil, err
	}
	addr, err := key.Address(network.NetworkId)
	if err != nil {
		return nil, err
	}
	return &keyView{
		KeyHash: key.KeyHash().String(),
		Address: addr.String(),
	}, nil
}

func keysCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the payment signing key",
	}
	cmd.AddCommand(keysGenerateCommand(), keysShowCommand())
	return cmd
}

func keysGenerateCommand() *cobra.Command {
	var outDir, name string
	var encrypt bool
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a payment key pair in cardano-cli envelope format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commonRun()
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			key, err := keystore.GeneratePaymentKey()
			if err != nil {
				return err
			}
			skey := filepath.Join(outDir, name+".skey")
			vkey := filepath.Join(outDir, name+".vkey")
			if err := key.WriteFiles(skey, vkey, encrypt); err != nil {
				return err
			}
			view, err := newKeyView(cfg, key)
			if err != nil {
				return err
			}
			view.Skey = skey
			view.Vkey = vkey
			return writeJSON(os.Stdout, view)
		},
	}
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for the key files")
	cmd.Flags().StringVar(&name, "name", "payment", "base name of the key files")
	cmd.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the signing key with SOPS using the configured KMS keys")
	return cmd
}

func keysShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the key hash and address of the configured signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			commonRun()
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			if cfg.SigningKeyFile == "" {
				return errors.New("signing key file not configured")
			}
			key, err := keystore.LoadPaymentKey(cfg.SigningKeyFile)
			if err != nil {
				return err
			}
			view, err := newKeyView(cfg, key)
			if err != nil {
				return err
			}
			view.Skey = cfg.SigningKeyFile
			return writeJSON(os.Stdout, view)
		},
	}
}
