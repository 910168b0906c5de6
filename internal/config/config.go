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

package config

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"slices"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/kelseyhightower/envconfig"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/script"
	"github.com/medifund/medifund/txbuilder"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "medifund.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	ProviderUtxorpc    = "utxorpc"
	ProviderBlockfrost = "blockfrost"

	DefaultCachePlugin = "sqlite"
	envPrefix          = "medifund"
)

var (
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrInvalidAdminToken = errors.New("invalid admin token")
	ErrInvalidPrice      = errors.New("invalid execution price")
)

type ProtocolParamsConfig struct {
	MinFeeA           uint64 `yaml:"minFeeA"           split_words:"true"`
	MinFeeB           uint64 `yaml:"minFeeB"           split_words:"true"`
	CoinsPerUtxoByte  uint64 `yaml:"coinsPerUtxoByte"  split_words:"true"`
	PriceMem          string `yaml:"priceMem"          split_words:"true"`
	PriceStep         string `yaml:"priceStep"         split_words:"true"`
	CollateralPercent uint64 `yaml:"collateralPercent" split_words:"true"`
	MaxTxSize         uint64 `yaml:"maxTxSize"         split_words:"true"`
	// PlutusV3CostModel is taken from the provider when empty and the
	// provider can report it
	PlutusV3CostModel []int64 `yaml:"plutusV3CostModel" envconfig:"PLUTUS_V3_COST_MODEL"`
	// Fetch selects the provider's current parameters over the values above
	Fetch bool `yaml:"fetch"`
}

type ExUnitsConfig struct {
	SpendMemory uint64 `yaml:"spendMemory" split_words:"true"`
	SpendSteps  uint64 `yaml:"spendSteps"  split_words:"true"`
	MintMemory  uint64 `yaml:"mintMemory"  split_words:"true"`
	MintSteps   uint64 `yaml:"mintSteps"   split_words:"true"`
}

type Config struct {
	Network             string               `yaml:"network"`
	Provider            string               `yaml:"provider"`
	UtxorpcUrl          string               `yaml:"utxorpcUrl"          split_words:"true"`
	UtxorpcApiKey       string               `yaml:"utxorpcApiKey"       split_words:"true"`
	UtxorpcGrpc         bool                 `yaml:"utxorpcGrpc"         split_words:"true"`
	BlockfrostUrl       string               `yaml:"blockfrostUrl"       split_words:"true"`
	BlockfrostProjectId string               `yaml:"blockfrostProjectId" split_words:"true"`
	Blueprint           string               `yaml:"blueprint"`
	GcsCredentialsFile  string               `yaml:"gcsCredentialsFile"  split_words:"true"`
	AwsRegion           string               `yaml:"awsRegion"           split_words:"true"`
	AdminPolicyId       string               `yaml:"adminPolicyId"       split_words:"true"`
	AdminAssetName      string               `yaml:"adminAssetName"      split_words:"true"`
	SigningKeyFile      string               `yaml:"signingKeyFile"      split_words:"true"`
	CachePlugin         string               `yaml:"cachePlugin"         split_words:"true"`
	CacheDir            string               `yaml:"cacheDir"            split_words:"true"`
	MetricsPort         uint                 `yaml:"metricsPort"         split_words:"true"`
	Tracing             bool                 `yaml:"tracing"`
	TracingStdout       bool                 `yaml:"tracingStdout"       split_words:"true"`
	ProtocolParams      ProtocolParamsConfig `yaml:"protocolParams"      split_words:"true"`
	ExUnits             ExUnitsConfig        `yaml:"exUnits"             envconfig:"EX_UNITS"`
}

func defaultConfig() *Config {
	params := txbuilder.DefaultProtocolParams()
	return &Config{
		Network:        "preview",
		Provider:       ProviderUtxorpc,
		UtxorpcUrl:     "https://preview.utxorpc-v0.demeter.run",
		BlockfrostUrl:  "https://cardano-preview.blockfrost.io/api/v0",
		Blueprint:      "plutus.json",
		AdminAssetName: "ADMIN",
		CachePlugin:    DefaultCachePlugin,
		CacheDir:       ".medifund",
		ProtocolParams: ProtocolParamsConfig{
			MinFeeA:           params.MinFeeA,
			MinFeeB:           params.MinFeeB,
			CoinsPerUtxoByte:  params.CoinsPerUtxoByte,
			PriceMem:          params.PriceMem.RatString(),
			PriceStep:         params.PriceStep.RatString(),
			CollateralPercent: params.CollateralPercent,
			MaxTxSize:         params.MaxTxSize,
		},
		ExUnits: ExUnitsConfig{
			SpendMemory: txbuilder.DefaultSpendExUnits.Memory,
			SpendSteps:  txbuilder.DefaultSpendExUnits.Steps,
			MintMemory:  txbuilder.DefaultMintExUnits.Memory,
			MintSteps:   txbuilder.DefaultMintExUnits.Steps,
		},
	}
}

// LoadConfig reads the YAML config file over the defaults and then applies
// MEDIFUND_* environment variables. When configFile is empty,
// ~/.medifund/medifund.yaml and /etc/medifund/medifund.yaml are tried in
// that order.
func LoadConfig(configFile string) (*Config, error) {
	cfg := defaultConfig()
	if configFile == "" {
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".medifund", "medifund.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/medifund/medifund.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be defaulted
func (c *Config) Validate() error {
	if _, err := chain.NetworkByName(c.Network); err != nil {
		return err
	}
	if !slices.Contains([]string{ProviderUtxorpc, ProviderBlockfrost}, c.Provider) {
		return fmt.Errorf("%w: %q", ErrUnknownProvider, c.Provider)
	}
	if _, err := c.BuilderParams(); err != nil {
		return err
	}
	return nil
}

// NetworkInfo returns the configured network
func (c *Config) NetworkInfo() (chain.Network, error) {
	return chain.NetworkByName(c.Network)
}

// AdminToken decodes the admin policy id and the hex or plain text asset
// name
func (c *Config) AdminToken() (script.AdminToken, error) {
	policy, err := hex.DecodeString(c.AdminPolicyId)
	if err != nil || len(policy) != lcommon.Blake2b224Size {
		return script.AdminToken{}, fmt.Errorf(
			"%w: policy id %q",
			ErrInvalidAdminToken,
			c.AdminPolicyId,
		)
	}
	name, err := hex.DecodeString(c.AdminAssetName)
	if err != nil {
		name = []byte(c.AdminAssetName)
	}
	return script.AdminToken{
		PolicyId:  lcommon.NewBlake2b224(policy),
		AssetName: name,
	}, nil
}

// BuilderParams returns the configured protocol parameters
func (c *Config) BuilderParams() (txbuilder.ProtocolParams, error) {
	p := c.ProtocolParams
	priceMem, ok := new(big.Rat).SetString(p.PriceMem)
	if !ok || priceMem.Sign() < 0 {
		return txbuilder.ProtocolParams{}, fmt.Errorf("%w: priceMem %q", ErrInvalidPrice, p.PriceMem)
	}
	priceStep, ok := new(big.Rat).SetString(p.PriceStep)
	if !ok || priceStep.Sign() < 0 {
		return txbuilder.ProtocolParams{}, fmt.Errorf("%w: priceStep %q", ErrInvalidPrice, p.PriceStep)
	}
	return txbuilder.ProtocolParams{
		MinFeeA:           p.MinFeeA,
		MinFeeB:           p.MinFeeB,
		CoinsPerUtxoByte:  p.CoinsPerUtxoByte,
		PriceMem:          priceMem,
		PriceStep:         priceStep,
		CollateralPercent: p.CollateralPercent,
		MaxTxSize:         p.MaxTxSize,
		PlutusV3CostModel: slices.Clone(p.PlutusV3CostModel),
	}, nil
}

func (c *Config) SpendExUnits() txbuilder.ExUnits {
	return txbuilder.ExUnits{Memory: c.ExUnits.SpendMemory, Steps: c.ExUnits.SpendSteps}
}

func (c *Config) MintExUnits() txbuilder.ExUnits {
	return txbuilder.ExUnits{Memory: c.ExUnits.MintMemory, Steps: c.ExUnits.MintSteps}
}
