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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medifund/medifund/blockfrost"
	"github.com/medifund/medifund/cache"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/internal/config"
	"github.com/medifund/medifund/keystore"
	"github.com/medifund/medifund/query"
	"github.com/medifund/medifund/script"
	"github.com/medifund/medifund/txbuilder"
	"github.com/medifund/medifund/utxorpc"
	"github.com/medifund/medifund/wallet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// app holds the components shared by the subcommands
type app struct {
	cfg           *config.Config
	logger        *slog.Logger
	network       chain.Network
	provider      chain.Provider
	locator       *script.Locator
	cache         *cache.Cache
	scanner       *query.Scanner
	promRegistry  *prometheus.Registry
	shutdownFuncs []func(context.Context) error
}

// appFromCommand runs the common setup and builds the app from the config
// stored in the command context
func appFromCommand(cmd *cobra.Command) (*app, error) {
	logger := commonRun()
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, errors.New("no config found in context")
	}
	return newApp(cmd.Context(), cfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:          cfg,
		logger:       logger,
		promRegistry: prometheus.NewRegistry(),
	}
	logger.Debug(fmt.Sprintf("config: %+v", redacted(cfg)), "component", programName)
	network, err := cfg.NetworkInfo()
	if err != nil {
		return nil, err
	}
	a.network = network
	if cfg.Tracing {
		shutdown, err := setupTracing(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.shutdownFuncs = append(a.shutdownFuncs, shutdown)
	}
	a.promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if cfg.MetricsPort > 0 {
		shutdown, err := startMetricsServer(cfg.MetricsPort, a.promRegistry, logger)
		if err != nil {
			a.close()
			return nil, err
		}
		a.shutdownFuncs = append(a.shutdownFuncs, shutdown)
	}
	if err := a.setup(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) setup(ctx context.Context) error {
	provider, err := newProvider(a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.provider = provider
	blueprint, err := script.LoadBlueprint(
		ctx,
		a.cfg.Blueprint,
		script.WithGcsCredentialsFile(a.cfg.GcsCredentialsFile),
		script.WithAwsRegion(a.cfg.AwsRegion),
	)
	if err != nil {
		return err
	}
	adminToken, err := a.cfg.AdminToken()
	if err != nil {
		return err
	}
	a.locator, err = script.NewLocator(script.LocatorConfig{
		Blueprint:  blueprint,
		AdminToken: adminToken,
		Network:    a.network,
		Logger:     a.logger,
	})
	if err != nil {
		return err
	}
	store, err := cache.NewStore(a.cfg.CachePlugin, cache.StoreConfig{
		DataDir:      a.cfg.CacheDir,
		Logger:       a.logger,
		PromRegistry: a.promRegistry,
	})
	if err != nil {
		return err
	}
	a.shutdownFuncs = append(a.shutdownFuncs, func(context.Context) error {
		return store.Close()
	})
	a.cache, err = cache.New(cache.Config{
		Store:        store,
		Provider:     a.provider,
		Logger:       a.logger,
		PromRegistry: a.promRegistry,
	})
	if err != nil {
		return err
	}
	a.scanner, err = query.NewScanner(query.ScannerConfig{
		Provider:     a.provider,
		Locator:      a.locator,
		Cache:        a.cache,
		Logger:       a.logger,
		PromRegistry: a.promRegistry,
	})
	return err
}

func newProvider(cfg *config.Config, logger *slog.Logger) (chain.Provider, error) {
	switch cfg.Provider {
	case config.ProviderBlockfrost:
		return blockfrost.NewProvider(blockfrost.ProviderConfig{
			Logger:    logger,
			Url:       cfg.BlockfrostUrl,
			ProjectId: cfg.BlockfrostProjectId,
		})
	case config.ProviderUtxorpc:
		return utxorpc.NewProvider(utxorpc.ProviderConfig{
			Logger: logger,
			Url:    cfg.UtxorpcUrl,
			ApiKey: cfg.UtxorpcApiKey,
			Grpc:   cfg.UtxorpcGrpc,
		})
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.Provider)
	}
}

// protocolParams returns the configured parameters, or the provider's
// current ones when fetching is enabled and supported
func (a *app) protocolParams(ctx context.Context) (txbuilder.ProtocolParams, error) {
	params, err := a.cfg.BuilderParams()
	if err != nil {
		return txbuilder.ProtocolParams{}, err
	}
	if !a.cfg.ProtocolParams.Fetch {
		return params, nil
	}
	bf, ok := a.provider.(*blockfrost.Provider)
	if !ok {
		a.logger.Warn(
			"provider cannot report protocol parameters, using configured values",
			"component", programName,
			"provider", a.cfg.Provider,
		)
		return params, nil
	}
	resp, err := bf.FetchProtocolParams(ctx)
	if err != nil {
		return txbuilder.ProtocolParams{}, err
	}
	fetched, err := resp.ProtocolParams()
	if err != nil {
		return txbuilder.ProtocolParams{}, fmt.Errorf("protocol parameters: %w", err)
	}
	if fetched.CollateralPercent == 0 {
		fetched.CollateralPercent = params.CollateralPercent
	}
	if len(fetched.PlutusV3CostModel) == 0 {
		fetched.PlutusV3CostModel = params.PlutusV3CostModel
	}
	a.logger.Debug(
		"using provider protocol parameters",
		"component", programName,
		"epoch", resp.Epoch,
	)
	return fetched, nil
}

func (a *app) builder(ctx context.Context) (*txbuilder.Builder, error) {
	params, err := a.protocolParams(ctx)
	if err != nil {
		return nil, err
	}
	return txbuilder.NewBuilder(txbuilder.Config{
		Locator:      a.locator,
		Provider:     a.provider,
		Scanner:      a.scanner,
		Params:       params,
		SpendExUnits: a.cfg.SpendExUnits(),
		MintExUnits:  a.cfg.MintExUnits(),
		Logger:       a.logger,
		PromRegistry: a.promRegistry,
	})
}

func (a *app) wallet() (*wallet.KeyWallet, error) {
	if a.cfg.SigningKeyFile == "" {
		return nil, errors.New("signing key file not configured")
	}
	key, err := keystore.LoadPaymentKey(a.cfg.SigningKeyFile)
	if err != nil {
		return nil, err
	}
	return wallet.NewKeyWallet(wallet.KeyWalletConfig{
		Key:       key,
		NetworkId: a.network.NetworkId,
		Provider:  a.provider,
	})
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.shutdownFuncs) - 1; i >= 0; i-- {
		if err := a.shutdownFuncs[i](ctx); err != nil {
			a.logger.Error("shutdown error", "component", programName, "error", err)
		}
	}
	a.shutdownFuncs = nil
}

// redacted returns a copy of the config without credentials
func redacted(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.UtxorpcApiKey != "" {
		ret.UtxorpcApiKey = "<redacted>"
	}
	if ret.BlockfrostProjectId != "" {
		ret.BlockfrostProjectId = "<redacted>"
	}
	return ret
}
