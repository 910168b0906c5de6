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

package script

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
)

const (
	HospitalValidatorTitle = "hospital.hospital_auth.mint"
	PatientValidatorTitle  = "patients.patient_campaign.spend"
)

var ErrAdminTokenNotConfigured = errors.New("admin token not configured")

// AdminToken is the asset that authorizes registrations
type AdminToken struct {
	PolicyId  lcommon.Blake2b224
	AssetName []byte
}

func (a AdminToken) ToPlutusData() data.PlutusData {
	return data.NewConstr(
		0,
		data.NewByteString(a.PolicyId.Bytes()),
		data.NewByteString(a.AssetName),
	)
}

func (a AdminToken) AssetID() chain.AssetID {
	return chain.AssetID{Policy: a.PolicyId, Name: a.AssetName}
}

// Registry is a resolved parameterized validator
type Registry struct {
	// Script is the CBOR wrapped applied program
	Script   []byte
	PolicyId lcommon.Blake2b224
	// Address is the enterprise script address. It is only set for spending
	// validators.
	Address *lcommon.Address
}

type LocatorConfig struct {
	Blueprint  *Blueprint
	AdminToken AdminToken
	Network    chain.Network
	Logger     *slog.Logger
}

// Locator derives the protocol scripts, policy ids and addresses. Results
// are computed once per Locator.
type Locator struct {
	config   LocatorConfig
	mutex    sync.Mutex
	hospital *Registry
	patient  *Registry
}

func NewLocator(cfg LocatorConfig) (*Locator, error) {
	if cfg.Blueprint == nil {
		return nil, errors.New("locator: blueprint not set")
	}
	if cfg.AdminToken.PolicyId == (lcommon.Blake2b224{}) {
		return nil, ErrAdminTokenNotConfigured
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Locator{config: cfg}, nil
}

func (l *Locator) Network() chain.Network {
	return l.config.Network
}

func (l *Locator) AdminToken() AdminToken {
	return l.config.AdminToken
}

// HospitalRegistry returns the hospital authorization minting policy
func (l *Locator) HospitalRegistry() (*Registry, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.hospitalRegistry()
}

func (l *Locator) hospitalRegistry() (*Registry, error) {
	if l.hospital != nil {
		return l.hospital, nil
	}
	compiled, err := l.config.Blueprint.CompiledCode(HospitalValidatorTitle)
	if err != nil {
		return nil, err
	}
	applied, err := ApplyParams(compiled, l.config.AdminToken.ToPlutusData())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", HospitalValidatorTitle, err)
	}
	l.hospital = &Registry{
		Script:   applied,
		PolicyId: Hash(applied),
	}
	l.config.Logger.Debug(
		"resolved hospital registry",
		"component", "script",
		"policy_id", l.hospital.PolicyId.String(),
	)
	return l.hospital, nil
}

// PatientRegistry returns the patient campaign validator, which is
// parameterized by the admin token and the hospital policy id
func (l *Locator) PatientRegistry() (*Registry, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.patient != nil {
		return l.patient, nil
	}
	hospital, err := l.hospitalRegistry()
	if err != nil {
		return nil, err
	}
	compiled, err := l.config.Blueprint.CompiledCode(PatientValidatorTitle)
	if err != nil {
		return nil, err
	}
	applied, err := ApplyParams(
		compiled,
		l.config.AdminToken.ToPlutusData(),
		data.NewByteString(hospital.PolicyId.Bytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PatientValidatorTitle, err)
	}
	hash := Hash(applied)
	addr, err := lcommon.NewAddressFromParts(
		lcommon.AddressTypeScriptNone,
		l.config.Network.NetworkId,
		hash.Bytes(),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: build address: %w", PatientValidatorTitle, err)
	}
	l.patient = &Registry{
		Script:   applied,
		PolicyId: hash,
		Address:  &addr,
	}
	l.config.Logger.Debug(
		"resolved patient registry",
		"component", "script",
		"policy_id", hash.String(),
		"address", addr.String(),
	)
	return l.patient, nil
}

// RegistryFor returns the registry whose policy mints tokens of the given
// kind
func (l *Locator) RegistryFor(kind datum.TokenKind) (*Registry, error) {
	switch kind {
	case datum.TokenKindHospital:
		return l.HospitalRegistry()
	case datum.TokenKindPatient:
		return l.PatientRegistry()
	}
	return nil, fmt.Errorf("no registry for token kind %s", kind)
}
