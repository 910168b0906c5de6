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


package testutil

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/script"
	"github.com/stretchr/testify/require"
)

// identityFlat is (program 1.1.0 (lam i_0 i_0)) in flat encoding
var identityFlat = []byte{0x01, 0x01, 0x00, 0x20, 0x01, 0x01}

// AdminToken returns the admin token used by Locator
func AdminToken() script.AdminToken {
	return script.AdminToken{
		PolicyId:  Hash224(0xad),
		AssetName: []byte("ADMIN"),
	}
}

// Blueprint returns a blueprint carrying both protocol validators, each
// compiled to the identity program
func Blueprint(t *testing.T) *script.Blueprint {
	t.Helper()
	code, err := cbor.Encode(identityFlat)
	require.NoError(t, err)
	var validators string
	for i, title := range []string{
		script.HospitalValidatorTitle,
		script.PatientValidatorTitle,
	} {
		if i > 0 {
			validators += ","
		}
		validators += fmt.Sprintf(
			`{"title":%q,"compiledCode":%q,"hash":""}`,
			title,
			hex.EncodeToString(code),
		)
	}
	ret, err := script.ParseBlueprint(fmt.Appendf(
		nil,
		`{"preamble":{"title":"medifund/contracts","version":"0.0.0","plutusVersion":"v3"},"validators":[%s]}`,
		validators,
	))
	require.NoError(t, err)
	return ret
}

// Locator returns a script locator over Blueprint on the preview network
func Locator(t *testing.T) *script.Locator {
	t.Helper()
	ret, err := script.NewLocator(script.LocatorConfig{
		Blueprint:  Blueprint(t),
		AdminToken: AdminToken(),
		Network:    chain.NetworkPreview,
	})
	require.NoError(t, err)
	return ret
}
