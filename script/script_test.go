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
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/blinklabs-io/plutigo/syn"
	"github.com/medifund/medifund/chain"
	"github.com/medifund/medifund/datum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityFlat is (program 1.1.0 (lam i_0 i_0)) in flat encoding
var identityFlat = []byte{0x01, 0x01, 0x00, 0x20, 0x01, 0x01}

func identityCompiledCode(t *testing.T) []byte {
	t.Helper()
	ret, err := cbor.Encode(identityFlat)
	require.NoError(t, err)
	return ret
}

func testAdminToken() AdminToken {
	return AdminToken{
		PolicyId:  lcommon.NewBlake2b224(bytes.Repeat([]byte{0xad}, 28)),
		AssetName: []byte("ADMIN"),
	}
}

func testBlueprintJSON(t *testing.T, titles ...string) []byte {
	t.Helper()
	code := hex.EncodeToString(identityCompiledCode(t))
	var validators string
	for i, title := range titles {
		if i > 0 {
			validators += ","
		}
		validators += fmt.Sprintf(
			`{"title":%q,"compiledCode":%q,"hash":""}`,
			title,
			code,
		)
	}
	return fmt.Appendf(
		nil,
		`{"preamble":{"title":"medifund/contracts","version":"0.0.0","plutusVersion":"v3"},"validators":[%s]}`,
		validators,
	)
}

func TestApplyParams(t *testing.T) {
	compiled := identityCompiledCode(t)
	param := data.NewConstr(0, data.NewByteString([]byte("x")))
	applied, err := ApplyParams(compiled, param)
	require.NoError(t, err)
	assert.NotEqual(t, compiled, applied)

	again, err := ApplyParams(compiled, param)
	require.NoError(t, err)
	assert.Equal(t, applied, again)
	assert.Equal(t, Hash(applied), Hash(again))

	var flat []byte
	_, err = cbor.Decode(applied, &flat)
	require.NoError(t, err)
	program, err := syn.Decode[syn.DeBruijn](flat)
	require.NoError(t, err)
	app, ok := program.Term.(*syn.Apply[syn.DeBruijn])
	require.True(t, ok)
	constant, ok := app.Argument.(*syn.Constant)
	require.True(t, ok)
	inner, ok := constant.Con.(*syn.Data)
	require.True(t, ok)
	want, err := data.Encode(param)
	require.NoError(t, err)
	got, err := data.Encode(inner.Inner)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := ApplyParams(compiled, data.NewConstr(1))
	require.NoError(t, err)
	assert.NotEqual(t, Hash(applied), Hash(other))
}

func TestApplyParamsFlatLayout(t *testing.T) {
	param := data.NewInteger(big.NewInt(42))
	applied, err := ApplyParams(identityCompiledCode(t), param)
	require.NoError(t, err)
	var flat []byte
	_, err = cbor.Decode(applied, &flat)
	require.NoError(t, err)
	enc, err := data.Encode(param)
	require.NoError(t, err)
	// version, apply, lam, var 1, constant [data], filler, chunk, end, filler
	expected := []byte{0x01, 0x01, 0x00, 0x32, 0x00, 0x14, 0xc1, byte(len(enc))}
	expected = append(expected, enc...)
	expected = append(expected, 0x00, 0x01)
	assert.Equal(t, expected, flat)
}

func TestApplyParamsLargeParameter(t *testing.T) {
	large := data.NewByteString(bytes.Repeat([]byte{0x5a}, 600))
	applied, err := ApplyParams(
		identityCompiledCode(t),
		testAdminToken().ToPlutusData(),
		large,
	)
	require.NoError(t, err)
	var flat []byte
	_, err = cbor.Decode(applied, &flat)
	require.NoError(t, err)
	program, err := syn.Decode[syn.DeBruijn](flat)
	require.NoError(t, err)
	outer, ok := program.Term.(*syn.Apply[syn.DeBruijn])
	require.True(t, ok)
	_, ok = outer.Function.(*syn.Apply[syn.DeBruijn])
	assert.True(t, ok)
}

// writeNat writes a natural below 128
func writeNat(w *bitWriter, v uint) {
	w.bits(v, 8)
}

func TestApplyFlatSkipsTerms(t *testing.T) {
	// (case (constr 0 [(con (pair integer string) (5, "hi"))])
	//   (lam (force (delay (builtin 0)))) (error)
	//   (con (list integer) [1, -2]) (con bool True) (con unit ()))
	term := func(w *bitWriter) {
		w.bits(termCase, termTagBits)
		w.bits(termConstr, termTagBits)
		writeNat(w, 0)
		w.bit(true)
		w.bits(termConstant, termTagBits)
		for _, tag := range []uint{typeApply, typeApply, typePair, typeInteger, typeString} {
			w.bit(true)
			w.bits(tag, typeTagBits)
		}
		w.bit(false)
		writeNat(w, 10)
		w.byteString([]byte("hi"))
		w.bit(false)
		// case branches
		w.bit(true)
		w.bits(termLambda, termTagBits)
		w.bits(termForce, termTagBits)
		w.bits(termDelay, termTagBits)
		w.bits(termBuiltin, termTagBits)
		w.bits(0, builtinTagBits)
		w.bit(true)
		w.bits(termError, termTagBits)
		w.bit(true)
		w.bits(termConstant, termTagBits)
		for _, tag := range []uint{typeApply, typeList, typeInteger} {
			w.bit(true)
			w.bits(tag, typeTagBits)
		}
		w.bit(false)
		w.bit(true)
		writeNat(w, 2)
		w.bit(true)
		writeNat(w, 3)
		w.bit(false)
		w.bit(true)
		w.bits(termConstant, termTagBits)
		w.bit(true)
		w.bits(typeBool, typeTagBits)
		w.bit(false)
		w.bit(true)
		w.bit(true)
		w.bits(termConstant, termTagBits)
		w.bit(true)
		w.bits(typeUnit, typeTagBits)
		w.bit(false)
		w.bit(false)
	}
	version := func(w *bitWriter) {
		writeNat(w, 1)
		writeNat(w, 1)
		writeNat(w, 0)
	}
	program := &bitWriter{}
	version(program)
	term(program)
	program.filler()

	args := [][]byte{{0x01}, {0x02, 0x03}}
	expected := &bitWriter{}
	version(expected)
	expected.bits(termApply, termTagBits)
	expected.bits(termApply, termTagBits)
	term(expected)
	expected.dataConstant(args[0])
	expected.dataConstant(args[1])
	expected.filler()

	applied, err := applyFlat(program.buf, args)
	require.NoError(t, err)
	assert.Equal(t, expected.buf, applied)

	_, err = applyFlat(program.buf[:len(program.buf)-2], args)
	require.Error(t, err)
	_, err = applyFlat(append(program.buf, 0x01), args)
	require.Error(t, err)
}

func TestApplyParamsInvalid(t *testing.T) {
	_, err := ApplyParams([]byte{0xff})
	require.Error(t, err)
	empty, err := cbor.Encode([]byte{})
	require.NoError(t, err)
	_, err = ApplyParams(empty)
	require.Error(t, err)
}

func TestLoadBlueprintFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plutus.json")
	require.NoError(t, os.WriteFile(
		path,
		testBlueprintJSON(t, HospitalValidatorTitle, PatientValidatorTitle),
		0o600,
	))
	bp, err := LoadBlueprint(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "v3", bp.Preamble.PlutusVersion)
	assert.Len(t, bp.Validators, 2)
	_, err = bp.Validator("missing.validator.spend")
	require.ErrorIs(t, err, ErrValidatorNotFound)

	_, err = LoadBlueprint(context.Background(), filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestSplitBucketURI(t *testing.T) {
	bucket, key, err := splitBucketURI("gcs://artifacts/contracts/plutus.json", gcsPrefix)
	require.NoError(t, err)
	assert.Equal(t, "artifacts", bucket)
	assert.Equal(t, "contracts/plutus.json", key)
	_, _, err = splitBucketURI("s3://artifacts", s3Prefix)
	require.Error(t, err)
}

func TestLocator(t *testing.T) {
	bp, err := ParseBlueprint(
		testBlueprintJSON(t, HospitalValidatorTitle, PatientValidatorTitle),
	)
	require.NoError(t, err)
	locator, err := NewLocator(LocatorConfig{
		Blueprint:  bp,
		AdminToken: testAdminToken(),
		Network:    chain.NetworkPreprod,
	})
	require.NoError(t, err)

	hospital, err := locator.HospitalRegistry()
	require.NoError(t, err)
	assert.Nil(t, hospital.Address)
	assert.Equal(t, Hash(hospital.Script), hospital.PolicyId)

	patient, err := locator.PatientRegistry()
	require.NoError(t, err)
	require.NotNil(t, patient.Address)
	assert.NotEqual(t, hospital.PolicyId, patient.PolicyId)
	assert.Equal(t, uint(chain.NetworkIdTestnet), patient.Address.NetworkId())
	assert.Equal(t, uint8(lcommon.AddressTypeScriptNone), patient.Address.Type())

	again, err := locator.PatientRegistry()
	require.NoError(t, err)
	assert.Same(t, patient, again)

	viaKind, err := locator.RegistryFor(datum.TokenKindHospital)
	require.NoError(t, err)
	assert.Same(t, hospital, viaKind)
}

func TestLocatorMissingValidator(t *testing.T) {
	bp, err := ParseBlueprint(testBlueprintJSON(t, HospitalValidatorTitle))
	require.NoError(t, err)
	locator, err := NewLocator(LocatorConfig{
		Blueprint:  bp,
		AdminToken: testAdminToken(),
		Network:    chain.NetworkMainnet,
	})
	require.NoError(t, err)
	_, err = locator.HospitalRegistry()
	require.NoError(t, err)
	_, err = locator.PatientRegistry()
	require.ErrorIs(t, err, ErrValidatorNotFound)
}

func TestNewLocatorRequiresAdminToken(t *testing.T) {
	bp, err := ParseBlueprint(testBlueprintJSON(t, HospitalValidatorTitle))
	require.NoError(t, err)
	_, err = NewLocator(LocatorConfig{Blueprint: bp})
	require.ErrorIs(t, err, ErrAdminTokenNotConfigured)
}
