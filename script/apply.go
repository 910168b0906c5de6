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

	"github.com/blinklabs-io/gouroboros/cbor"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
	"github.com/blinklabs-io/plutigo/data"
	"github.com/blinklabs-io/plutigo/syn"
)

// ApplyParams applies each parameter, in order, to a parameterized
// validator. compiledCode is the CBOR wrapped flat program as found in a
// blueprint, and the result is in the same form.
func ApplyParams(compiledCode []byte, params ...data.PlutusData) ([]byte, error) {
	var flat []byte
	if _, err := cbor.Decode(compiledCode, &flat); err != nil {
		return nil, fmt.Errorf("unwrap compiled code: %w", err)
	}
	if len(flat) == 0 {
		return nil, errors.New("empty compiled code")
	}
	if err := checkProgram(flat); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	args := make([][]byte, 0, len(params))
	for i, param := range params {
		arg, err := data.Encode(param)
		if err != nil {
			return nil, fmt.Errorf("encode parameter %d: %w", i, err)
		}
		args = append(args, arg)
	}
	applied, err := applyFlat(flat, args)
	if err != nil {
		return nil, fmt.Errorf("apply parameters: %w", err)
	}
	if err := checkProgram(applied); err != nil {
		return nil, fmt.Errorf("applied program: %w", err)
	}
	ret, err := cbor.Encode(applied)
	if err != nil {
		return nil, fmt.Errorf("wrap compiled code: %w", err)
	}
	return ret, nil
}

// checkProgram decodes a flat program, turning decoder panics into errors
func checkProgram(flat []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid program: %v", r)
		}
	}()
	_, err = syn.Decode[syn.DeBruijn](flat)
	return err
}

// Hash returns the PlutusV3 script hash of CBOR wrapped compiled code
func Hash(compiledCode []byte) lcommon.Blake2b224 {
	return lcommon.PlutusV3Script(compiledCode).Hash()
}
