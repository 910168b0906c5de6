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

package datum

import (
	"fmt"
	"math"
	"math/big"

	"github.com/blinklabs-io/plutigo/data"
)

func uintData(v uint64) data.PlutusData {
	return data.NewInteger(new(big.Int).SetUint64(v))
}

func intData(v int64) data.PlutusData {
	return data.NewInteger(big.NewInt(v))
}

func bytesData(b []byte) data.PlutusData {
	if b == nil {
		b = []byte{}
	}
	return data.NewByteString(b)
}

// boolData encodes a Plutus Bool (False = Constr 0, True = Constr 1)
func boolData(v bool) data.PlutusData {
	if v {
		return data.NewConstr(1)
	}
	return data.NewConstr(0)
}

// optionData encodes an Option<Int> (Some = Constr 0 [v], None = Constr 1 [])
func optionData(v *int64) data.PlutusData {
	if v == nil {
		return data.NewConstr(1)
	}
	return data.NewConstr(0, intData(*v))
}

func asConstr(pd data.PlutusData, tag uint, numFields int) (*data.Constr, error) {
	c, ok := pd.(*data.Constr)
	if !ok {
		return nil, fmt.Errorf("expected constructor, got %T", pd)
	}
	if c.Tag != tag {
		return nil, fmt.Errorf("expected constructor %d, got %d", tag, c.Tag)
	}
	if numFields >= 0 && len(c.Fields) != numFields {
		return nil, fmt.Errorf(
			"constructor %d: expected %d fields, got %d",
			tag,
			numFields,
			len(c.Fields),
		)
	}
	return c, nil
}

func asBigInt(pd data.PlutusData) (*big.Int, error) {
	i, ok := pd.(*data.Integer)
	if !ok || i.Inner == nil {
		return nil, fmt.Errorf("expected integer, got %T", pd)
	}
	return i.Inner, nil
}

func asUint(pd data.PlutusData) (uint64, error) {
	i, err := asBigInt(pd)
	if err != nil {
		return 0, err
	}
	if i.Sign() < 0 || !i.IsUint64() {
		return 0, fmt.Errorf("integer out of range: %s", i.String())
	}
	return i.Uint64(), nil
}

func asInt(pd data.PlutusData) (int64, error) {
	i, err := asBigInt(pd)
	if err != nil {
		return 0, err
	}
	if !i.IsInt64() {
		return 0, fmt.Errorf("integer out of range: %s", i.String())
	}
	return i.Int64(), nil
}

func asBytes(pd data.PlutusData) ([]byte, error) {
	b, ok := pd.(*data.ByteString)
	if !ok {
		return nil, fmt.Errorf("expected bytestring, got %T", pd)
	}
	return b.Inner, nil
}

func asBool(pd data.PlutusData) (bool, error) {
	c, ok := pd.(*data.Constr)
	if !ok || len(c.Fields) != 0 {
		return false, fmt.Errorf("expected bool constructor, got %T", pd)
	}
	switch c.Tag {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid bool constructor %d", c.Tag)
	}
}

func asOption(pd data.PlutusData) (*int64, error) {
	c, ok := pd.(*data.Constr)
	if !ok {
		return nil, fmt.Errorf("expected option constructor, got %T", pd)
	}
	switch c.Tag {
	case 0:
		if len(c.Fields) != 1 {
			return nil, fmt.Errorf("Some: expected 1 field, got %d", len(c.Fields))
		}
		v, err := asInt(c.Fields[0])
		if err != nil {
			return nil, err
		}
		return &v, nil
	case 1:
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid option constructor %d", c.Tag)
	}
}

func asList(pd data.PlutusData) ([]data.PlutusData, error) {
	l, ok := pd.(*data.List)
	if !ok {
		return nil, fmt.Errorf("expected list, got %T", pd)
	}
	return l.Items, nil
}

// clampUint converts a float to a lovelace-style integer, rejecting values
// that cannot be represented
func clampUint(v float64) (uint64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 ||
		v >= float64(math.MaxUint64) {
		return 0, false
	}
	return uint64(v), true
}

func clampInt(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < math.MinInt64 ||
		v >= float64(math.MaxInt64) {
		return 0, false
	}
	return int64(v), true
}
