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
)

// Flat term tags (4 bits each)
const (
	termVar      = 0
	termDelay    = 1
	termLambda   = 2
	termApply    = 3
	termConstant = 4
	termForce    = 5
	termError    = 6
	termBuiltin  = 7
	termConstr   = 8
	termCase     = 9
)

// Flat constant type tags (4 bits each)
const (
	typeInteger    = 0
	typeByteString = 1
	typeString     = 2
	typeUnit       = 3
	typeBool       = 4
	typeList       = 5
	typePair       = 6
	typeApply      = 7
	typeData       = 8
)

const (
	termTagBits    = 4
	typeTagBits    = 4
	builtinTagBits = 7
	maxChunkSize   = 255
)

var errFlatTruncated = errors.New("flat: unexpected end of input")

type bitReader struct {
	buf []byte
	pos int
}

func (r *bitReader) bit() (bool, error) {
	if r.pos >= len(r.buf)*8 {
		return false, errFlatTruncated
	}
	b := r.buf[r.pos/8]&(0x80>>(r.pos%8)) != 0
	r.pos++
	return b, nil
}

func (r *bitReader) bits(n int) (uint, error) {
	var ret uint
	for range n {
		b, err := r.bit()
		if err != nil {
			return 0, err
		}
		ret <<= 1
		if b {
			ret |= 1
		}
	}
	return ret, nil
}

func (r *bitReader) skip(n int) error {
	if r.pos+n > len(r.buf)*8 {
		return errFlatTruncated
	}
	r.pos += n
	return nil
}

// skipNatural skips a variable length natural made of 7 bit groups, each
// preceded by a continuation bit
func (r *bitReader) skipNatural() error {
	for {
		more, err := r.bit()
		if err != nil {
			return err
		}
		if err := r.skip(7); err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// skipFiller skips the 0* 1 padding that aligns to the next byte
func (r *bitReader) skipFiller() error {
	for {
		b, err := r.bit()
		if err != nil {
			return err
		}
		if b {
			if r.pos%8 != 0 {
				return errors.New("flat: misaligned filler")
			}
			return nil
		}
	}
}

func (r *bitReader) skipBytes() error {
	if err := r.skipFiller(); err != nil {
		return err
	}
	for {
		n, err := r.bits(8)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		if err := r.skip(int(n) * 8); err != nil {
			return err
		}
	}
}

// skipList skips a list whose items are each preceded by a 1 bit
func (r *bitReader) skipList(item func() error) error {
	for {
		more, err := r.bit()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if err := item(); err != nil {
			return err
		}
	}
}

func (r *bitReader) skipTerm() error {
	tag, err := r.bits(termTagBits)
	if err != nil {
		return err
	}
	switch tag {
	case termVar:
		return r.skipNatural()
	case termDelay, termLambda, termForce:
		return r.skipTerm()
	case termApply:
		if err := r.skipTerm(); err != nil {
			return err
		}
		return r.skipTerm()
	case termConstant:
		return r.skipConstant()
	case termError:
		return nil
	case termBuiltin:
		return r.skip(builtinTagBits)
	case termConstr:
		if err := r.skipNatural(); err != nil {
			return err
		}
		return r.skipList(r.skipTerm)
	case termCase:
		if err := r.skipTerm(); err != nil {
			return err
		}
		return r.skipList(r.skipTerm)
	default:
		return fmt.Errorf("flat: unknown term tag %d", tag)
	}
}

func (r *bitReader) skipConstant() error {
	var tags []uint
	err := r.skipList(func() error {
		tag, err := r.bits(typeTagBits)
		tags = append(tags, tag)
		return err
	})
	if err != nil {
		return err
	}
	rest, err := r.skipValue(tags)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return errors.New("flat: trailing constant type tags")
	}
	return nil
}

// skipValue skips a constant of the type at the head of tags and returns
// the unused tags
func (r *bitReader) skipValue(tags []uint) ([]uint, error) {
	if len(tags) == 0 {
		return nil, errors.New("flat: missing constant type")
	}
	switch tags[0] {
	case typeInteger:
		return tags[1:], r.skipNatural()
	case typeByteString, typeString, typeData:
		return tags[1:], r.skipBytes()
	case typeUnit:
		return tags[1:], nil
	case typeBool:
		return tags[1:], r.skip(1)
	case typeApply:
		return r.skipApplied(tags[1:])
	default:
		return nil, fmt.Errorf("flat: unsupported constant type %d", tags[0])
	}
}

// skipApplied handles the list and pair type constructors
func (r *bitReader) skipApplied(tags []uint) ([]uint, error) {
	if len(tags) > 0 && tags[0] == typeList {
		elem := tags[1:]
		var rest []uint
		var err error
		rest, err = typeSpan(elem)
		if err != nil {
			return nil, err
		}
		err = r.skipList(func() error {
			_, err := r.skipValue(elem)
			return err
		})
		return rest, err
	}
	if len(tags) > 1 && tags[0] == typeApply && tags[1] == typePair {
		second, err := r.skipValue(tags[2:])
		if err != nil {
			return nil, err
		}
		return r.skipValue(second)
	}
	return nil, errors.New("flat: malformed type application")
}

// typeSpan returns the tags that follow the first complete type
func typeSpan(tags []uint) ([]uint, error) {
	if len(tags) == 0 {
		return nil, errors.New("flat: missing constant type")
	}
	switch tags[0] {
	case typeInteger, typeByteString, typeString, typeUnit, typeBool, typeData:
		return tags[1:], nil
	case typeApply:
		if len(tags) > 1 && tags[1] == typeList {
			return typeSpan(tags[2:])
		}
		if len(tags) > 2 && tags[1] == typeApply && tags[2] == typePair {
			rest, err := typeSpan(tags[3:])
			if err != nil {
				return nil, err
			}
			return typeSpan(rest)
		}
	}
	return nil, fmt.Errorf("flat: unsupported constant type %d", tags[0])
}

type bitWriter struct {
	buf   []byte
	nbits int
}

func (w *bitWriter) bit(b bool) {
	if w.nbits%8 == 0 {
		w.buf = append(w.buf, 0)
	}
	if b {
		w.buf[len(w.buf)-1] |= 0x80 >> (w.nbits % 8)
	}
	w.nbits++
}

func (w *bitWriter) bits(v uint, n int) {
	for i := n - 1; i >= 0; i-- {
		w.bit(v&(1<<i) != 0)
	}
}

// copyBits appends the bits [from, to) of src
func (w *bitWriter) copyBits(src []byte, from int, to int) {
	for i := from; i < to; i++ {
		w.bit(src[i/8]&(0x80>>(i%8)) != 0)
	}
}

func (w *bitWriter) filler() {
	for w.nbits%8 != 7 {
		w.bit(false)
	}
	w.bit(true)
}

// byteString writes a byte aligned string in chunks of at most 255 bytes
func (w *bitWriter) byteString(b []byte) {
	w.filler()
	for len(b) > 0 {
		n := min(len(b), maxChunkSize)
		w.buf = append(w.buf, byte(n))
		w.buf = append(w.buf, b[:n]...)
		w.nbits += (n + 1) * 8
		b = b[n:]
	}
	w.buf = append(w.buf, 0)
	w.nbits += 8
}

// dataConstant writes a Data constant given its CBOR encoding
func (w *bitWriter) dataConstant(cborData []byte) {
	w.bits(termConstant, termTagBits)
	w.bit(true)
	w.bits(typeData, typeTagBits)
	w.bit(false)
	w.byteString(cborData)
}

// applyFlat wraps the term of a flat program in one application per
// argument, in order, and returns the new program
func applyFlat(program []byte, args [][]byte) ([]byte, error) {
	r := &bitReader{buf: program}
	// version major.minor.patch
	for range 3 {
		if err := r.skipNatural(); err != nil {
			return nil, fmt.Errorf("read version: %w", err)
		}
	}
	versionEnd := r.pos
	if err := r.skipTerm(); err != nil {
		return nil, err
	}
	termEnd := r.pos
	if err := r.skipFiller(); err != nil {
		return nil, err
	}
	if r.pos != len(program)*8 {
		return nil, errors.New("flat: trailing data after program")
	}
	w := &bitWriter{}
	w.copyBits(program, 0, versionEnd)
	for range args {
		w.bits(termApply, termTagBits)
	}
	w.copyBits(program, versionEnd, termEnd)
	for _, arg := range args {
		w.dataConstant(arg)
	}
	w.filler()
	return w.buf, nil
}
