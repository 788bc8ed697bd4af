// Copyright 2025 Poiesic Systems
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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/gamerec/core"
	"github.com/poiesic/gamerec/lexical"
)

type marshaler[T any] interface {
	Size(v T) int
	Marshal(v T, bs []byte) int
}

type unmarshaler[T any] interface {
	Unmarshal(bs []byte) (T, int, error)
}

// encoder appends MUS-encoded values to a growing buffer.
type encoder struct {
	buf []byte
}

func write[T any](e *encoder, m marshaler[T], v T) {
	start := len(e.buf)
	e.buf = append(e.buf, make([]byte, m.Size(v))...)
	m.Marshal(v, e.buf[start:])
}

func (e *encoder) length(n int) {
	write(e, varint.PositiveInt, n)
}

func (e *encoder) strings(ss []string) {
	e.length(len(ss))
	for _, s := range ss {
		write(e, ord.String, s)
	}
}

// decoder reads MUS-encoded values, stopping at the first error.
type decoder struct {
	bs  []byte
	off int
	err error
}

func read[T any](d *decoder, u unmarshaler[T]) T {
	var zero T
	if d.err != nil {
		return zero
	}
	v, n, err := u.Unmarshal(d.bs[d.off:])
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		return zero
	}
	d.off += n
	return v
}

// length reads a collection size and rejects sizes the remaining input
// could not possibly hold.
func (d *decoder) length() int {
	n := read(d, varint.PositiveInt)
	if d.err == nil && (n < 0 || n > len(d.bs)-d.off) {
		d.err = fmt.Errorf("%w: length %d exceeds %d remaining bytes", ErrTruncatedData, n, len(d.bs)-d.off)
		return 0
	}
	return n
}

func (d *decoder) strings() []string {
	n := d.length()
	if d.err != nil {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = read(d, ord.String)
	}
	return out
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.bs) {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(d.bs)-d.off)
	}
	return nil
}

// MarshalCorpusEntry serializes a CorpusEntry to bytes.
func MarshalCorpusEntry(entry core.CorpusEntry) []byte {
	e := &encoder{}
	write(e, ord.String, entry.Title)
	e.strings(entry.Tokens)
	return e.buf
}

// UnmarshalCorpusEntry deserializes a CorpusEntry from bytes.
func UnmarshalCorpusEntry(data []byte) (core.CorpusEntry, error) {
	d := &decoder{bs: data}
	entry := core.CorpusEntry{
		Title:  read(d, ord.String),
		Tokens: d.strings(),
	}
	if err := d.finish(); err != nil {
		return core.CorpusEntry{}, err
	}
	return entry, nil
}

// LexicalHeader is the persisted form of a lexical.Model.
type LexicalHeader struct {
	Terms       []string
	IDF         []float64
	SublinearTF bool
	Rows        int
}

// MarshalLexicalHeader serializes a LexicalHeader to bytes.
func MarshalLexicalHeader(h LexicalHeader) []byte {
	e := &encoder{}
	e.strings(h.Terms)
	e.length(len(h.IDF))
	for _, w := range h.IDF {
		write(e, raw.Float64, w)
	}
	write(e, ord.Bool, h.SublinearTF)
	e.length(h.Rows)
	return e.buf
}

// UnmarshalLexicalHeader deserializes a LexicalHeader from bytes.
func UnmarshalLexicalHeader(data []byte) (LexicalHeader, error) {
	d := &decoder{bs: data}
	var h LexicalHeader
	h.Terms = d.strings()
	n := d.length()
	if d.err == nil {
		h.IDF = make([]float64, n)
		for i := range h.IDF {
			h.IDF[i] = read(d, raw.Float64)
		}
	}
	h.SublinearTF = read(d, ord.Bool)
	h.Rows = read(d, varint.PositiveInt)
	if err := d.finish(); err != nil {
		return LexicalHeader{}, err
	}
	return h, nil
}

// MarshalLexicalRow serializes one sparse row to bytes. Indices are
// delta encoded since they are strictly increasing.
func MarshalLexicalRow(v lexical.Vector) []byte {
	e := &encoder{}
	e.length(len(v.Indices))
	prev := 0
	for k, idx := range v.Indices {
		write(e, varint.PositiveInt, idx-prev)
		write(e, raw.Float64, v.Values[k])
		prev = idx
	}
	return e.buf
}

// UnmarshalLexicalRow deserializes one sparse row from bytes.
func UnmarshalLexicalRow(data []byte) (lexical.Vector, error) {
	d := &decoder{bs: data}
	n := d.length()
	var v lexical.Vector
	if n > 0 {
		v.Indices = make([]int, n)
		v.Values = make([]float64, n)
		prev := 0
		for k := 0; k < n && d.err == nil; k++ {
			prev += read(d, varint.PositiveInt)
			v.Indices[k] = prev
			v.Values[k] = read(d, raw.Float64)
		}
	}
	if err := d.finish(); err != nil {
		return lexical.Vector{}, err
	}
	return v, nil
}

// SemanticHeader describes a stored semantic model.
type SemanticHeader struct {
	Words     int
	Dimension int
}

// MarshalSemanticHeader serializes a SemanticHeader to bytes.
func MarshalSemanticHeader(h SemanticHeader) []byte {
	e := &encoder{}
	e.length(h.Words)
	e.length(h.Dimension)
	return e.buf
}

// UnmarshalSemanticHeader deserializes a SemanticHeader from bytes.
func UnmarshalSemanticHeader(data []byte) (SemanticHeader, error) {
	d := &decoder{bs: data}
	h := SemanticHeader{
		Words:     read(d, varint.PositiveInt),
		Dimension: read(d, varint.PositiveInt),
	}
	if err := d.finish(); err != nil {
		return SemanticHeader{}, err
	}
	return h, nil
}

// WordVector is one stored semantic vocabulary entry.
type WordVector struct {
	Word   string
	Vector []float32
}

// MarshalWordVector serializes a WordVector to bytes.
func MarshalWordVector(wv WordVector) []byte {
	e := &encoder{}
	write(e, ord.String, wv.Word)
	e.length(len(wv.Vector))
	for _, x := range wv.Vector {
		write(e, raw.Float32, x)
	}
	return e.buf
}

// UnmarshalWordVector deserializes a WordVector from bytes.
func UnmarshalWordVector(data []byte) (WordVector, error) {
	d := &decoder{bs: data}
	var wv WordVector
	wv.Word = read(d, ord.String)
	n := d.length()
	if d.err == nil {
		wv.Vector = make([]float32, n)
		for i := range wv.Vector {
			wv.Vector[i] = read(d, raw.Float32)
		}
	}
	if err := d.finish(); err != nil {
		return WordVector{}, err
	}
	return wv, nil
}

// MarshalManifest serializes a Manifest to bytes. BuiltAt is stored
// with microsecond precision.
func MarshalManifest(m core.Manifest) []byte {
	e := &encoder{}
	write(e, varint.Uint64, uint64(m.Fingerprint))
	e.length(m.Entries)
	e.length(m.LexicalTerms)
	e.length(m.SemanticWords)
	e.length(m.Dimension)
	write(e, varint.Int64, m.BuiltAt.UnixMicro())
	return e.buf
}

// UnmarshalManifest deserializes a Manifest from bytes.
func UnmarshalManifest(data []byte) (core.Manifest, error) {
	d := &decoder{bs: data}
	m := core.Manifest{
		Fingerprint:   core.Fingerprint(read(d, varint.Uint64)),
		Entries:       read(d, varint.PositiveInt),
		LexicalTerms:  read(d, varint.PositiveInt),
		SemanticWords: read(d, varint.PositiveInt),
		Dimension:     read(d, varint.PositiveInt),
	}
	builtAt := read(d, varint.Int64)
	if err := d.finish(); err != nil {
		return core.Manifest{}, err
	}
	m.BuiltAt = time.UnixMicro(builtAt).UTC()
	return m, nil
}
