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
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/deft/core"
)

// encoder writes mus-go primitives into buf. With a nil buf it only
// accumulates the encoded size, so the same field sequence serves both passes.
type encoder struct {
	buf []byte
	off int
}

func encode(fn func(*encoder)) []byte {
	var sizer encoder
	fn(&sizer)
	e := &encoder{buf: make([]byte, sizer.off)}
	fn(e)
	return e.buf
}

func (e *encoder) string(s string) {
	if e.buf == nil {
		e.off += ord.String.Size(s)
		return
	}
	e.off += ord.String.Marshal(s, e.buf[e.off:])
}

func (e *encoder) int(v int) {
	if e.buf == nil {
		e.off += varint.Int.Size(v)
		return
	}
	e.off += varint.Int.Marshal(v, e.buf[e.off:])
}

func (e *encoder) uint64(v uint64) {
	if e.buf == nil {
		e.off += varint.Uint64.Size(v)
		return
	}
	e.off += varint.Uint64.Marshal(v, e.buf[e.off:])
}

func (e *encoder) float32(v float32) {
	if e.buf == nil {
		e.off += raw.Float32.Size(v)
		return
	}
	e.off += raw.Float32.Marshal(v, e.buf[e.off:])
}

func (e *encoder) time(t time.Time) {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	if e.buf == nil {
		e.off += varint.Int64.Size(micros)
		return
	}
	e.off += varint.Int64.Marshal(micros, e.buf[e.off:])
}

// decoder reads mus-go primitives from buf. The first error sticks; later
// reads return zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.buf[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.buf[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) uint64() uint64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint64.Unmarshal(d.buf[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) float32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := raw.Float32.Unmarshal(d.buf[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) time() time.Time {
	if d.err != nil {
		return time.Time{}
	}
	micros, n, err := varint.Int64.Unmarshal(d.buf[d.off:])
	d.off += n
	d.err = err
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

// length reads a collection length. Every element takes at least one byte,
// so a length beyond the remaining input means the data is truncated.
func (d *decoder) length() int {
	n := d.int()
	if d.err == nil && (n < 0 || n > len(d.buf)-d.off) {
		d.err = fmt.Errorf("%w: length %d with %d bytes left", ErrTruncatedData, n, len(d.buf)-d.off)
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *decoder) finish(what string) error {
	if d.err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, d.err)
	}
	return nil
}

func MarshalID(id core.ID) []byte {
	return encode(func(e *encoder) { e.uint64(uint64(id)) })
}

func UnmarshalID(data []byte) (core.ID, error) {
	d := &decoder{buf: data}
	id := core.ID(d.uint64())
	return id, d.finish("id")
}

func MarshalTerm(term *core.Term) []byte {
	return encode(func(e *encoder) {
		e.string(string(term.Id))
		e.string(term.Label)
		e.int(len(term.Synonyms))
		for _, s := range term.Synonyms {
			e.string(s.Name)
			e.int(int(s.Category))
			e.int(int(s.Type))
		}
		e.int(len(term.Parents))
		for _, p := range term.Parents {
			e.string(string(p))
		}
	})
}

func UnmarshalTerm(data []byte) (*core.Term, error) {
	d := &decoder{buf: data}
	term := &core.Term{
		Id:    core.Identifier(d.string()),
		Label: d.string(),
	}
	if n := d.length(); n > 0 {
		term.Synonyms = make([]core.Synonym, n)
		for i := range term.Synonyms {
			term.Synonyms[i] = core.Synonym{
				Name:     d.string(),
				Category: core.SynonymCategory(d.int()),
				Type:     core.SynonymType(d.int()),
			}
		}
	}
	if n := d.length(); n > 0 {
		term.Parents = make([]core.Identifier, n)
		for i := range term.Parents {
			term.Parents[i] = core.Identifier(d.string())
		}
	}
	if err := d.finish("term"); err != nil {
		return nil, err
	}
	return term, nil
}

// MarshalIndexEntry encodes an entry without its row, which lives in the key.
func MarshalIndexEntry(entry *core.IndexEntry) []byte {
	return encode(func(e *encoder) {
		e.string(string(entry.Id))
		e.string(entry.Text)
		e.int(len(entry.Vector))
		for _, v := range entry.Vector {
			e.float32(v)
		}
	})
}

func UnmarshalIndexEntry(data []byte) (*core.IndexEntry, error) {
	d := &decoder{buf: data}
	entry := &core.IndexEntry{
		Id:   core.Identifier(d.string()),
		Text: d.string(),
	}
	if n := d.length(); n > 0 {
		entry.Vector = make([]float32, n)
		for i := range entry.Vector {
			entry.Vector[i] = d.float32()
		}
	}
	if err := d.finish("index entry"); err != nil {
		return nil, err
	}
	return entry, nil
}

func MarshalRun(run *core.Run) []byte {
	texts := make([]string, 0, len(run.Matched))
	for text := range run.Matched {
		texts = append(texts, text)
	}
	slices.Sort(texts)

	return encode(func(e *encoder) {
		e.string(run.Id)
		e.string(run.Name)
		e.time(run.StartedAt)
		e.time(run.FinishedAt)
		e.int(len(run.Stages))
		for _, s := range run.Stages {
			e.string(s.Matcher)
			e.string(s.Resolver)
			e.int(s.Resolved)
			e.int(s.Failed)
			e.int(s.Remaining)
		}
		e.int(len(texts))
		for _, text := range texts {
			e.string(text)
			e.string(string(run.Matched[text]))
		}
		e.int(len(run.Unmatched))
		for _, text := range run.Unmatched {
			e.string(text)
		}
	})
}

func UnmarshalRun(data []byte) (*core.Run, error) {
	d := &decoder{buf: data}
	run := &core.Run{
		Id:         d.string(),
		Name:       d.string(),
		StartedAt:  d.time(),
		FinishedAt: d.time(),
	}
	if n := d.length(); n > 0 {
		run.Stages = make([]core.StageSummary, n)
		for i := range run.Stages {
			run.Stages[i] = core.StageSummary{
				Matcher:   d.string(),
				Resolver:  d.string(),
				Resolved:  d.int(),
				Failed:    d.int(),
				Remaining: d.int(),
			}
		}
	}
	n := d.length()
	run.Matched = make(map[string]core.Identifier, n)
	for range n {
		text := d.string()
		run.Matched[text] = core.Identifier(d.string())
	}
	if n := d.length(); n > 0 {
		run.Unmatched = make([]string, n)
		for i := range run.Unmatched {
			run.Unmatched[i] = d.string()
		}
	}
	if err := d.finish("run"); err != nil {
		return nil, err
	}
	return run, nil
}
