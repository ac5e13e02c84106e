// Copyright 2015 Google Inc. All rights reserved.
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

// Package table export the table that contains the results of a query.
package table

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nounverb/cnvq/triple"
)

// Row represents a solution: a mapping from variable names, without the
// leading '?', to the values they are bound to. Unbound variables are
// simply absent.
type Row map[string]triple.Value

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	nr := make(Row, len(r))
	for k, v := range r {
		nr[k] = v
	}
	return nr
}

// Texts returns the lexical form of every bound variable.
func (r Row) Texts() map[string]string {
	res := make(map[string]string, len(r))
	for k, v := range r {
		res[k] = v.Lexical()
	}
	return res
}

// ToTextLine adds the current row to the provided buffer.
func (r Row) ToTextLine(res *bytes.Buffer, bs []string, sep string) {
	for i, k := range bs {
		if i > 0 {
			res.WriteString(sep)
		}
		if v, ok := r[k]; ok {
			res.WriteString(v.Lexical())
		} else {
			res.WriteString("<NULL>")
		}
	}
}

// Compatible returns true if both rows agree on all the variables they share.
func Compatible(a, b Row) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k, v := range a {
		if ov, ok := b[k]; ok && ov != v {
			return false
		}
	}
	return true
}

// MergeRows takes a list of rows and returns a new row containing the union
// of all the bindings. Later rows win on conflicts.
func MergeRows(ms ...Row) Row {
	res := make(Row)
	for _, r := range ms {
		for k, v := range r {
			res[k] = v
		}
	}
	return res
}

// Table contains the results of a query. Rows are kept in the order they
// were produced.
type Table struct {
	bs      []string
	mbs     map[string]bool
	data    []Row
	partial bool
}

// New returns a new table that can hold data for the given bindings. The
// bindings must be unique.
func New(bs []string) (*Table, error) {
	m := make(map[string]bool, len(bs))
	for _, b := range bs {
		if m[b] {
			return nil, fmt.Errorf("table.New does not allow duplicated bindings in %v", bs)
		}
		m[b] = true
	}
	return &Table{
		bs:  append([]string{}, bs...),
		mbs: m,
	}, nil
}

// AddRow adds a row to the end of a table.
func (t *Table) AddRow(r Row) {
	t.data = append(t.data, r)
}

// AddRows adds the rows to the end of the table.
func (t *Table) AddRows(rs []Row) {
	t.data = append(t.data, rs...)
}

// NumRows returns the number of rows currently available on the table.
func (t *Table) NumRows() int {
	return len(t.data)
}

// Row returns the requested row. Rows start at 0. Also, if you request a row
// beyond it will return nil, and the ok boolean will be false.
func (t *Table) Row(i int) (Row, bool) {
	if i < 0 || i >= len(t.data) {
		return nil, false
	}
	return t.data[i], true
}

// Rows returns all the available rows.
func (t *Table) Rows() []Row {
	return t.data
}

// ProjectBindings replaces the current bindings with the projected ones.
// Rows are stripped of any other variable. Projected bindings never produced
// by the query stay unbound.
func (t *Table) ProjectBindings(bs []string) {
	t.bs = append([]string{}, bs...)
	t.mbs = make(map[string]bool, len(bs))
	for _, b := range bs {
		t.mbs[b] = true
	}
	for i, r := range t.data {
		nr := make(Row, len(bs))
		for _, b := range bs {
			if v, ok := r[b]; ok {
				nr[b] = v
			}
		}
		t.data[i] = nr
	}
}

// HasBinding returns true if the binding currently exist on the table.
func (t *Table) HasBinding(b string) bool {
	return t.mbs[b]
}

// Bindings returns the bindings contained on the table.
func (t *Table) Bindings() []string {
	return append([]string{}, t.bs...)
}

// SetPartial flags the table as the truncated result of an interrupted
// evaluation.
func (t *Table) SetPartial(p bool) {
	t.partial = p
}

// Partial returns true if the table holds only the rows accumulated before
// the evaluation deadline expired.
func (t *Table) Partial() bool {
	return t.partial
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{
		bs:      append([]string{}, t.bs...),
		mbs:     make(map[string]bool, len(t.mbs)),
		data:    make([]Row, 0, len(t.data)),
		partial: t.partial,
	}
	for k, v := range t.mbs {
		c.mbs[k] = v
	}
	for _, r := range t.data {
		c.data = append(c.data, r.Clone())
	}
	return c
}

// ToText convert the table into a readable text versions. It requires the
// separator to be used between cells.
func (t *Table) ToText(sep string) *bytes.Buffer {
	res := &bytes.Buffer{}
	res.WriteString(strings.Join(t.bs, sep))
	res.WriteString("\n")
	for _, r := range t.data {
		r.ToTextLine(res, t.bs, sep)
		res.WriteString("\n")
	}
	return res
}

// String attempts to force to string the table.
func (t *Table) String() string {
	return t.ToText("\t").String()
}

// ToMaps returns the rows as variable name to lexical value maps.
func (t *Table) ToMaps() []map[string]string {
	res := make([]map[string]string, 0, len(t.data))
	for _, r := range t.data {
		res = append(res, r.Texts())
	}
	return res
}

// ToJSON renders the table as a JSON document holding the variables, the
// rows and the partial flag.
func (t *Table) ToJSON() ([]byte, error) {
	return json.Marshal(struct {
		Variables []string            `json:"variables"`
		Rows      []map[string]string `json:"rows"`
		Partial   bool                `json:"partial,omitempty"`
	}{t.bs, t.ToMaps(), t.partial})
}

// Truncate removes all the rows.
func (t *Table) Truncate() {
	t.data = nil
}

// Slice keeps the rows in the [offset, offset+limit) window. A negative limit
// keeps every row after offset.
func (t *Table) Slice(offset, limit int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(t.data) {
		t.data = nil
		return
	}
	t.data = t.data[offset:]
	if limit >= 0 && limit < len(t.data) {
		t.data = t.data[:limit]
	}
}

// rowKey returns a string uniquely identifying the row on the bindings.
func rowKey(r Row, bs []string) string {
	var b strings.Builder
	for _, k := range bs {
		if v, ok := r[k]; ok {
			b.WriteString(v.String())
		} else {
			b.WriteByte(0x01)
		}
		b.WriteByte(0x00)
	}
	return b.String()
}

// Distinct removes duplicated rows keeping the first occurrence.
func (t *Table) Distinct() {
	seen := make(map[string]bool, len(t.data))
	res := t.data[:0]
	for _, r := range t.data {
		k := rowKey(r, t.bs)
		if seen[k] {
			continue
		}
		seen[k] = true
		res = append(res, r)
	}
	t.data = res
}

// SortConfig contains the sorting information. Contains what binding should
// be used in the sorting and whether it should sort descending.
type SortConfig []struct {
	Binding string
	Desc    bool
}

// compareCells orders unbound values first and the rest using triple.Compare.
func compareCells(ri, rj Row, b string) int {
	vi, iok := ri[b]
	vj, jok := rj[b]
	switch {
	case !iok && !jok:
		return 0
	case !iok:
		return -1
	case !jok:
		return 1
	}
	return triple.Compare(vi, vj)
}

func rowLess(ri, rj Row, c SortConfig) bool {
	for _, cfg := range c {
		l := compareCells(ri, rj, cfg.Binding)
		if cfg.Desc {
			l = -l
		}
		if l != 0 {
			return l < 0
		}
	}
	return false
}

// Sort sorts the table given a sort configuration. The sort is stable.
func (t *Table) Sort(cfg SortConfig) {
	if len(cfg) == 0 {
		return
	}
	sort.SliceStable(t.data, func(i, j int) bool {
		return rowLess(t.data[i], t.data[j], cfg)
	})
}
