/*
 MIT License

 (C) Copyright 2026 RedMane Technology LLC

 Permission is hereby granted, free of charge, to any person obtaining a
 copy of this software and associated documentation files (the "Software"),
 to deal in the Software without restriction, including without limitation
 the rights to use, copy, modify, merge, publish, distribute, sublicense,
 and/or sell copies of the Software, and to permit persons to whom the
 Software is furnished to do so, subject to the following conditions:

 The above copyright notice and this permission notice shall be included
 in all copies or substantial portions of the Software.

 THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 OTHER DEALINGS IN THE SOFTWARE.
*/

// Package patchgate filters incoming JSON-Patch arrays against an
// allow-list of (op, path) pairs. Entries that match no rule are dropped;
// an entry that matches a rule but fails its validator rejects the whole
// patch. Validators may consult the document store, so scrubbing happens
// inside the write retry where it sees the state being written against.
package patchgate

import (
	"context"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/pkg/errors"
)

// RejectedError carries the rule's caller-facing message when an allowed
// operation fails validation.
type RejectedError struct {
	Msg string
}

func (e *RejectedError) Error() string {
	return e.Msg
}

// Validator checks the stringified value of one patch operation. A false
// result rejects the patch with the rule's message; a returned error is
// surfaced unchanged (validators raise their own specific messages).
type Validator func(ctx context.Context, value string) (bool, error)

// Rule allows one (op, path) pair.
type Rule struct {
	Op       string
	Path     string
	Validate Validator
	ErrMsg   string
}

// Gate is the allow-list for one entity type.
type Gate struct {
	rules []Rule
}

// New builds a gate from its rules.
func New(rules ...Rule) *Gate {
	return &Gate{rules: rules}
}

type patchOp struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// Scrub validates the raw JSON-Patch array and returns the allowed subset
// as an applicable patch.
func (g *Gate) Scrub(ctx context.Context, raw []byte) (jsonpatch.Patch, error) {
	var ops []patchOp
	if err := json.Unmarshal(raw, &ops); err != nil {
		return nil, errors.Wrap(err, "decoding JSON patch")
	}

	scrubbed := make([]patchOp, 0, len(ops))
	for _, op := range ops {
		rule := g.match(op)
		if rule == nil {
			continue
		}
		ok, err := rule.Validate(ctx, stringify(op.Value))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &RejectedError{Msg: rule.ErrMsg}
		}
		scrubbed = append(scrubbed, op)
	}

	encoded, err := json.Marshal(scrubbed)
	if err != nil {
		return nil, errors.Wrap(err, "encoding scrubbed patch")
	}
	patch, err := jsonpatch.DecodePatch(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decoding scrubbed patch")
	}
	return patch, nil
}

func (g *Gate) match(op patchOp) *Rule {
	for i := range g.rules {
		if g.rules[i].Op == op.Op && g.rules[i].Path == op.Path {
			return &g.rules[i]
		}
	}
	return nil
}

// stringify renders the operation value the way validators expect: JSON
// strings lose their quotes, everything else keeps its literal encoding.
func stringify(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
