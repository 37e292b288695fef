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

package space

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a caller-facing error. Missing entities deliberately
// surface as BadRequest ("Invalid space name." and friends), matching the
// established external contract.
type Kind int

const (
	// KindBadRequest covers validation, uniqueness, containment, and
	// patch-shape failures.
	KindBadRequest Kind = iota + 1
	// KindForbidden covers the admin gate and cross-user reservation
	// access.
	KindForbidden
	// KindConflict is the explicit-CIDR overlap on subnet and
	// reservation create.
	KindConflict
	// KindUnavailable is allocator exhaustion; it maps to 500 to keep
	// the historical behavior.
	KindUnavailable
	// KindInternal covers malformed patch documents and retry-budget
	// exhaustion.
	KindInternal
)

// Error is a caller-facing failure with a single human-readable detail.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	return e.Detail
}

// StatusCode maps the kind onto the HTTP status used at the transport
// boundary.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(format string, args ...interface{}) *Error {
	return &Error{Kind: KindBadRequest, Detail: fmt.Sprintf(format, args...)}
}

func forbidden(detail string) *Error {
	return &Error{Kind: KindForbidden, Detail: detail}
}

func conflict(detail string) *Error {
	return &Error{Kind: KindConflict, Detail: detail}
}

func unavailable(detail string) *Error {
	return &Error{Kind: KindUnavailable, Detail: detail}
}

func internal(detail string) *Error {
	return &Error{Kind: KindInternal, Detail: detail}
}

// pyList renders a string list the way the historical API did, e.g.
// ['blk1', 'blk2'].
func pyList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
