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

// Package docstore persists one JSON document per Space, partitioned by
// tenant, with per-document optimistic concurrency. Three backends ship:
// an in-memory store, a plain-file store, and an etcd store. All writes go
// through the conditional Replace; the document version (etag) is the
// single commit point.
package docstore

import (
	"context"
	"errors"
	"fmt"
)

// ErrPreconditionFailed is returned by Replace when the document changed
// underneath the caller. It is the only error the transaction runner
// retries.
var ErrPreconditionFailed = errors.New("document version precondition failed")

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// Document is the stored envelope: identity plus the raw JSON body.
type Document struct {
	ID     string
	Tenant string
	Type   string
	Etag   string
	Raw    []byte
}

// Filter narrows a Query; the zero value matches every document of the
// tenant.
type Filter struct {
	Type string
}

// Store is the per-tenant document store consumed by the engine.
type Store interface {
	// Query returns the tenant's documents matching the filter.
	Query(ctx context.Context, tenant string, filter Filter) ([]Document, error)
	// Upsert writes the document unconditionally and returns it with a
	// fresh etag.
	Upsert(ctx context.Context, doc Document) (Document, error)
	// Replace writes raw over old iff old.Etag still matches the stored
	// version, returning ErrPreconditionFailed otherwise.
	Replace(ctx context.Context, old Document, raw []byte) (Document, error)
	// Delete removes the document.
	Delete(ctx context.Context, doc Document) error
}

// typeProbe pulls the type tag out of a raw document body.
type typeProbe struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

func docKey(tenant, id string) string {
	return fmt.Sprintf("%s/%s", tenant, id)
}
