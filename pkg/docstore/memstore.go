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

package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
)

type memEntry struct {
	doc Document
	rev uint64
}

// MemStore is the in-memory store used by tests and local development.
type MemStore struct {
	mu   sync.Mutex
	docs map[string]*memEntry
	rev  uint64
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{docs: map[string]*memEntry{}}
}

// Query returns the tenant's documents matching the filter.
func (s *MemStore) Query(_ context.Context, tenant string, filter Filter) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for _, entry := range s.docs {
		if entry.doc.Tenant != tenant {
			continue
		}
		if filter.Type != "" && entry.doc.Type != filter.Type {
			continue
		}
		out = append(out, cloneDoc(entry.doc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert writes the document unconditionally.
func (s *MemStore) Upsert(_ context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rev++
	doc.Etag = strconv.FormatUint(s.rev, 10)
	doc.Type = probeType(doc)
	s.docs[docKey(doc.Tenant, doc.ID)] = &memEntry{doc: cloneDoc(doc), rev: s.rev}
	return doc, nil
}

// Replace performs the conditional write.
func (s *MemStore) Replace(_ context.Context, old Document, raw []byte) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.docs[docKey(old.Tenant, old.ID)]
	if !ok {
		return Document{}, ErrNotFound
	}
	if entry.doc.Etag != old.Etag {
		return Document{}, ErrPreconditionFailed
	}

	s.rev++
	updated := old
	updated.Raw = append([]byte(nil), raw...)
	updated.Etag = strconv.FormatUint(s.rev, 10)
	updated.Type = probeType(updated)
	s.docs[docKey(old.Tenant, old.ID)] = &memEntry{doc: cloneDoc(updated), rev: s.rev}
	return updated, nil
}

// Delete removes the document.
func (s *MemStore) Delete(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := docKey(doc.Tenant, doc.ID)
	if _, ok := s.docs[key]; !ok {
		return ErrNotFound
	}
	delete(s.docs, key)
	return nil
}

func cloneDoc(doc Document) Document {
	doc.Raw = append([]byte(nil), doc.Raw...)
	return doc
}

func probeType(doc Document) string {
	if doc.Type != "" {
		return doc.Type
	}
	var probe typeProbe
	if err := json.Unmarshal(doc.Raw, &probe); err != nil {
		return ""
	}
	return probe.Type
}
