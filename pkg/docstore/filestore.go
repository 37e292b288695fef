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
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/internal/files"
)

//go:embed space-document.schema.json
var spaceSchemaJSON string

// FileStore keeps one JSON file per document under dataDir/<tenant>/.
// The etag is the content hash, so the conditional replace detects any
// concurrent writer. Space documents are checked against the embedded
// schema when loaded, so a corrupt data directory fails loudly instead of
// feeding garbage into the allocation paths.
type FileStore struct {
	mu      sync.Mutex
	dataDir string
	schema  *gojsonschema.Schema
	log     *zap.Logger
}

// NewFileStore opens (and if needed creates) the data directory.
func NewFileStore(dataDir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data directory")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(spaceSchemaJSON))
	if err != nil {
		return nil, errors.Wrap(err, "compiling space document schema")
	}
	return &FileStore{dataDir: dataDir, schema: schema, log: log}, nil
}

// Query loads the tenant's documents matching the filter.
func (s *FileStore) Query(_ context.Context, tenant string, filter Filter) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.dataDir, tenant)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading tenant directory")
	}

	var out []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		doc, err := s.load(tenant, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if filter.Type != "" && doc.Type != filter.Type {
			continue
		}
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Upsert writes the document unconditionally.
func (s *FileStore) Upsert(_ context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(doc.Tenant, doc.ID, doc.Raw)
}

// Replace performs the conditional write.
func (s *FileStore) Replace(_ context.Context, old Document, raw []byte) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(old.Tenant, old.ID)
	if err != nil {
		return Document{}, err
	}
	if current.Etag != old.Etag {
		return Document{}, ErrPreconditionFailed
	}
	return s.write(old.Tenant, old.ID, raw)
}

// Delete removes the document file.
func (s *FileStore) Delete(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(doc.Tenant, doc.ID))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	return err
}

func (s *FileStore) path(tenant, id string) string {
	return filepath.Join(s.dataDir, tenant, id+".json")
}

func (s *FileStore) load(tenant, id string) (Document, error) {
	raw, err := files.ReadRaw(s.path(tenant, id))
	if os.IsNotExist(err) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, errors.Wrap(err, "reading document")
	}

	var probe typeProbe
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, errors.Wrapf(err, "document %s/%s is not valid JSON", tenant, id)
	}
	if probe.Type == "space" {
		result, err := s.schema.Validate(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return Document{}, errors.Wrap(err, "validating document")
		}
		if !result.Valid() {
			s.log.Warn("stored space document fails schema validation",
				zap.String("tenant", tenant),
				zap.String("id", id),
				zap.Any("errors", result.Errors()),
			)
			return Document{}, errors.Errorf("document %s/%s fails schema validation", tenant, id)
		}
	}

	return Document{
		ID:     id,
		Tenant: tenant,
		Type:   probe.Type,
		Etag:   etagFor(raw),
		Raw:    raw,
	}, nil
}

func (s *FileStore) write(tenant, id string, raw []byte) (Document, error) {
	dir := filepath.Join(s.dataDir, tenant)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Document{}, errors.Wrap(err, "creating tenant directory")
	}
	if err := files.WriteRaw(s.path(tenant, id), raw); err != nil {
		return Document{}, errors.Wrap(err, "writing document")
	}

	var probe typeProbe
	_ = json.Unmarshal(raw, &probe)
	return Document{
		ID:     id,
		Tenant: tenant,
		Type:   probe.Type,
		Etag:   etagFor(raw),
		Raw:    append([]byte(nil), raw...),
	}, nil
}

func etagFor(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:8])
}
