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
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const etcdPrefix = "ipam/docs"

// EtcdStore keeps documents under ipam/docs/<tenant>/<id>. The etag is the
// key's ModRevision; the conditional replace is an etcd transaction
// comparing it, which gives the same single-commit-point semantics as the
// file and memory stores.
type EtcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore connects to the given endpoints.
func NewEtcdStore(endpoints []string) (*EtcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connecting to etcd")
	}
	return &EtcdStore{client: client}, nil
}

// Close releases the client connection.
func (s *EtcdStore) Close() error {
	return s.client.Close()
}

func etcdKey(tenant, id string) string {
	return path.Join(etcdPrefix, tenant, id)
}

// Query loads the tenant's documents matching the filter.
func (s *EtcdStore) Query(ctx context.Context, tenant string, filter Filter) ([]Document, error) {
	resp, err := s.client.Get(ctx, path.Join(etcdPrefix, tenant)+"/", clientv3.WithPrefix())
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}

	var out []Document
	for _, kv := range resp.Kvs {
		var probe typeProbe
		if err := json.Unmarshal(kv.Value, &probe); err != nil {
			return nil, errors.Wrapf(err, "document %s is not valid JSON", kv.Key)
		}
		if filter.Type != "" && probe.Type != filter.Type {
			continue
		}
		out = append(out, Document{
			ID:     strings.TrimPrefix(string(kv.Key), path.Join(etcdPrefix, tenant)+"/"),
			Tenant: tenant,
			Type:   probe.Type,
			Etag:   strconv.FormatInt(kv.ModRevision, 10),
			Raw:    append([]byte(nil), kv.Value...),
		})
	}
	return out, nil
}

// Upsert writes the document unconditionally.
func (s *EtcdStore) Upsert(ctx context.Context, doc Document) (Document, error) {
	key := etcdKey(doc.Tenant, doc.ID)
	if _, err := s.client.Put(ctx, key, string(doc.Raw)); err != nil {
		return Document{}, errors.Wrap(err, "upserting document")
	}
	resp, err := s.client.Get(ctx, key)
	if err != nil || len(resp.Kvs) == 0 {
		return Document{}, errors.Wrap(err, "reading back upserted document")
	}
	doc.Etag = strconv.FormatInt(resp.Kvs[0].ModRevision, 10)
	doc.Type = probeType(doc)
	return doc, nil
}

// Replace writes raw over old iff the key's ModRevision still matches.
func (s *EtcdStore) Replace(ctx context.Context, old Document, raw []byte) (Document, error) {
	rev, err := strconv.ParseInt(old.Etag, 10, 64)
	if err != nil {
		return Document{}, errors.Wrap(err, "parsing document etag")
	}
	key := etcdKey(old.Tenant, old.ID)

	txn, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", rev)).
		Then(clientv3.OpPut(key, string(raw))).
		Commit()
	if err != nil {
		return Document{}, errors.Wrap(err, "replacing document")
	}
	if !txn.Succeeded {
		return Document{}, ErrPreconditionFailed
	}

	updated := old
	updated.Raw = append([]byte(nil), raw...)
	updated.Etag = strconv.FormatInt(txn.Header.Revision, 10)
	updated.Type = probeType(updated)
	return updated, nil
}

// Delete removes the document.
func (s *EtcdStore) Delete(ctx context.Context, doc Document) error {
	resp, err := s.client.Delete(ctx, etcdKey(doc.Tenant, doc.ID))
	if err != nil {
		return errors.Wrap(err, "deleting document")
	}
	if resp.Deleted == 0 {
		return ErrNotFound
	}
	return nil
}
