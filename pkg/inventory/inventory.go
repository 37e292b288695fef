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

// Package inventory enumerates the externally-managed virtual networks a
// tenant can attach to blocks. The engine only consumes the snapshot; the
// networks themselves live and change outside of it.
package inventory

import (
	"context"
	"strings"
)

// Subnet is a subdivision of an inventory network.
type Subnet struct {
	Prefix string `json:"prefix"`
	Name   string `json:"name,omitempty"`
	Size   uint64 `json:"size,omitempty"`
	Used   uint64 `json:"used,omitempty"`
}

// Network is one virtual network as reported by the provider.
type Network struct {
	ID       string   `json:"id"`
	Prefixes []string `json:"prefixes"`
	Subnets  []Subnet `json:"subnets,omitempty"`
	Size     uint64   `json:"size,omitempty"`
	Used     uint64   `json:"used,omitempty"`
}

// Provider lists the virtual networks visible to a tenant. A snapshot is
// fetched at most once per request and treated as stable for its duration.
type Provider interface {
	List(ctx context.Context) ([]Network, error)
}

// Find returns the network with the given id, matched case-insensitively
// the way cloud resource ids compare.
func Find(nets []Network, id string) (Network, bool) {
	for _, net := range nets {
		if strings.EqualFold(net.ID, id) {
			return net, true
		}
	}
	return Network{}, false
}

// Static is a fixed-snapshot provider for tests and development.
type Static struct {
	Networks []Network
}

// List returns the configured snapshot.
func (s *Static) List(_ context.Context) ([]Network, error) {
	return s.Networks, nil
}
