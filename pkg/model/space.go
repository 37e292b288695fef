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

// Package model defines the Space document schema and the in-memory
// navigation helpers over it. One document holds a tenant Space and
// everything beneath it: blocks, attached virtual network references,
// external networks with their subnets and endpoints, and reservations.
package model

import (
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
)

// DocType is the document type tag for Space documents.
const DocType = "space"

// Reservation status values. A reservation is settled once SettledOn is
// non-nil; settled reservations are immutable and no longer count against
// the block's address space.
const (
	StatusWait            = "wait"
	StatusCancelledByUser = "cancelledByUser"
)

// Space is the root of a tenant's address namespace.
type Space struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	TenantID string  `json:"tenant_id"`
	Name     string  `json:"name"`
	Desc     string  `json:"desc"`
	Blocks   []Block `json:"blocks"`
}

// Block is a single IPv4 prefix owned by a space. Blocks within a space
// are pairwise non-overlapping.
type Block struct {
	Name      string        `json:"name"`
	CIDR      string        `json:"cidr"`
	VNets     []VNetRef     `json:"vnets"`
	Externals []External    `json:"externals"`
	Resv      []Reservation `json:"resv"`
}

// VNetRef is a weak reference to an externally-managed virtual network.
// The referenced prefixes are looked up from the inventory at read time.
type VNetRef struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// External is a prefix carved inside a block for non-cloud consumers.
type External struct {
	Name    string      `json:"name"`
	Desc    string      `json:"desc"`
	CIDR    string      `json:"cidr"`
	Subnets []ExtSubnet `json:"subnets"`
}

// ExtSubnet is a prefix inside an external network.
type ExtSubnet struct {
	Name      string        `json:"name"`
	Desc      string        `json:"desc"`
	CIDR      string        `json:"cidr"`
	Endpoints []ExtEndpoint `json:"endpoints"`
}

// ExtEndpoint is a single IPv4 host inside an external subnet.
type ExtEndpoint struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
	IP   string `json:"ip"`
}

// Reservation is a soft claim on a prefix within a block, held pending
// settlement by an out-of-band settler.
type Reservation struct {
	ID        string   `json:"id"`
	CIDR      string   `json:"cidr"`
	Desc      string   `json:"desc"`
	CreatedOn float64  `json:"createdOn"`
	CreatedBy string   `json:"createdBy"`
	SettledOn *float64 `json:"settledOn"`
	SettledBy *string  `json:"settledBy"`
	Status    string   `json:"status"`
}

// Settled reports whether the reservation has reached a terminal state.
func (r *Reservation) Settled() bool {
	return r.SettledOn != nil
}

// NewSpaceID returns a fresh Space document id.
func NewSpaceID() string {
	return uuid.NewString()
}

// NewReservationID returns a fresh short reservation id.
func NewReservationID() string {
	return shortuuid.New()
}

// Copy returns a deep copy of the space document. Mutations are always
// computed against a copy so a failed conditional replace never leaks a
// half-applied document.
func (s *Space) Copy() *Space {
	out := *s
	out.Blocks = make([]Block, len(s.Blocks))
	for i := range s.Blocks {
		out.Blocks[i] = *s.Blocks[i].Copy()
	}
	return &out
}

// Copy returns a deep copy of the block.
func (b *Block) Copy() *Block {
	out := *b
	out.VNets = append([]VNetRef(nil), b.VNets...)
	out.Resv = make([]Reservation, len(b.Resv))
	for i := range b.Resv {
		resv := b.Resv[i]
		if resv.SettledOn != nil {
			settledOn := *resv.SettledOn
			resv.SettledOn = &settledOn
		}
		if resv.SettledBy != nil {
			settledBy := *resv.SettledBy
			resv.SettledBy = &settledBy
		}
		out.Resv[i] = resv
	}
	out.Externals = make([]External, len(b.Externals))
	for i := range b.Externals {
		ext := b.Externals[i]
		ext.Subnets = make([]ExtSubnet, len(b.Externals[i].Subnets))
		for j := range b.Externals[i].Subnets {
			sub := b.Externals[i].Subnets[j]
			sub.Endpoints = append([]ExtEndpoint(nil), sub.Endpoints...)
			ext.Subnets[j] = sub
		}
		out.Externals[i] = ext
	}
	return &out
}
