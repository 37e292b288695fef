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
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

// ViewOpts controls how documents are rendered back to the caller.
type ViewOpts struct {
	// Expand replaces vnet references with the full inventory objects.
	Expand bool
	// Utilization adds size/used roll-ups at every scope.
	Utilization bool
	// FilterUser, when set, restricts reservations to that creator.
	FilterUser string
}

// SpaceView is the rendered form of a space document.
type SpaceView struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	TenantID string      `json:"tenant_id"`
	Name     string      `json:"name"`
	Desc     string      `json:"desc"`
	Blocks   []BlockView `json:"blocks"`
	Size     *uint64     `json:"size,omitempty"`
	Used     *uint64     `json:"used,omitempty"`
}

// BlockView is the rendered form of a block.
type BlockView struct {
	Name      string              `json:"name"`
	CIDR      string              `json:"cidr"`
	VNets     []VNetView          `json:"vnets"`
	Externals []model.External    `json:"externals"`
	Resv      []model.Reservation `json:"resv"`
	Size      *uint64             `json:"size,omitempty"`
	Used      *uint64             `json:"used,omitempty"`
}

// VNetView is either the stored reference or, when expanded, the full
// inventory object with utilization figures.
type VNetView struct {
	ID       string             `json:"id"`
	Active   *bool              `json:"active,omitempty"`
	Prefixes []string           `json:"prefixes,omitempty"`
	Subnets  []inventory.Subnet `json:"subnets,omitempty"`
	Size     *uint64            `json:"size,omitempty"`
	Used     *uint64            `json:"used,omitempty"`
}

// ReservationView annotates a reservation with its location. The extra
// fields are response-only and never persisted.
type ReservationView struct {
	model.Reservation
	Space string `json:"space,omitempty"`
	Block string `json:"block,omitempty"`
}

// BuildSpaceView renders a space. Space-level size/used accumulate over
// the target space's own blocks; the output is independent of the order
// of blocks, vnets, and externals in the document.
func BuildSpaceView(space *model.Space, nets []inventory.Network, opts ViewOpts) *SpaceView {
	view := &SpaceView{
		ID:       space.ID,
		Type:     space.Type,
		TenantID: space.TenantID,
		Name:     space.Name,
		Desc:     space.Desc,
		Blocks:   make([]BlockView, len(space.Blocks)),
	}
	if opts.Utilization {
		var size, used uint64
		view.Size = &size
		view.Used = &used
	}
	for i := range space.Blocks {
		view.Blocks[i] = BuildBlockView(&space.Blocks[i], nets, opts)
		if opts.Utilization {
			*view.Size += *view.Blocks[i].Size
			*view.Used += *view.Blocks[i].Used
		}
	}
	return view
}

// BuildBlockView renders a block. Used counts the attached networks'
// in-block prefixes plus the external networks; reservations occupy
// address space but are not "used" until settled by a real network.
func BuildBlockView(block *model.Block, nets []inventory.Network, opts ViewOpts) BlockView {
	view := BlockView{
		Name:      block.Name,
		CIDR:      block.CIDR,
		Externals: append([]model.External{}, block.Externals...),
		Resv:      filterReservations(block.Resv, opts.FilterUser, true),
		VNets:     []VNetView{},
	}

	blockCIDR, cidrErr := model.BlockCIDRPrefix(block)

	if opts.Utilization {
		var size, used uint64
		if cidrErr == nil {
			size = prefixset.Size(blockCIDR)
		}
		view.Size = &size
		view.Used = &used
	}

	for _, ref := range block.VNets {
		net, found := inventory.Find(nets, ref.ID)

		if opts.Expand {
			// Expanded views drop references the inventory no longer
			// reports.
			if !found {
				continue
			}
			vnet := VNetView{
				ID:       net.ID,
				Prefixes: net.Prefixes,
				Subnets:  net.Subnets,
			}
			if opts.Utilization {
				var netSize, netUsed uint64
				if cidrErr == nil {
					for _, prefix := range model.VNetPrefixesInBlock(blockCIDR, net) {
						netSize += prefixset.Size(prefix)
					}
				}
				subnets := make([]inventory.Subnet, len(net.Subnets))
				for i, subnet := range net.Subnets {
					subnets[i] = subnet
					if parsed, err := prefixset.Parse(subnet.Prefix); err == nil {
						subnets[i].Size = prefixset.Size(parsed.Masked())
						netUsed += subnets[i].Size
					}
				}
				vnet.Subnets = subnets
				vnet.Size = &netSize
				vnet.Used = &netUsed
				*view.Used += netSize
			}
			view.VNets = append(view.VNets, vnet)
			continue
		}

		active := ref.Active
		view.VNets = append(view.VNets, VNetView{ID: ref.ID, Active: &active})
		if opts.Utilization && found && cidrErr == nil {
			for _, prefix := range model.VNetPrefixesInBlock(blockCIDR, net) {
				*view.Used += prefixset.Size(prefix)
			}
		}
	}

	if opts.Utilization {
		for i := range block.Externals {
			if parsed, err := prefixset.Parse(block.Externals[i].CIDR); err == nil {
				*view.Used += prefixset.Size(parsed.Masked())
			}
		}
	}
	return view
}

// filterReservations applies the non-admin creator filter; settled
// reservations stay included on document views (the dedicated listings
// apply their own settled flag).
func filterReservations(resv []model.Reservation, user string, includeSettled bool) []model.Reservation {
	out := make([]model.Reservation, 0, len(resv))
	for _, r := range resv {
		if user != "" && r.CreatedBy != user {
			continue
		}
		if !includeSettled && r.Settled() {
			continue
		}
		out = append(out, r)
	}
	return out
}
