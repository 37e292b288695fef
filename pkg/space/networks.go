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
	"context"
	"strings"

	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

// AvailableNetworks lists the inventory networks that could be attached
// to the block: at least one prefix inside the block CIDR, no overlap
// with outstanding reservations or externals, and not already attached to
// any other block of the tenant. Open to any authenticated caller.
func (s *Service) AvailableNetworks(ctx context.Context, ac *auth.Context, spaceName, blockName string) ([]inventory.Network, error) {
	_, spaces, err := s.querySpaces(ctx, ac.TenantID)
	if err != nil {
		return nil, err
	}

	var target *model.Space
	for _, candidate := range spaces {
		if strings.EqualFold(candidate.Name, spaceName) {
			target = candidate
			break
		}
	}
	if target == nil {
		return nil, badRequest("Invalid space name.")
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, badRequest("Invalid block name.")
	}

	blockCIDR, err := model.BlockCIDRPrefix(block)
	if err != nil {
		return nil, err
	}

	var excluded []string
	for i := range block.Resv {
		if !block.Resv[i].Settled() {
			excluded = append(excluded, block.Resv[i].CIDR)
		}
	}
	for i := range block.Externals {
		excluded = append(excluded, block.Externals[i].CIDR)
	}
	excludedSet, err := prefixset.FromStrings(excluded)
	if err != nil {
		return nil, err
	}

	// Any attachment elsewhere in the tenant disqualifies the network,
	// including other blocks of this same space.
	attached := map[string]bool{}
	for _, candidate := range spaces {
		for i := range candidate.Blocks {
			if strings.EqualFold(candidate.Name, target.Name) &&
				strings.EqualFold(candidate.Blocks[i].Name, block.Name) {
				continue
			}
			for _, ref := range candidate.Blocks[i].VNets {
				attached[strings.ToLower(ref.ID)] = true
			}
		}
	}

	nets, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var available []inventory.Network
	for _, net := range nets {
		if attached[strings.ToLower(net.ID)] {
			continue
		}
		var valid []string
		for _, raw := range net.Prefixes {
			prefix, err := prefixset.Parse(raw)
			if err != nil {
				continue
			}
			masked := prefix.Masked()
			if !prefixset.Contains(blockCIDR, masked) {
				continue
			}
			if excludedSet.Overlaps(prefixset.New(masked)) {
				continue
			}
			valid = append(valid, raw)
		}
		if len(valid) > 0 {
			net.Prefixes = valid
			available = append(available, net)
		}
	}
	return available, nil
}

// ListBlockNetworks returns the block's attached networks, expanded to
// the inventory objects on request.
func (s *Service) ListBlockNetworks(ctx context.Context, ac *auth.Context, spaceName, blockName string, expand bool) ([]model.VNetRef, []inventory.Network, error) {
	if !ac.IsAdmin {
		return nil, nil, forbidden(msgAdminOnly)
	}

	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, nil, err
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, nil, badRequest("Invalid block name.")
	}

	if !expand {
		return block.VNets, nil, nil
	}

	nets, err := s.snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	var expanded []inventory.Network
	for _, ref := range block.VNets {
		if net, found := inventory.Find(nets, ref.ID); found {
			expanded = append(expanded, net)
		}
	}
	return nil, expanded, nil
}

// AttachNetwork associates one inventory network with the block. The
// network's in-block prefix must be disjoint from everything already
// claimed.
func (s *Service) AttachNetwork(ctx context.Context, ac *auth.Context, spaceName, blockName, vnetID string) (*model.Block, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	var attached *model.Block
	err := s.withRetry(ctx, "Error adding network to block, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		if model.HasVNet(block, vnetID) {
			return badRequest("Network already exists in block.")
		}

		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		net, found := inventory.Find(nets, vnetID)
		if !found {
			return badRequest("Invalid network ID.")
		}

		blockCIDR, err := model.BlockCIDRPrefix(block)
		if err != nil {
			return err
		}
		inBlock := model.VNetPrefixesInBlock(blockCIDR, net)
		if len(inBlock) == 0 {
			return badRequest("Network CIDR not within block CIDR.")
		}

		claimed, err := model.BlockReservedSet(block, nets)
		if err != nil {
			return err
		}
		if claimed.Overlaps(prefixset.New(inBlock...)) {
			return badRequest("Block already contains network(s) and/or reservation(s) within the CIDR range of target network.")
		}

		block.VNets = append(block.VNets, model.VNetRef{ID: vnetID, Active: true})
		attached = block
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return attached, nil
}

// ReplaceNetworks swaps the block's attachment list wholesale. Every id
// must resolve and have at least one prefix inside the block, and the list
// must be free of internal and external overlap. Only the first in-block
// prefix of each network is checked for overlap; a network with several
// in-block prefixes is not rejected.
func (s *Service) ReplaceNetworks(ctx context.Context, ac *auth.Context, spaceName, blockName string, vnetIDs []string) ([]model.VNetRef, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	var replaced []model.VNetRef
	err := s.withRetry(ctx, "Error updating block networks, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		if hasDuplicates(vnetIDs) {
			return badRequest("List contains duplicate networks.")
		}

		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		blockCIDR, err := model.BlockCIDRPrefix(block)
		if err != nil {
			return err
		}

		var resvCIDRs, extCIDRs []string
		for i := range block.Resv {
			if !block.Resv[i].Settled() {
				resvCIDRs = append(resvCIDRs, block.Resv[i].CIDR)
			}
		}
		for i := range block.Externals {
			extCIDRs = append(extCIDRs, block.Externals[i].CIDR)
		}
		resvSet, err := prefixset.FromStrings(resvCIDRs)
		if err != nil {
			return err
		}
		extSet, err := prefixset.FromStrings(extCIDRs)
		if err != nil {
			return err
		}

		var invalid, outside []string
		var netSet prefixset.Set
		overlap := false
		for _, id := range vnetIDs {
			net, found := inventory.Find(nets, id)
			if !found {
				invalid = append(invalid, id)
				continue
			}
			inBlock := model.VNetPrefixesInBlock(blockCIDR, net)
			if len(inBlock) == 0 {
				outside = append(outside, id)
				continue
			}
			candidate := prefixset.New(inBlock[0])
			if netSet.Overlaps(candidate) {
				overlap = true
				continue
			}
			netSet = netSet.Union(candidate)
		}

		if len(invalid) > 0 {
			return badRequest("Invalid network ID(s): %s", pyList(invalid))
		}
		if overlap {
			return badRequest("Network list contains overlapping CIDRs.")
		}
		if netSet.Overlaps(resvSet) {
			return badRequest("Network list contains CIDR(s) that overlap outstanding reservations.")
		}
		if netSet.Overlaps(extSet) {
			return badRequest("Network list contains CIDR(s) that overlap external networks.")
		}
		if len(outside) > 0 {
			return badRequest("Network CIDR(s) not within Block CIDR: %s", pyList(outside))
		}

		refs := make([]model.VNetRef, 0, len(vnetIDs))
		for _, id := range vnetIDs {
			refs = append(refs, model.VNetRef{ID: id, Active: true})
		}
		block.VNets = refs
		replaced = refs
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// DetachNetworks removes the listed network ids from the block. Every id
// must currently be attached.
func (s *Service) DetachNetworks(ctx context.Context, ac *auth.Context, spaceName, blockName string, vnetIDs []string) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminOnly)
	}

	return s.withRetry(ctx, "Error removing block network(s), please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		if hasDuplicates(vnetIDs) {
			return badRequest("List contains one or more duplicate network id's.")
		}
		for _, id := range vnetIDs {
			if !model.HasVNet(block, id) {
				return badRequest("List contains one or more invalid network id's.")
			}
		}

		kept := block.VNets[:0]
		for _, ref := range block.VNets {
			remove := false
			for _, id := range vnetIDs {
				if strings.EqualFold(ref.ID, id) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, ref)
			}
		}
		block.VNets = kept
		return s.replaceSpace(ctx, doc, target)
	})
}

func hasDuplicates(items []string) bool {
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if seen[key] {
			return true
		}
		seen[key] = true
	}
	return false
}
