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

	"github.com/RedMane/ipam-engine/pkg/alloc"
	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
	"github.com/RedMane/ipam-engine/pkg/validate"
)

// ExternalRequest is the body of POST …/externals. CIDR and Size are
// alternatives; with Size the allocator picks the first fit.
type ExternalRequest struct {
	Name string  `json:"name"`
	Desc string  `json:"desc"`
	CIDR *string `json:"cidr,omitempty"`
	Size int     `json:"size,omitempty"`
}

// SubnetRequest is the body of POST …/subnets.
type SubnetRequest struct {
	Name string  `json:"name"`
	Desc string  `json:"desc"`
	CIDR *string `json:"cidr,omitempty"`
	Size int     `json:"size,omitempty"`
}

// EndpointRequest is the body of POST and PUT …/endpoints. A nil IP asks
// for the first free host address.
type EndpointRequest struct {
	Name string  `json:"name"`
	Desc string  `json:"desc"`
	IP   *string `json:"ip"`
}

// ExternalView annotates an external network with its location.
type ExternalView struct {
	model.External
	Space string `json:"space,omitempty"`
	Block string `json:"block,omitempty"`
}

// SubnetView annotates a subnet with its location.
type SubnetView struct {
	model.ExtSubnet
	Space    string `json:"space,omitempty"`
	Block    string `json:"block,omitempty"`
	External string `json:"external,omitempty"`
}

// resolveExternal walks space → block → external.
func resolveExternal(target *model.Space, blockName, externalName string) (*model.Block, *model.External, error) {
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, nil, badRequest("Invalid block name.")
	}
	external := model.FindExternal(block, externalName)
	if external == nil {
		return block, nil, badRequest("Invalid external network name.")
	}
	return block, external, nil
}

// resolveSubnet walks space → block → external → subnet. The two distinct
// not-found messages mirror the historical responses of the subnet and
// endpoint routes.
func resolveSubnet(target *model.Space, blockName, externalName, subnetName, missingMsg string) (*model.Block, *model.External, *model.ExtSubnet, error) {
	block, external, err := resolveExternal(target, blockName, externalName)
	if err != nil {
		return block, external, nil, err
	}
	subnet := model.FindSubnet(external, subnetName)
	if subnet == nil {
		return block, external, nil, badRequest("%s", missingMsg)
	}
	return block, external, subnet, nil
}

// ListExternals returns the block's external networks.
func (s *Service) ListExternals(ctx context.Context, ac *auth.Context, spaceName, blockName string) ([]model.External, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, badRequest("Invalid block name.")
	}
	return block.Externals, nil
}

// GetExternal returns one external network.
func (s *Service) GetExternal(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName string) (*model.External, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	_, external, err := resolveExternal(target, blockName, externalName)
	if err != nil {
		return nil, err
	}
	return external, nil
}

// CreateExternal carves an external network out of the block, either at
// an explicit CIDR or by first-fit size allocation over the block's free
// space.
func (s *Service) CreateExternal(ctx context.Context, ac *auth.Context, spaceName, blockName string, req ExternalRequest) (*ExternalView, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	if !validate.Name(req.Name) {
		return nil, badRequest("External network name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.")
	}
	if !validate.Description(req.Desc) {
		return nil, badRequest("External network description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.")
	}

	var view *ExternalView
	err := s.withRetry(ctx, "Error adding external network to block, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		for i := range block.Externals {
			if block.Externals[i].Name == req.Name {
				return badRequest("External network name already exists in block.")
			}
		}

		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		blockCIDR, err := model.BlockCIDRPrefix(block)
		if err != nil {
			return err
		}

		var vnetCIDRs []string
		for _, ref := range block.VNets {
			if net, found := inventory.Find(nets, ref.ID); found {
				for _, prefix := range model.VNetPrefixesInBlock(blockCIDR, net) {
					vnetCIDRs = append(vnetCIDRs, prefix.String())
				}
			}
		}
		vnetSet, err := prefixset.FromStrings(vnetCIDRs)
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
		freeSet := prefixset.New(blockCIDR).Difference(resvSet.Union(extSet).Union(vnetSet))

		var nextCIDR string
		if req.CIDR != nil {
			canonical, err := validate.CIDR(*req.CIDR)
			if err != nil {
				return badRequest("Invalid CIDR, please ensure CIDR is in valid IPv4 CIDR notation (x.x.x.x/x).")
			}
			if canonical != *req.CIDR {
				return badRequest("External network cidr invalid, should be %s", canonical)
			}
			requested := prefixset.MustParse(canonical)
			if !prefixset.Contains(blockCIDR, requested) {
				return badRequest("External network CIDR not within block CIDR.")
			}
			requestedSet := prefixset.New(requested)
			if requestedSet.Overlaps(extSet) {
				return badRequest("Block contains external network(s) which overlap the target external network.")
			}
			if requestedSet.Overlaps(resvSet) {
				return badRequest("Block contains unfulfilled reservation(s) which overlap the target external network.")
			}
			if requestedSet.Overlaps(vnetSet) {
				return badRequest("Block contains a virtual network(s) or hub(s) which overlap the target external network.")
			}
			nextCIDR = canonical
		} else {
			carved, err := alloc.BySize(freeSet, req.Size, false, false)
			if err != nil {
				return unavailable("Network of requested size unavailable in target block.")
			}
			nextCIDR = carved.String()
		}

		external := model.External{
			Name:    req.Name,
			Desc:    req.Desc,
			CIDR:    nextCIDR,
			Subnets: []model.ExtSubnet{},
		}
		block.Externals = append(block.Externals, external)
		view = &ExternalView{
			External: external,
			Space:    target.Name,
			Block:    block.Name,
		}
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateExternal applies a validated JSON patch (replace /name, /desc,
// /cidr).
func (s *Service) UpdateExternal(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName string, rawPatch []byte) (*model.External, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var updated *model.External
	err := s.withRetry(ctx, "Error updating external network, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block, external, err := resolveExternal(target, blockName, externalName)
		if err != nil {
			return err
		}
		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		if err := applyPatch(ctx, s.externalGate(block, external, nets), rawPatch, external); err != nil {
			return err
		}
		updated = external
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteExternal removes an external network; force is required while it
// still holds subnets.
func (s *Service) DeleteExternal(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName string, force bool) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminOnly)
	}

	return s.withRetry(ctx, "Error removing external network, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		index := -1
		for i := range block.Externals {
			if strings.EqualFold(block.Externals[i].Name, externalName) {
				index = i
				break
			}
		}
		if index < 0 {
			return badRequest("Invalid external network name.")
		}
		if !force && len(block.Externals[index].Subnets) > 0 {
			return badRequest("Cannot delete external network while it contains subnets.")
		}
		block.Externals = append(block.Externals[:index], block.Externals[index+1:]...)
		return s.replaceSpace(ctx, doc, target)
	})
}

// ListSubnets returns the external network's subnets.
func (s *Service) ListSubnets(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName string) ([]model.ExtSubnet, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	_, external, err := resolveExternal(target, blockName, externalName)
	if err != nil {
		return nil, err
	}
	return external.Subnets, nil
}

// GetSubnet returns one subnet.
func (s *Service) GetSubnet(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string) (*model.ExtSubnet, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, "Invalid external subnet name.")
	if err != nil {
		return nil, err
	}
	return subnet, nil
}

// CreateSubnet carves a subnet out of the external network, either at an
// explicit CIDR (a 409 when it collides with siblings) or by first-fit
// size allocation.
func (s *Service) CreateSubnet(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName string, req SubnetRequest) (*SubnetView, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	if !validate.Name(req.Name) {
		return nil, badRequest("External subnet name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.")
	}
	if !validate.Description(req.Desc) {
		return nil, badRequest("External subnet description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.")
	}

	var view *SubnetView
	err := s.withRetry(ctx, "Error adding subnet to external network, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block, external, err := resolveExternal(target, blockName, externalName)
		if err != nil {
			return err
		}
		for i := range external.Subnets {
			if external.Subnets[i].Name == req.Name {
				return badRequest("Subnet name already exists in external network.")
			}
		}

		externalCIDR, err := prefixset.Parse(external.CIDR)
		if err != nil {
			return err
		}
		subnetSet, err := model.ExternalReservedSet(external)
		if err != nil {
			return err
		}
		freeSet := prefixset.New(externalCIDR.Masked()).Difference(subnetSet)

		var nextCIDR string
		if req.CIDR != nil {
			canonical, err := validate.CIDR(*req.CIDR)
			if err != nil {
				return badRequest("Invalid CIDR, please ensure CIDR is in valid IPv4 CIDR notation (x.x.x.x/x).")
			}
			if canonical != *req.CIDR {
				return badRequest("External subnet CIDR invalid, should be %s", canonical)
			}
			requested := prefixset.MustParse(canonical)
			if !prefixset.Contains(externalCIDR.Masked(), requested) {
				return badRequest("External subnet CIDR not within external network CIDR.")
			}
			if !alloc.Fits(freeSet, requested) {
				return conflict("Requested subnet CIDR overlaps existing subnet(s).")
			}
			nextCIDR = canonical
		} else {
			carved, err := alloc.BySize(freeSet, req.Size, false, false)
			if err != nil {
				return unavailable("Subnet of requested size unavailable in target external network.")
			}
			nextCIDR = carved.String()
		}

		subnet := model.ExtSubnet{
			Name:      req.Name,
			Desc:      req.Desc,
			CIDR:      nextCIDR,
			Endpoints: []model.ExtEndpoint{},
		}
		external.Subnets = append(external.Subnets, subnet)
		view = &SubnetView{
			ExtSubnet: subnet,
			Space:     target.Name,
			Block:     block.Name,
			External:  external.Name,
		}
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// UpdateSubnet applies a validated JSON patch (replace /name, /desc,
// /cidr).
func (s *Service) UpdateSubnet(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string, rawPatch []byte) (*model.ExtSubnet, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var updated *model.ExtSubnet
	err := s.withRetry(ctx, "Error updating external subnet, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, external, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, "Invalid external subnet name.")
		if err != nil {
			return err
		}
		if err := applyPatch(ctx, s.subnetGate(external, subnet), rawPatch, subnet); err != nil {
			return err
		}
		updated = subnet
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSubnet removes a subnet; force is required while it still holds
// endpoints.
func (s *Service) DeleteSubnet(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string, force bool) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminOnly)
	}

	return s.withRetry(ctx, "Error removing external subnet, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, external, err := resolveExternal(target, blockName, externalName)
		if err != nil {
			return err
		}
		index := -1
		for i := range external.Subnets {
			if strings.EqualFold(external.Subnets[i].Name, subnetName) {
				index = i
				break
			}
		}
		if index < 0 {
			return badRequest("Invalid external subnet name.")
		}
		if !force && len(external.Subnets[index].Endpoints) > 0 {
			return badRequest("Cannot delete external subnet while it contains endpoints.")
		}
		external.Subnets = append(external.Subnets[:index], external.Subnets[index+1:]...)
		return s.replaceSpace(ctx, doc, target)
	})
}
