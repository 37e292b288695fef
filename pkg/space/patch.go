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
	"encoding/json"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/patchgate"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
	"github.com/RedMane/ipam-engine/pkg/validate"
)

// applyPatch scrubs the raw JSON-Patch array through the gate and applies
// the surviving operations to the entity in place.
func applyPatch(ctx context.Context, gate *patchgate.Gate, rawPatch []byte, entity interface{}) error {
	patch, err := gate.Scrub(ctx, rawPatch)
	if err != nil {
		var rejected *patchgate.RejectedError
		if pkgerrors.As(err, &rejected) {
			return badRequest("%s", rejected.Msg)
		}
		var typed *Error
		if pkgerrors.As(err, &typed) {
			return typed
		}
		return internal("Invalid JSON patch, please review and try again.")
	}

	encoded, err := json.Marshal(entity)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding patch target")
	}
	updated, err := patch.Apply(encoded)
	if err != nil {
		return internal("Invalid JSON patch, please review and try again.")
	}
	if err := json.Unmarshal(updated, entity); err != nil {
		return internal("Invalid JSON patch, please review and try again.")
	}
	return nil
}

// spaceGate allows replace /name and /desc on a space.
func (s *Service) spaceGate(tenant, spaceName string) *patchgate.Gate {
	return patchgate.New(
		patchgate.Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(ctx context.Context, value string) (bool, error) {
				_, spaces, err := s.querySpaces(ctx, tenant)
				if err != nil {
					return false, err
				}
				for _, other := range spaces {
					if strings.EqualFold(other.Name, spaceName) {
						continue
					}
					if strings.EqualFold(other.Name, value) {
						return false, badRequest("Updated Space name must be unique.")
					}
				}
				return validate.Name(value), nil
			},
			ErrMsg: "Space name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/desc",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Description(value), nil
			},
			ErrMsg: "Space description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.",
		},
	)
}

// blockGate allows replace /name and /cidr on a block. A CIDR replace is
// accepted only when the new prefix still covers everything claimed in
// the block, so children never need cascading rewrites.
func (s *Service) blockGate(target *model.Space, block *model.Block, nets []inventory.Network) *patchgate.Gate {
	return patchgate.New(
		patchgate.Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(_ context.Context, value string) (bool, error) {
				for i := range target.Blocks {
					if strings.EqualFold(target.Blocks[i].Name, block.Name) {
						continue
					}
					if strings.EqualFold(target.Blocks[i].Name, value) {
						return false, badRequest("Updated Block name cannot match existing Blocks within the Space.")
					}
				}
				return validate.Name(value), nil
			},
			ErrMsg: "Block name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/cidr",
			Validate: func(_ context.Context, value string) (bool, error) {
				if value == block.CIDR {
					return true, nil
				}
				canonical, err := validate.CIDR(value)
				if err != nil {
					return false, badRequest("Updated Block CIDR must be in valid CIDR notation (x.x.x.x/x).")
				}
				if canonical != value {
					return false, badRequest("Invalid CIDR value, try '%s' instead.", canonical)
				}
				updateSet := prefixset.New(prefixset.MustParse(canonical))

				others := make([]string, 0, len(target.Blocks))
				for i := range target.Blocks {
					if !strings.EqualFold(target.Blocks[i].Name, block.Name) {
						others = append(others, target.Blocks[i].CIDR)
					}
				}
				otherSet, err := prefixset.FromStrings(others)
				if err != nil {
					return false, err
				}
				if otherSet.Overlaps(updateSet) {
					return false, badRequest("Updated CIDR cannot overlap other Block CIDRs within the Space.")
				}

				claimed, err := model.BlockReservedSet(block, nets)
				if err != nil {
					return false, err
				}
				return claimed.IsSubset(updateSet), nil
			},
			ErrMsg: "Block CIDR must be in valid CIDR notation (x.x.x.x/x), cannot overlap existing Blocks within the Space and must contain all existing Virtual Networks, External Networks and unfulfilled Reservations within the Block.",
		},
	)
}

// externalGate allows replace /name, /desc, and /cidr on an external
// network.
func (s *Service) externalGate(block *model.Block, external *model.External, nets []inventory.Network) *patchgate.Gate {
	return patchgate.New(
		patchgate.Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(_ context.Context, value string) (bool, error) {
				for i := range block.Externals {
					if strings.EqualFold(block.Externals[i].Name, external.Name) {
						continue
					}
					if strings.EqualFold(block.Externals[i].Name, value) {
						return false, badRequest("Updated External Network name cannot match existing External Networks within the Block.")
					}
				}
				return validate.Name(value), nil
			},
			ErrMsg: "External Network name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/desc",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Description(value), nil
			},
			ErrMsg: "External Network description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/cidr",
			Validate: func(_ context.Context, value string) (bool, error) {
				if value == external.CIDR {
					return true, nil
				}
				canonical, err := validate.CIDR(value)
				if err != nil {
					return false, badRequest("Updated External Network CIDR must be in valid CIDR notation (x.x.x.x/x).")
				}
				if canonical != value {
					return false, badRequest("Invalid CIDR value, try '%s' instead.", canonical)
				}
				blockCIDR, err := model.BlockCIDRPrefix(block)
				if err != nil {
					return false, err
				}
				updatePrefix := prefixset.MustParse(canonical)
				if !prefixset.Contains(blockCIDR, updatePrefix) {
					return false, badRequest("Updated External Network CIDR must be contained within the Block CIDR.")
				}

				// Everything else claimed in the block: attached network
				// prefixes, unsettled reservations, and the other
				// externals.
				var claimed []string
				for _, ref := range block.VNets {
					if net, found := inventory.Find(nets, ref.ID); found {
						for _, prefix := range model.VNetPrefixesInBlock(blockCIDR, net) {
							claimed = append(claimed, prefix.String())
						}
					}
				}
				for i := range block.Resv {
					if !block.Resv[i].Settled() {
						claimed = append(claimed, block.Resv[i].CIDR)
					}
				}
				for i := range block.Externals {
					if !strings.EqualFold(block.Externals[i].Name, external.Name) {
						claimed = append(claimed, block.Externals[i].CIDR)
					}
				}
				claimedSet, err := prefixset.FromStrings(claimed)
				if err != nil {
					return false, err
				}
				updateSet := prefixset.New(updatePrefix)
				if claimedSet.Overlaps(updateSet) {
					return false, badRequest("Updated CIDR cannot overlap other Virtual Networks, External Networks, or unfulfilled Reservations within the Block.")
				}

				subnets, err := model.ExternalReservedSet(external)
				if err != nil {
					return false, err
				}
				return subnets.IsSubset(updateSet), nil
			},
			ErrMsg: "External Network CIDR must be in valid CIDR notation (x.x.x.x/x), must contain all existing External Subnets and cannot overlap existing External Networks, Virtual Networks or unfulfilled Reservations within the Block.",
		},
	)
}

// subnetGate allows replace /name, /desc, and /cidr on an external
// subnet.
func (s *Service) subnetGate(external *model.External, subnet *model.ExtSubnet) *patchgate.Gate {
	return patchgate.New(
		patchgate.Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(_ context.Context, value string) (bool, error) {
				for i := range external.Subnets {
					if strings.EqualFold(external.Subnets[i].Name, subnet.Name) {
						continue
					}
					if strings.EqualFold(external.Subnets[i].Name, value) {
						return false, badRequest("Updated External Subnet name cannot match existing External Subnets within the External Network.")
					}
				}
				return validate.Name(value), nil
			},
			ErrMsg: "External Subnet name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/desc",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Description(value), nil
			},
			ErrMsg: "External Subnet description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/cidr",
			Validate: func(_ context.Context, value string) (bool, error) {
				if value == subnet.CIDR {
					return true, nil
				}
				canonical, err := validate.CIDR(value)
				if err != nil {
					return false, badRequest("Updated External Subnet CIDR must be in valid CIDR notation (x.x.x.x/x).")
				}
				if canonical != value {
					return false, badRequest("Invalid CIDR value, try '%s' instead.", canonical)
				}
				externalCIDR, err := prefixset.Parse(external.CIDR)
				if err != nil {
					return false, err
				}
				updatePrefix := prefixset.MustParse(canonical)
				if !prefixset.Contains(externalCIDR.Masked(), updatePrefix) {
					return false, badRequest("Updated External Subnet CIDR must be contained within the External Network CIDR.")
				}

				var siblings []string
				for i := range external.Subnets {
					if !strings.EqualFold(external.Subnets[i].Name, subnet.Name) {
						siblings = append(siblings, external.Subnets[i].CIDR)
					}
				}
				siblingSet, err := prefixset.FromStrings(siblings)
				if err != nil {
					return false, err
				}
				updateSet := prefixset.New(updatePrefix)
				if siblingSet.Overlaps(updateSet) {
					return false, badRequest("Updated CIDR cannot overlap other External Subnets within the External Network.")
				}

				used, err := model.SubnetUsedIPs(subnet)
				if err != nil {
					return false, err
				}
				return used.IsSubset(updateSet), nil
			},
			ErrMsg: "External Subnet CIDR must be in valid CIDR notation (x.x.x.x/x), must contain all existing Endpoints and cannot overlap existing External Subnets within the External Network.",
		},
	)
}

// endpointGate allows replace /name, /desc, and /ip on an endpoint.
func (s *Service) endpointGate(subnet *model.ExtSubnet, endpoint *model.ExtEndpoint) *patchgate.Gate {
	return patchgate.New(
		patchgate.Rule{
			Op:   "replace",
			Path: "/name",
			Validate: func(_ context.Context, value string) (bool, error) {
				for i := range subnet.Endpoints {
					if strings.EqualFold(subnet.Endpoints[i].Name, endpoint.Name) {
						continue
					}
					if strings.EqualFold(subnet.Endpoints[i].Name, value) {
						return false, badRequest("Updated External Endpoint name cannot match existing External Endpoints within the External Subnet.")
					}
				}
				return validate.Name(value), nil
			},
			ErrMsg: "External Endpoint name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/desc",
			Validate: func(_ context.Context, value string) (bool, error) {
				return validate.Description(value), nil
			},
			ErrMsg: "External Endpoint description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.",
		},
		patchgate.Rule{
			Op:   "replace",
			Path: "/ip",
			Validate: func(_ context.Context, value string) (bool, error) {
				if value == endpoint.IP {
					return true, nil
				}
				addr, ok := validate.ParseIPv4(value)
				if !ok {
					return false, badRequest("Updated External Endpoint IP must be in valid IPv4 notation (x.x.x.x).")
				}
				subnetCIDR, err := prefixset.Parse(subnet.CIDR)
				if err != nil {
					return false, err
				}
				if !prefixset.ContainsAddr(subnetCIDR.Masked(), addr) {
					return false, badRequest("Updated External Endpoint IP must be contained within the External Subnet CIDR.")
				}
				for i := range subnet.Endpoints {
					if strings.EqualFold(subnet.Endpoints[i].Name, endpoint.Name) {
						continue
					}
					if subnet.Endpoints[i].IP == value {
						return false, badRequest("Updated IP cannot overlap other External Endpoints within the External Subnet.")
					}
				}
				return true, nil
			},
			ErrMsg: "External Endpoint IP must be in valid IPv4 notation (x.x.x.x) and cannot overlap existing External Endpoints within the External Subnet.",
		},
	)
}
