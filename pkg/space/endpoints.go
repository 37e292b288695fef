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
	"net/netip"
	"strings"

	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
	"github.com/RedMane/ipam-engine/pkg/validate"
)

// The endpoint routes report a missing subnet with their own wording.
const msgInvalidSubnetForEndpoint = "Invalid external network subnet name."

// ListEndpoints returns the subnet's endpoints.
func (s *Service) ListEndpoints(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string) ([]model.ExtEndpoint, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, msgInvalidSubnetForEndpoint)
	if err != nil {
		return nil, err
	}
	return subnet.Endpoints, nil
}

// GetEndpoint returns one endpoint.
func (s *Service) GetEndpoint(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName, endpointName string) (*model.ExtEndpoint, error) {
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
	endpoint := model.FindEndpoint(subnet, endpointName)
	if endpoint == nil {
		return nil, badRequest("Invalid external subnet endpoint name.")
	}
	return endpoint, nil
}

// CreateEndpoint adds an endpoint to a subnet. A nil IP takes the first
// free host address; the network and broadcast addresses are never
// handed out.
func (s *Service) CreateEndpoint(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string, req EndpointRequest) (*model.ExtEndpoint, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	var created *model.ExtEndpoint
	err := s.withRetry(ctx, "Error creating external network subnet endpoint, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, msgInvalidSubnetForEndpoint)
		if err != nil {
			return err
		}
		if model.FindEndpoint(subnet, req.Name) != nil {
			return badRequest("Target endpoint name overlaps existing endpoint name.")
		}
		if !validate.Name(req.Name) {
			return badRequest("Endpoint names can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.")
		}
		if !validate.Description(req.Desc) {
			return badRequest("Endpoint descriptions can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.")
		}

		subnetCIDR, err := prefixset.Parse(subnet.CIDR)
		if err != nil {
			return err
		}
		if uint64(len(subnet.Endpoints)) >= prefixset.UsableHosts(subnetCIDR.Masked()) {
			return badRequest("External subnet has reached maximum available host addresses.")
		}

		used, err := model.SubnetUsedIPs(subnet)
		if err != nil {
			return err
		}

		ip := ""
		if req.IP != nil {
			addr, ok := validate.ParseIPv4(*req.IP)
			if !ok {
				return badRequest("Target endpoint IP address outside the external subnet CIDR.")
			}
			if used.ContainsAddr(addr) {
				return badRequest("Target endpoint IP address overlaps existing endpoint IP address.")
			}
			if !prefixset.ContainsAddr(subnetCIDR.Masked(), addr) {
				return badRequest("Target endpoint IP address outside the external subnet CIDR.")
			}
			ip = *req.IP
		} else {
			free := prefixset.HostSet(subnetCIDR.Masked()).Difference(used)
			addr, ok := free.FirstAddr()
			if !ok {
				return badRequest("External subnet has reached maximum available host addresses.")
			}
			ip = addr.String()
		}

		endpoint := model.ExtEndpoint{Name: req.Name, Desc: req.Desc, IP: ip}
		subnet.Endpoints = append(subnet.Endpoints, endpoint)
		created = &endpoint
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ReplaceEndpoints swaps the subnet's endpoint list wholesale. Explicit
// addresses are checked for duplicates and containment; missing ones are
// auto-assigned from the free hosts.
func (s *Service) ReplaceEndpoints(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string, reqs []EndpointRequest) ([]model.ExtEndpoint, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminOnly)
	}

	names := make([]string, len(reqs))
	for i, req := range reqs {
		names[i] = req.Name
	}
	if hasDuplicates(names) {
		return nil, badRequest("List cannot contain duplicate endpoint names.")
	}
	for _, req := range reqs {
		if !validate.Name(req.Name) {
			return nil, badRequest("Endpoint names can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.")
		}
		if !validate.Description(req.Desc) {
			return nil, badRequest("Endpoint descriptions can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.")
		}
	}

	var replaced []model.ExtEndpoint
	err := s.withRetry(ctx, "Error updating external network subnet endpoints, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, msgInvalidSubnetForEndpoint)
		if err != nil {
			return err
		}

		subnetCIDR, err := prefixset.Parse(subnet.CIDR)
		if err != nil {
			return err
		}
		hosts := prefixset.HostSet(subnetCIDR.Masked())
		if hosts.Size() < uint64(len(reqs)) {
			return badRequest("Number of endpoints exceeds available host addresses in subnet.")
		}

		var taken prefixset.Set
		for _, req := range reqs {
			if req.IP == nil {
				continue
			}
			addr, ok := validate.ParseIPv4(*req.IP)
			if !ok {
				return badRequest("List contains endpoint IP addresses outside the subnet CIDR.")
			}
			if taken.ContainsAddr(addr) {
				return badRequest("List cannot contain overlapping endpoint IP addresses.")
			}
			taken = taken.Union(prefixset.FromAddrs([]netip.Addr{addr}))
		}
		if !taken.IsSubset(prefixset.New(subnetCIDR.Masked())) {
			return badRequest("List contains endpoint IP addresses outside the subnet CIDR.")
		}

		endpoints := make([]model.ExtEndpoint, 0, len(reqs))
		for _, req := range reqs {
			entry := model.ExtEndpoint{Name: req.Name, Desc: req.Desc}
			if req.IP != nil {
				entry.IP = *req.IP
			} else {
				free := hosts.Difference(taken)
				addr, ok := free.FirstAddr()
				if !ok {
					return badRequest("Number of endpoints exceeds available host addresses in subnet.")
				}
				taken = taken.Union(prefixset.FromAddrs([]netip.Addr{addr}))
				entry.IP = addr.String()
			}
			endpoints = append(endpoints, entry)
		}

		subnet.Endpoints = endpoints
		replaced = endpoints
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return replaced, nil
}

// DeleteEndpoints removes the named endpoints from a subnet.
func (s *Service) DeleteEndpoints(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName string, names []string) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminOnly)
	}

	return s.withRetry(ctx, "Error removing external network subnet endpoints, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, msgInvalidSubnetForEndpoint)
		if err != nil {
			return err
		}
		if hasDuplicates(names) {
			return badRequest("List contains one or more duplicate endpoint names.")
		}

		var missing []string
		for _, name := range names {
			if model.FindEndpoint(subnet, name) == nil {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return badRequest("Invalid endpoint name(s): %s.", pyList(missing))
		}

		kept := subnet.Endpoints[:0]
		for _, endpoint := range subnet.Endpoints {
			remove := false
			for _, name := range names {
				if strings.EqualFold(endpoint.Name, name) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, endpoint)
			}
		}
		subnet.Endpoints = kept
		return s.replaceSpace(ctx, doc, target)
	})
}

// UpdateEndpoint applies a validated JSON patch (replace /name, /desc,
// /ip).
func (s *Service) UpdateEndpoint(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName, endpointName string, rawPatch []byte) (*model.ExtEndpoint, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var updated *model.ExtEndpoint
	err := s.withRetry(ctx, "Error updating external endpoint, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, "Invalid external subnet name.")
		if err != nil {
			return err
		}
		endpoint := model.FindEndpoint(subnet, endpointName)
		if endpoint == nil {
			return badRequest("Invalid external endpoint name.")
		}
		if err := applyPatch(ctx, s.endpointGate(subnet, endpoint), rawPatch, endpoint); err != nil {
			return err
		}
		updated = endpoint
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteEndpoint removes one endpoint.
func (s *Service) DeleteEndpoint(ctx context.Context, ac *auth.Context, spaceName, blockName, externalName, subnetName, endpointName string) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminOnly)
	}

	return s.withRetry(ctx, "Error removing external subnet endpoint, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		_, _, subnet, err := resolveSubnet(target, blockName, externalName, subnetName, "Invalid external subnet name.")
		if err != nil {
			return err
		}
		index := -1
		for i := range subnet.Endpoints {
			if strings.EqualFold(subnet.Endpoints[i].Name, endpointName) {
				index = i
				break
			}
		}
		if index < 0 {
			return badRequest("Invalid endpoint name.")
		}
		subnet.Endpoints = append(subnet.Endpoints[:index], subnet.Endpoints[index+1:]...)
		return s.replaceSpace(ctx, doc, target)
	})
}
