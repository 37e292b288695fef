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

package model

import (
	"net/netip"

	"github.com/pkg/errors"

	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

// VNetPrefixesInBlock returns the network's prefixes that fall inside the
// block CIDR. Prefixes outside the block are ignored so a network with
// extraneous address space cannot poison the reserved set.
func VNetPrefixesInBlock(blockCIDR netip.Prefix, net inventory.Network) []netip.Prefix {
	var out []netip.Prefix
	for _, raw := range net.Prefixes {
		prefix, err := prefixset.Parse(raw)
		if err != nil {
			continue
		}
		if prefixset.Contains(blockCIDR, prefix.Masked()) {
			out = append(out, prefix.Masked())
		}
	}
	return out
}

// BlockCIDRPrefix parses the block's CIDR.
func BlockCIDRPrefix(block *Block) (netip.Prefix, error) {
	prefix, err := prefixset.Parse(block.CIDR)
	if err != nil {
		return netip.Prefix{}, errors.Wrapf(err, "block %s carries an unparsable CIDR", block.Name)
	}
	return prefix.Masked(), nil
}

// BlockReservedSet returns every address claimed inside the block: the
// inventory prefixes of attached networks intersected with the block CIDR,
// the external network CIDRs, and the unsettled reservation CIDRs.
func BlockReservedSet(block *Block, nets []inventory.Network) (prefixset.Set, error) {
	blockCIDR, err := BlockCIDRPrefix(block)
	if err != nil {
		return prefixset.Set{}, err
	}

	var claimed []netip.Prefix
	for _, ref := range block.VNets {
		net, found := inventory.Find(nets, ref.ID)
		if !found {
			continue
		}
		claimed = append(claimed, VNetPrefixesInBlock(blockCIDR, net)...)
	}
	for i := range block.Externals {
		prefix, err := prefixset.Parse(block.Externals[i].CIDR)
		if err != nil {
			return prefixset.Set{}, errors.Wrapf(err, "external %s carries an unparsable CIDR", block.Externals[i].Name)
		}
		claimed = append(claimed, prefix.Masked())
	}
	for i := range block.Resv {
		if block.Resv[i].Settled() {
			continue
		}
		prefix, err := prefixset.Parse(block.Resv[i].CIDR)
		if err != nil {
			return prefixset.Set{}, errors.Wrapf(err, "reservation %s carries an unparsable CIDR", block.Resv[i].ID)
		}
		claimed = append(claimed, prefix.Masked())
	}
	return prefixset.New(claimed...), nil
}

// ExternalReservedSet returns the union of the external network's subnet
// CIDRs.
func ExternalReservedSet(external *External) (prefixset.Set, error) {
	cidrs := make([]string, 0, len(external.Subnets))
	for i := range external.Subnets {
		cidrs = append(cidrs, external.Subnets[i].CIDR)
	}
	set, err := prefixset.FromStrings(cidrs)
	if err != nil {
		return prefixset.Set{}, errors.Wrapf(err, "external %s carries an unparsable subnet CIDR", external.Name)
	}
	return set, nil
}

// SubnetUsedIPs returns the endpoint addresses already taken in a subnet.
func SubnetUsedIPs(subnet *ExtSubnet) (prefixset.Set, error) {
	addrs := make([]netip.Addr, 0, len(subnet.Endpoints))
	for i := range subnet.Endpoints {
		addr, err := netip.ParseAddr(subnet.Endpoints[i].IP)
		if err != nil {
			return prefixset.Set{}, errors.Wrapf(err, "endpoint %s carries an unparsable IP", subnet.Endpoints[i].Name)
		}
		addrs = append(addrs, addr)
	}
	return prefixset.FromAddrs(addrs), nil
}
