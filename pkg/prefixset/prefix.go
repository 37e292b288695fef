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

// Package prefixset provides IPv4 prefix arithmetic and set operations over
// collections of prefixes. Sets are kept as sorted, merged address ranges so
// the free-space computations never materialize individual addresses.
package prefixset

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"github.com/apparentlymart/go-cidr/cidr"
)

// IPv4Size is the size of an IPv4 address in bits.
const IPv4Size = 32

// Parse parses an IPv4 prefix in CIDR notation. Host bits may be set; use
// Canonical to normalize them away.
func Parse(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("error parsing CIDR '%s' because %v", s, err)
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("CIDR '%s' is not IPv4", s)
	}
	return prefix, nil
}

// MustParse is Parse for static test fixtures; it panics on bad input.
func MustParse(s string) netip.Prefix {
	prefix, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return prefix.Masked()
}

// Canonical returns the canonical form of an IPv4 CIDR string, with the base
// address masked down to the prefix boundary.
func Canonical(s string) (string, error) {
	prefix, err := Parse(s)
	if err != nil {
		return "", err
	}
	return prefix.Masked().String(), nil
}

// IsCanonical reports whether s is already in canonical CIDR form.
func IsCanonical(s string) bool {
	canonical, err := Canonical(s)
	return err == nil && canonical == s
}

// Contains returns true when the subnet is a part of the network, false
// otherwise.
func Contains(network, subnet netip.Prefix) bool {
	return network.Bits() <= subnet.Bits() && network.Contains(subnet.Addr())
}

// ContainsAddr returns true when the address is inside the network.
func ContainsAddr(network netip.Prefix, addr netip.Addr) bool {
	return network.Contains(addr)
}

// Overlap reports whether the two prefixes share any address.
func Overlap(a, b netip.Prefix) bool {
	return a.Overlaps(b)
}

// Size returns the number of addresses covered by the prefix.
func Size(prefix netip.Prefix) uint64 {
	return 1 << (IPv4Size - prefix.Bits())
}

// UsableHosts returns the number of host addresses available for endpoints.
// The network and broadcast addresses are excluded; a /31 has no usable
// hosts and a /32 has exactly one.
func UsableHosts(prefix netip.Prefix) uint64 {
	switch prefix.Bits() {
	case IPv4Size:
		return 1
	case IPv4Size - 1:
		return 0
	default:
		return Size(prefix) - 2
	}
}

// Broadcast returns the last address of the prefix.
func Broadcast(prefix netip.Prefix) netip.Addr {
	_, last := cidr.AddressRange(toIPNet(prefix))
	return addrFromIP(last)
}

// FirstSubnet carves the first newBits-sized subnet out of the prefix.
func FirstSubnet(prefix netip.Prefix, newBits int) (netip.Prefix, error) {
	if newBits < prefix.Bits() || newBits > IPv4Size {
		return netip.Prefix{}, fmt.Errorf("cannot carve /%d out of %s", newBits, prefix)
	}
	carved, err := cidr.Subnet(toIPNet(prefix), newBits-prefix.Bits(), 0)
	if err != nil {
		return netip.Prefix{}, err
	}
	return fromIPNet(carved), nil
}

// LastSubnet carves the last newBits-sized subnet out of the prefix.
func LastSubnet(prefix netip.Prefix, newBits int) (netip.Prefix, error) {
	if newBits < prefix.Bits() || newBits > IPv4Size {
		return netip.Prefix{}, fmt.Errorf("cannot carve /%d out of %s", newBits, prefix)
	}
	carved, err := cidr.Subnet(toIPNet(prefix), newBits-prefix.Bits(), (1<<(newBits-prefix.Bits()))-1)
	if err != nil {
		return netip.Prefix{}, err
	}
	return fromIPNet(carved), nil
}

// Subnets enumerates every newBits-sized subnet of the prefix in ascending
// order. Callers are expected to keep newBits-prefix.Bits() small.
func Subnets(prefix netip.Prefix, newBits int) ([]netip.Prefix, error) {
	if newBits < prefix.Bits() || newBits > IPv4Size {
		return nil, fmt.Errorf("cannot carve /%d out of %s", newBits, prefix)
	}
	count := 1 << (newBits - prefix.Bits())
	subnets := make([]netip.Prefix, 0, count)
	for i := 0; i < count; i++ {
		carved, err := cidr.Subnet(toIPNet(prefix), newBits-prefix.Bits(), i)
		if err != nil {
			return nil, err
		}
		subnets = append(subnets, fromIPNet(carved))
	}
	return subnets, nil
}

// addrToDecimal converts an IPv4 address to its uint32 value.
func addrToDecimal(addr netip.Addr) uint32 {
	raw := addr.As4()
	return binary.BigEndian.Uint32(raw[:])
}

// decimalToAddr converts a uint32 value back to an IPv4 address.
func decimalToAddr(value uint32) netip.Addr {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], value)
	return netip.AddrFrom4(raw)
}

func toIPNet(prefix netip.Prefix) *net.IPNet {
	masked := prefix.Masked()
	return &net.IPNet{
		IP:   masked.Addr().AsSlice(),
		Mask: net.CIDRMask(masked.Bits(), IPv4Size),
	}
}

func fromIPNet(network *net.IPNet) netip.Prefix {
	ones, _ := network.Mask.Size()
	addr, _ := netip.AddrFromSlice(network.IP.To4())
	return netip.PrefixFrom(addr, ones)
}

func addrFromIP(ip net.IP) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip.To4())
	return addr
}
