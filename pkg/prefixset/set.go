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

package prefixset

import (
	"math/bits"
	"net/netip"
	"sort"
	"strings"
)

// ipRange is an inclusive span of IPv4 addresses.
type ipRange struct {
	lo uint32
	hi uint32
}

// Set is an immutable-by-convention set of IPv4 addresses held as sorted,
// disjoint, merged ranges. The zero value is the empty set.
type Set struct {
	ranges []ipRange
}

// New returns a set covering the given prefixes.
func New(prefixes ...netip.Prefix) Set {
	var set Set
	for _, prefix := range prefixes {
		set = set.Union(fromPrefix(prefix))
	}
	return set
}

// FromStrings builds a set from CIDR strings. Host bits are masked away.
func FromStrings(cidrs []string) (Set, error) {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, raw := range cidrs {
		prefix, err := Parse(raw)
		if err != nil {
			return Set{}, err
		}
		prefixes = append(prefixes, prefix.Masked())
	}
	return New(prefixes...), nil
}

// FromAddrs builds a set from individual addresses.
func FromAddrs(addrs []netip.Addr) Set {
	var set Set
	for _, addr := range addrs {
		value := addrToDecimal(addr)
		set = set.Union(Set{ranges: []ipRange{{lo: value, hi: value}}})
	}
	return set
}

// HostSet returns the usable host addresses of a prefix as a set, applying
// the same exclusions as UsableHosts.
func HostSet(prefix netip.Prefix) Set {
	masked := prefix.Masked()
	lo := addrToDecimal(masked.Addr())
	hi := addrToDecimal(Broadcast(masked))
	switch masked.Bits() {
	case IPv4Size:
		return Set{ranges: []ipRange{{lo: lo, hi: lo}}}
	case IPv4Size - 1:
		return Set{}
	default:
		return Set{ranges: []ipRange{{lo: lo + 1, hi: hi - 1}}}
	}
}

func fromPrefix(prefix netip.Prefix) Set {
	masked := prefix.Masked()
	return Set{ranges: []ipRange{{
		lo: addrToDecimal(masked.Addr()),
		hi: addrToDecimal(Broadcast(masked)),
	}}}
}

// IsEmpty reports whether the set contains no addresses.
func (s Set) IsEmpty() bool {
	return len(s.ranges) == 0
}

// Size returns the number of addresses in the set.
func (s Set) Size() uint64 {
	var total uint64
	for _, r := range s.ranges {
		total += uint64(r.hi-r.lo) + 1
	}
	return total
}

// Union returns the set of addresses in either set.
func (s Set) Union(other Set) Set {
	merged := make([]ipRange, 0, len(s.ranges)+len(other.ranges))
	merged = append(merged, s.ranges...)
	merged = append(merged, other.ranges...)
	sort.Slice(merged, func(i, j int) bool { return merged[i].lo < merged[j].lo })

	var out []ipRange
	for _, r := range merged {
		if len(out) == 0 {
			out = append(out, r)
			continue
		}
		last := &out[len(out)-1]
		// Merge overlapping and adjacent ranges.
		if r.lo <= last.hi || (last.hi != ^uint32(0) && r.lo == last.hi+1) {
			if r.hi > last.hi {
				last.hi = r.hi
			}
			continue
		}
		out = append(out, r)
	}
	return Set{ranges: out}
}

// Intersect returns the set of addresses in both sets.
func (s Set) Intersect(other Set) Set {
	var out []ipRange
	i, j := 0, 0
	for i < len(s.ranges) && j < len(other.ranges) {
		a, b := s.ranges[i], other.ranges[j]
		lo := maxU32(a.lo, b.lo)
		hi := minU32(a.hi, b.hi)
		if lo <= hi {
			out = append(out, ipRange{lo: lo, hi: hi})
		}
		if a.hi < b.hi {
			i++
		} else {
			j++
		}
	}
	return Set{ranges: out}
}

// Difference returns the addresses in s that are not in other.
func (s Set) Difference(other Set) Set {
	var out []ipRange
	for _, r := range s.ranges {
		lo := r.lo
		covered := false
		for _, cut := range other.ranges {
			if cut.hi < lo || cut.lo > r.hi {
				continue
			}
			if cut.lo > lo {
				out = append(out, ipRange{lo: lo, hi: cut.lo - 1})
			}
			if cut.hi >= r.hi {
				covered = true
				break
			}
			lo = cut.hi + 1
		}
		if !covered {
			out = append(out, ipRange{lo: lo, hi: r.hi})
		}
	}
	return Set{ranges: out}
}

// Xor returns the symmetric difference of the two sets.
func (s Set) Xor(other Set) Set {
	return s.Difference(other).Union(other.Difference(s))
}

// Overlaps reports whether the two sets share any address.
func (s Set) Overlaps(other Set) bool {
	return !s.Intersect(other).IsEmpty()
}

// IsSubset reports whether every address of s is contained in other.
func (s Set) IsSubset(other Set) bool {
	return s.Difference(other).IsEmpty()
}

// ContainsPrefix reports whether the entire prefix is inside the set.
func (s Set) ContainsPrefix(prefix netip.Prefix) bool {
	return fromPrefix(prefix).IsSubset(s)
}

// ContainsAddr reports whether the address is in the set.
func (s Set) ContainsAddr(addr netip.Addr) bool {
	value := addrToDecimal(addr)
	for _, r := range s.ranges {
		if value >= r.lo && value <= r.hi {
			return true
		}
	}
	return false
}

// IterCIDRs returns the set as the minimal list of maximal prefixes, in
// ascending network order. No two returned prefixes are coalescable.
func (s Set) IterCIDRs() []netip.Prefix {
	var out []netip.Prefix
	for _, r := range s.ranges {
		out = append(out, rangeToCIDRs(r.lo, r.hi)...)
	}
	return out
}

// Strings returns IterCIDRs in string form.
func (s Set) Strings() []string {
	prefixes := s.IterCIDRs()
	out := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		out[i] = prefix.String()
	}
	return out
}

// String renders the set for logs and error messages.
func (s Set) String() string {
	return "[" + strings.Join(s.Strings(), " ") + "]"
}

// FirstAddr returns the lowest address of the set.
func (s Set) FirstAddr() (netip.Addr, bool) {
	if s.IsEmpty() {
		return netip.Addr{}, false
	}
	return decimalToAddr(s.ranges[0].lo), true
}

// rangeToCIDRs splits an inclusive address range into maximal prefixes.
// At every step the block size is limited by the alignment of lo and by the
// number of addresses remaining through hi.
func rangeToCIDRs(lo, hi uint32) []netip.Prefix {
	var out []netip.Prefix
	for {
		maxBits := bits.TrailingZeros32(lo)
		if lo == 0 {
			maxBits = IPv4Size
		}
		span := uint64(hi-lo) + 1
		spanBits := 0
		for uint64(1)<<(spanBits+1) <= span {
			spanBits++
		}
		if spanBits < maxBits {
			maxBits = spanBits
		}
		out = append(out, netip.PrefixFrom(decimalToAddr(lo), IPv4Size-maxBits))
		step := uint64(1) << maxBits
		if uint64(lo)+step > uint64(hi) {
			return out
		}
		lo += uint32(step)
	}
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
