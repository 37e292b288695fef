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

// Package alloc picks prefixes out of a free set. Three strategies:
// first-fit over the maximal free prefixes in ascending order, the same
// scan reversed, and best-fit ("smallest CIDR") which prefers the
// tightest free prefix that still satisfies the request.
package alloc

import (
	"errors"
	"net/netip"

	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

// ErrNoSpace is returned when no free prefix can satisfy the requested
// size.
var ErrNoSpace = errors.New("network of requested size unavailable")

// Request describes one allocation.
type Request struct {
	// Size is the requested prefix length when CIDR is empty.
	Size int `json:"size,omitempty"`
	// CIDR requests one specific prefix instead of a size.
	CIDR string `json:"cidr,omitempty"`
	// ReverseSearch scans the free prefixes from the end of the container
	// and carves from the end of the chosen prefix.
	ReverseSearch bool `json:"reverse_search,omitempty"`
	// SmallestCIDR switches to best-fit.
	SmallestCIDR bool `json:"smallest_cidr,omitempty"`
}

// BySize returns a size-length prefix carved out of the free set, or
// ErrNoSpace. The chosen free prefix is the first (per scan direction)
// whose length is at most size; with smallest set, it is the one with the
// greatest length, ties broken by the same scan order.
func BySize(free prefixset.Set, size int, reverse, smallest bool) (netip.Prefix, error) {
	if size < 0 || size > prefixset.IPv4Size {
		return netip.Prefix{}, ErrNoSpace
	}

	candidates := free.IterCIDRs()
	if reverse {
		for i, j := 0, len(candidates)-1; i < j; i, j = i+1, j-1 {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
	}

	var chosen netip.Prefix
	found := false
	if smallest {
		for _, candidate := range candidates {
			if candidate.Bits() > size {
				continue
			}
			if !found || candidate.Bits() > chosen.Bits() {
				chosen = candidate
				found = true
			}
		}
	} else {
		for _, candidate := range candidates {
			if candidate.Bits() <= size {
				chosen = candidate
				found = true
				break
			}
		}
	}
	if !found {
		return netip.Prefix{}, ErrNoSpace
	}

	if reverse {
		return prefixset.LastSubnet(chosen, size)
	}
	return prefixset.FirstSubnet(chosen, size)
}

// Fits reports whether the explicit prefix is wholly inside the free set.
func Fits(free prefixset.Set, cidr netip.Prefix) bool {
	return free.ContainsPrefix(cidr)
}
