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

// Package validate holds the pure input checks shared by the create
// endpoints and the patch gate.
package validate

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

// Names are 1-64 characters of alphanumerics, underscores, hyphens, and
// periods; descriptions additionally allow spaces and slashes up to 128
// characters. Neither may start or end with a separator character.
var (
	nameChars = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)
	descChars = regexp.MustCompile(`^[A-Za-z0-9 /._-]{1,128}$`)
)

const (
	nameEdgeSet = "._-"
	descEdgeSet = " /._-"
)

// Name reports whether s is a valid entity name.
func Name(s string) bool {
	if !nameChars.MatchString(s) {
		return false
	}
	return !edgeIn(s, nameEdgeSet)
}

// Description reports whether s is a valid entity description.
func Description(s string) bool {
	if !descChars.MatchString(s) {
		return false
	}
	return !edgeIn(s, descEdgeSet)
}

// edgeIn reports whether the first or last byte of s is in set. The
// patterns above restrict the input to single-byte runes already.
func edgeIn(s, set string) bool {
	return strings.ContainsAny(s[:1], set) || strings.ContainsAny(s[len(s)-1:], set)
}

// CIDR parses an IPv4 CIDR string and returns its canonical form. The
// caller compares the result against the input to detect host bits.
func CIDR(s string) (string, error) {
	return prefixset.Canonical(s)
}

// IPv4 reports whether s is a plain IPv4 address.
func IPv4(s string) bool {
	return govalidator.IsIPv4(s)
}

// ParseIPv4 parses an IPv4 host address.
func ParseIPv4(s string) (netip.Addr, bool) {
	if !IPv4(s) {
		return netip.Addr{}, false
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, false
	}
	return addr, true
}
