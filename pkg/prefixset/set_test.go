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
	"net/netip"
	"testing"

	"github.com/stretchr/testify/suite"
)

func mustAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}

type SetTestSuite struct {
	suite.Suite
}

func (suite *SetTestSuite) TestCanonical() {
	tests := []struct {
		in        string
		expected  string
		expectErr bool
	}{
		{in: "10.0.0.0/16", expected: "10.0.0.0/16"},
		{in: "10.0.0.1/24", expected: "10.0.0.0/24"},
		{in: "192.168.1.128/25", expected: "192.168.1.128/25"},
		{in: "10.0.0.0", expectErr: true},
		{in: "10.0.0.0/33", expectErr: true},
		{in: "fd00::/64", expectErr: true},
		{in: "bogus", expectErr: true},
	}

	for _, test := range tests {
		canonical, err := Canonical(test.in)
		if test.expectErr {
			suite.Error(err, test.in)
			continue
		}
		suite.NoError(err, test.in)
		suite.Equal(test.expected, canonical)
	}
}

func (suite *SetTestSuite) TestContainsAndOverlap() {
	suite.True(Contains(MustParse("10.0.0.0/16"), MustParse("10.0.4.0/24")))
	suite.True(Contains(MustParse("10.0.0.0/16"), MustParse("10.0.0.0/16")))
	suite.False(Contains(MustParse("10.0.4.0/24"), MustParse("10.0.0.0/16")))
	suite.False(Contains(MustParse("10.0.0.0/16"), MustParse("10.1.0.0/24")))
	suite.True(Overlap(MustParse("10.0.0.0/16"), MustParse("10.0.255.0/24")))
	suite.False(Overlap(MustParse("10.0.0.0/17"), MustParse("10.0.128.0/17")))
}

func (suite *SetTestSuite) TestSizeAndHosts() {
	suite.Equal(uint64(65536), Size(MustParse("10.0.0.0/16")))
	suite.Equal(uint64(1), Size(MustParse("10.0.0.7/32")))
	suite.Equal(uint64(254), UsableHosts(MustParse("192.168.0.0/24")))
	suite.Equal(uint64(0), UsableHosts(MustParse("192.168.0.0/31")))
	suite.Equal(uint64(1), UsableHosts(MustParse("192.168.0.4/32")))
	suite.Equal(uint64(2), UsableHosts(MustParse("192.168.0.0/30")))
}

func (suite *SetTestSuite) TestFirstAndLastSubnet() {
	first, err := FirstSubnet(MustParse("10.0.0.0/16"), 24)
	suite.NoError(err)
	suite.Equal("10.0.0.0/24", first.String())

	last, err := LastSubnet(MustParse("10.0.0.0/16"), 24)
	suite.NoError(err)
	suite.Equal("10.0.255.0/24", last.String())

	_, err = FirstSubnet(MustParse("10.0.0.0/24"), 16)
	suite.Error(err)
}

func (suite *SetTestSuite) TestIterCIDRsCoalesces() {
	set, err := FromStrings([]string{"10.0.1.0/24", "10.0.0.0/24", "10.0.2.0/24", "10.0.3.0/24"})
	suite.NoError(err)
	suite.Equal([]string{"10.0.0.0/22"}, set.Strings())

	// Non-adjacent prefixes stay separate and come back in ascending order.
	set, err = FromStrings([]string{"10.0.4.0/24", "10.0.0.0/24"})
	suite.NoError(err)
	suite.Equal([]string{"10.0.0.0/24", "10.0.4.0/24"}, set.Strings())
}

func (suite *SetTestSuite) TestIterCIDRsMaximal() {
	// 10.0.0.0/16 minus 10.0.0.0/17 leaves exactly the upper half.
	free := New(MustParse("10.0.0.0/16")).Difference(New(MustParse("10.0.0.0/17")))
	suite.Equal([]string{"10.0.128.0/17"}, free.Strings())

	// Punching a /24 out of the middle produces maximal prefixes on both sides.
	free = New(MustParse("10.0.0.0/16")).Difference(New(MustParse("10.0.16.0/24")))
	suite.Equal(
		[]string{
			"10.0.0.0/20",
			"10.0.17.0/24",
			"10.0.18.0/23",
			"10.0.20.0/22",
			"10.0.24.0/21",
			"10.0.32.0/19",
			"10.0.64.0/18",
			"10.0.128.0/17",
		},
		free.Strings(),
	)
}

func (suite *SetTestSuite) TestSetAlgebra() {
	block := New(MustParse("10.0.0.0/16"))
	claimed, err := FromStrings([]string{"10.0.0.0/24", "10.0.64.0/18"})
	suite.NoError(err)

	suite.True(claimed.IsSubset(block))
	suite.False(block.IsSubset(claimed))

	free := block.Difference(claimed)
	suite.Equal(block.Size(), free.Size()+claimed.Size())
	suite.False(free.Overlaps(claimed))
	suite.Equal(block, free.Union(claimed))

	// Xor equals difference when the right side is a subset of the left.
	suite.Equal(block.Xor(claimed), free)

	suite.True(free.ContainsPrefix(MustParse("10.0.1.0/24")))
	suite.False(free.ContainsPrefix(MustParse("10.0.64.0/24")))
}

func (suite *SetTestSuite) TestHostSet() {
	hosts := HostSet(MustParse("192.168.0.0/30"))
	suite.Equal(uint64(2), hosts.Size())
	suite.True(hosts.ContainsAddr(mustAddr("192.168.0.1")))
	suite.True(hosts.ContainsAddr(mustAddr("192.168.0.2")))
	suite.False(hosts.ContainsAddr(mustAddr("192.168.0.0")))
	suite.False(hosts.ContainsAddr(mustAddr("192.168.0.3")))

	suite.True(HostSet(MustParse("10.0.0.0/31")).IsEmpty())
	suite.Equal(uint64(1), HostSet(MustParse("10.0.0.9/32")).Size())
}

func (suite *SetTestSuite) TestFirstAddr() {
	set, err := FromStrings([]string{"10.0.4.0/24"})
	suite.NoError(err)
	addr, ok := set.FirstAddr()
	suite.True(ok)
	suite.Equal("10.0.4.0", addr.String())

	_, ok = Set{}.FirstAddr()
	suite.False(ok)
}

func TestSetTestSuite(t *testing.T) {
	suite.Run(
		t,
		new(SetTestSuite),
	)
}
