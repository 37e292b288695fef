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

package alloc

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

type AllocTestSuite struct {
	suite.Suite
}

func freeSet(suite *AllocTestSuite, block string, claimed ...string) prefixset.Set {
	blockSet := prefixset.New(prefixset.MustParse(block))
	claimedSet, err := prefixset.FromStrings(claimed)
	suite.Require().NoError(err)
	return blockSet.Difference(claimedSet)
}

func (suite *AllocTestSuite) TestFirstFit() {
	free := freeSet(suite, "10.0.0.0/16")

	got, err := BySize(free, 24, false, false)
	suite.NoError(err)
	suite.Equal("10.0.0.0/24", got.String())
}

func (suite *AllocTestSuite) TestReverseSearch() {
	free := freeSet(suite, "10.0.0.0/16")

	got, err := BySize(free, 24, true, false)
	suite.NoError(err)
	suite.Equal("10.0.255.0/24", got.String())
}

func (suite *AllocTestSuite) TestFirstFitSkipsTooSmallPrefixes() {
	// Free space: a /26 splinter ahead of a large /17. A /24 cannot come
	// out of the /26, so first-fit lands at the start of the /17.
	free := freeSet(suite, "10.0.0.0/16", "10.0.0.64/26", "10.0.0.128/25", "10.0.1.0/24", "10.0.2.0/23", "10.0.4.0/22", "10.0.8.0/21", "10.0.16.0/20", "10.0.32.0/19", "10.0.64.0/18")

	got, err := BySize(free, 24, false, false)
	suite.NoError(err)
	suite.Equal("10.0.128.0/24", got.String())
}

func (suite *AllocTestSuite) TestSmallestCIDRBestFit() {
	// Half the block is claimed; the free set is exactly 10.0.128.0/17.
	free := freeSet(suite, "10.0.0.0/16", "10.0.0.0/17")

	got, err := BySize(free, 24, false, true)
	suite.NoError(err)
	suite.Equal("10.0.128.0/24", got.String())

	// With a tighter candidate available, best-fit prefers it over the
	// big one even though the big one comes first.
	free = freeSet(suite, "10.0.0.0/16", "10.0.0.0/24", "10.0.2.0/23", "10.0.4.0/22", "10.0.8.0/21", "10.0.16.0/20", "10.0.32.0/19", "10.0.64.0/18")
	// Free: 10.0.1.0/24 and 10.0.128.0/17.
	suite.Equal([]string{"10.0.1.0/24", "10.0.128.0/17"}, free.Strings())

	got, err = BySize(free, 24, false, true)
	suite.NoError(err)
	suite.Equal("10.0.1.0/24", got.String())
}

func (suite *AllocTestSuite) TestSmallestCIDRReverseCarvesFromEnd() {
	free := freeSet(suite, "10.0.0.0/16", "10.0.0.0/17")

	got, err := BySize(free, 24, true, true)
	suite.NoError(err)
	suite.Equal("10.0.255.0/24", got.String())
}

func (suite *AllocTestSuite) TestExactFitAndExhaustion() {
	free := freeSet(suite, "10.0.0.0/24")

	got, err := BySize(free, 24, false, false)
	suite.NoError(err)
	suite.Equal("10.0.0.0/24", got.String())

	// Nothing satisfies a shorter prefix than the whole free space.
	_, err = BySize(free, 23, false, false)
	suite.ErrorIs(err, ErrNoSpace)

	// Empty free set.
	_, err = BySize(prefixset.Set{}, 24, false, false)
	suite.ErrorIs(err, ErrNoSpace)
}

func (suite *AllocTestSuite) TestFits() {
	free := freeSet(suite, "10.0.0.0/16", "10.0.1.0/24")

	suite.True(Fits(free, prefixset.MustParse("10.0.2.0/24")))
	suite.False(Fits(free, prefixset.MustParse("10.0.1.128/25")))
	suite.False(Fits(free, prefixset.MustParse("10.1.0.0/24")))
}

func TestAllocTestSuite(t *testing.T) {
	suite.Run(
		t,
		new(AllocTestSuite),
	)
}
