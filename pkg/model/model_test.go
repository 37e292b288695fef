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
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

type ModelTestSuite struct {
	suite.Suite
}

func (suite *ModelTestSuite) sampleSpace() *Space {
	return &Space{
		ID:       NewSpaceID(),
		Type:     DocType,
		TenantID: "tenant-a",
		Name:     "corp",
		Desc:     "main space",
		Blocks: []Block{
			{
				Name: "blk1",
				CIDR: "10.0.0.0/16",
				VNets: []VNetRef{
					{ID: "/subscriptions/s1/vnets/hub", Active: true},
				},
				Externals: []External{
					{
						Name: "dmz",
						Desc: "edge",
						CIDR: "10.0.2.0/24",
						Subnets: []ExtSubnet{
							{
								Name: "web",
								Desc: "frontends",
								CIDR: "10.0.2.0/26",
								Endpoints: []ExtEndpoint{
									{Name: "lb", Desc: "vip", IP: "10.0.2.4"},
								},
							},
						},
					},
				},
				Resv: []Reservation{
					{ID: "r1", CIDR: "10.0.3.0/24", Status: StatusWait},
					{
						ID:     "r2",
						CIDR:   "10.0.4.0/24",
						Status: StatusCancelledByUser,
						SettledOn: func() *float64 {
							ts := 1700000000.0
							return &ts
						}(),
					},
				},
			},
		},
	}
}

func (suite *ModelTestSuite) TestFindIsCaseInsensitiveOnNames() {
	space := suite.sampleSpace()

	block := FindBlock(space, "BLK1")
	suite.NotNil(block)

	external := FindExternal(block, "DMZ")
	suite.NotNil(external)

	subnet := FindSubnet(external, "Web")
	suite.NotNil(subnet)

	endpoint := FindEndpoint(subnet, "LB")
	suite.NotNil(endpoint)

	suite.Nil(FindBlock(space, "blk2"))
	suite.NotNil(FindReservation(block, "r1"))
	suite.Nil(FindReservation(block, "R1"), "reservation ids match exactly")
}

func (suite *ModelTestSuite) TestBlockReservedSet() {
	space := suite.sampleSpace()
	block := FindBlock(space, "blk1")

	nets := []inventory.Network{
		{
			ID: "/subscriptions/s1/vnets/hub",
			// The second prefix lies outside the block and must be ignored.
			Prefixes: []string{"10.0.1.0/24", "172.16.0.0/24"},
		},
	}

	reserved, err := BlockReservedSet(block, nets)
	suite.NoError(err)

	// vnet prefix + external + unsettled reservation; the settled one is out.
	// The adjacent external and reservation coalesce into one /23.
	suite.Equal(
		[]string{"10.0.1.0/24", "10.0.2.0/23"},
		reserved.Strings(),
	)
}

func (suite *ModelTestSuite) TestExternalAndSubnetSets() {
	space := suite.sampleSpace()
	block := FindBlock(space, "blk1")
	external := FindExternal(block, "dmz")

	subnets, err := ExternalReservedSet(external)
	suite.NoError(err)
	suite.Equal([]string{"10.0.2.0/26"}, subnets.Strings())

	used, err := SubnetUsedIPs(&external.Subnets[0])
	suite.NoError(err)
	suite.Equal(uint64(1), used.Size())
	suite.True(used.ContainsPrefix(prefixset.MustParse("10.0.2.4/32")))
}

func (suite *ModelTestSuite) TestCopyIsDeep() {
	space := suite.sampleSpace()
	copied := space.Copy()

	copied.Blocks[0].Name = "renamed"
	copied.Blocks[0].Externals[0].Subnets[0].Endpoints[0].IP = "10.0.2.9"
	copied.Blocks[0].Resv[0].Status = StatusCancelledByUser

	suite.Equal("blk1", space.Blocks[0].Name)
	suite.Equal("10.0.2.4", space.Blocks[0].Externals[0].Subnets[0].Endpoints[0].IP)
	suite.Equal(StatusWait, space.Blocks[0].Resv[0].Status)
}

func TestModelTestSuite(t *testing.T) {
	suite.Run(
		t,
		new(ModelTestSuite),
	)
}
