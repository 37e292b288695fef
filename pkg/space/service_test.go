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
	"encoding/base64"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/docstore"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
)

const testTenant = "tenant-a"

func testToken(user string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload := base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf(`{"preferred_username":%q}`, user)))
	return header + "." + payload + "."
}

func adminCtx() *auth.Context {
	return &auth.Context{
		TenantID:      testTenant,
		IsAdmin:       true,
		UserAssertion: testToken("admin@example.com"),
	}
}

func userCtx(name string) *auth.Context {
	return &auth.Context{
		TenantID:      testTenant,
		IsAdmin:       false,
		UserAssertion: testToken(name),
	}
}

type ServiceTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *docstore.MemStore
	inv   *inventory.Static
	svc   *Service
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = docstore.NewMemStore()
	suite.inv = &inventory.Static{}
	suite.svc = New(suite.store, suite.inv, zaptest.NewLogger(suite.T()))
}

// seed creates a space and a block for the common scenarios.
func (suite *ServiceTestSuite) seed(blockCIDR string) {
	_, err := suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "corp", Desc: "main"})
	suite.Require().NoError(err)
	_, err = suite.svc.CreateBlock(suite.ctx, adminCtx(), "corp", BlockRequest{Name: "blk1", CIDR: blockCIDR})
	suite.Require().NoError(err)
}

func (suite *ServiceTestSuite) TestCreateSpaceValidation() {
	// Admin gate.
	_, err := suite.svc.CreateSpace(suite.ctx, userCtx("bob@example.com"), SpaceRequest{Name: "corp", Desc: "main"})
	suite.assertKind(err, KindForbidden, "This API is admin restricted.")

	// Bad name.
	_, err = suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "-corp", Desc: "main"})
	suite.assertKind(err, KindBadRequest, "")

	// Duplicate, case-insensitively.
	_, err = suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "corp", Desc: "main"})
	suite.Require().NoError(err)
	_, err = suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "CORP", Desc: "other"})
	suite.assertKind(err, KindBadRequest, "Space name must be unique.")
}

func (suite *ServiceTestSuite) assertKind(err error, kind Kind, detail string) {
	suite.Require().Error(err)
	typed, ok := err.(*Error)
	suite.Require().True(ok, "expected *space.Error, got %T: %v", err, err)
	suite.Equal(kind, typed.Kind)
	if detail != "" {
		suite.Equal(detail, typed.Detail)
	}
}

func (suite *ServiceTestSuite) TestBlockCreateChecks() {
	suite.seed("10.0.0.0/16")

	// Non-canonical CIDR gets the canonical suggestion.
	_, err := suite.svc.CreateBlock(suite.ctx, adminCtx(), "corp", BlockRequest{Name: "blk2", CIDR: "10.1.0.1/24"})
	suite.assertKind(err, KindBadRequest, "Invalid CIDR value, Try '10.1.0.0/24' instead.")

	// Overlap with the existing block.
	_, err = suite.svc.CreateBlock(suite.ctx, adminCtx(), "corp", BlockRequest{Name: "blk2", CIDR: "10.0.128.0/17"})
	suite.assertKind(err, KindBadRequest, "New block cannot overlap existing blocks.")

	// Unknown space surfaces as a bad request.
	_, err = suite.svc.CreateBlock(suite.ctx, adminCtx(), "nope", BlockRequest{Name: "blk2", CIDR: "10.1.0.0/24"})
	suite.assertKind(err, KindBadRequest, "Invalid space name.")
}

func (suite *ServiceTestSuite) TestReservationFirstFit() {
	suite.seed("10.0.0.0/16")

	resv, err := suite.svc.CreateReservation(suite.ctx, userCtx("alice@example.com"), "corp", "blk1", ReservationRequest{Size: 24, Desc: "bu1"})
	suite.Require().NoError(err)
	suite.Equal("10.0.0.0/24", resv.CIDR)
	suite.Equal(model.StatusWait, resv.Status)
	suite.Equal("alice@example.com", resv.CreatedBy)
	suite.Equal("corp", resv.Space)
	suite.Equal("blk1", resv.Block)
	suite.NotEmpty(resv.ID)
	suite.Nil(resv.SettledOn)
}

func (suite *ServiceTestSuite) TestReservationReverseSearch() {
	suite.seed("10.0.0.0/16")

	resv, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24, ReverseSearch: true})
	suite.Require().NoError(err)
	suite.Equal("10.0.255.0/24", resv.CIDR)
}

func (suite *ServiceTestSuite) TestReservationSmallestCIDR() {
	suite.seed("10.0.0.0/16")

	half := "10.0.0.0/17"
	_, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &half})
	suite.Require().NoError(err)

	resv, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24, SmallestCIDR: true})
	suite.Require().NoError(err)
	suite.Equal("10.0.128.0/24", resv.CIDR)
}

func (suite *ServiceTestSuite) TestReservationExplicitOverlapConflicts() {
	suite.seed("10.0.0.0/16")

	first := "10.0.1.0/24"
	_, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &first})
	suite.Require().NoError(err)

	second := "10.0.1.128/25"
	_, err = suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &second})
	suite.assertKind(err, KindConflict, "Requested CIDR overlaps existing network(s).")

	bad := "bogus"
	_, err = suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &bad})
	suite.assertKind(err, KindBadRequest, "Invalid network CIDR format.")
}

func (suite *ServiceTestSuite) TestReservationExhaustionIsUnavailable() {
	suite.seed("10.0.0.0/24")

	_, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 23})
	suite.assertKind(err, KindUnavailable, "Network of requested size unavailable in target block.")
}

func (suite *ServiceTestSuite) TestMultiBlockFallback() {
	suite.seed("10.0.0.0/24")
	_, err := suite.svc.CreateBlock(suite.ctx, adminCtx(), "corp", BlockRequest{Name: "blk2", CIDR: "10.1.0.0/16"})
	suite.Require().NoError(err)

	// blk1 cannot fit a /20; the fallback settles on blk2.
	resv, err := suite.svc.ReserveMultiBlock(suite.ctx, userCtx("alice@example.com"), "corp", MultiBlockRequest{
		Blocks: []string{"blk1", "blk2"},
		Size:   20,
	})
	suite.Require().NoError(err)
	suite.Equal("blk2", resv.Block)
	suite.Equal("10.1.0.0/20", resv.CIDR)

	// Unknown block names are rejected up front.
	_, err = suite.svc.ReserveMultiBlock(suite.ctx, adminCtx(), "corp", MultiBlockRequest{
		Blocks: []string{"blk1", "missing"},
		Size:   24,
	})
	suite.assertKind(err, KindBadRequest, "Invalid Block(s) in Block list: ['missing'].")

	// Nothing fits anywhere.
	_, err = suite.svc.ReserveMultiBlock(suite.ctx, adminCtx(), "corp", MultiBlockRequest{
		Blocks: []string{"blk1"},
		Size:   20,
	})
	suite.assertKind(err, KindUnavailable, "Network of requested size unavailable in target block(s).")
}

func (suite *ServiceTestSuite) TestExternalExplicitOverlap() {
	suite.seed("10.0.0.0/16")

	cidr := "10.0.1.0/24"
	_, err := suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", CIDR: &cidr})
	suite.Require().NoError(err)

	overlap := "10.0.1.128/25"
	_, err = suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext2", Desc: "edge", CIDR: &overlap})
	suite.assertKind(err, KindBadRequest, "Block contains external network(s) which overlap the target external network.")
}

func (suite *ServiceTestSuite) TestExternalBySizeAvoidsReservations() {
	suite.seed("10.0.0.0/16")

	first := "10.0.0.0/24"
	_, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &first})
	suite.Require().NoError(err)

	ext, err := suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", Size: 24})
	suite.Require().NoError(err)
	suite.Equal("10.0.1.0/24", ext.CIDR)
	suite.Equal("corp", ext.Space)
	suite.Equal("blk1", ext.Block)
}

func (suite *ServiceTestSuite) TestSubnetExplicitOverlapIs409() {
	suite.seed("10.0.0.0/16")

	extCIDR := "10.0.1.0/24"
	_, err := suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", CIDR: &extCIDR})
	suite.Require().NoError(err)

	subCIDR := "10.0.1.0/26"
	_, err = suite.svc.CreateSubnet(suite.ctx, adminCtx(), "corp", "blk1", "ext1", SubnetRequest{Name: "web", Desc: "frontends", CIDR: &subCIDR})
	suite.Require().NoError(err)

	clash := "10.0.1.32/27"
	_, err = suite.svc.CreateSubnet(suite.ctx, adminCtx(), "corp", "blk1", "ext1", SubnetRequest{Name: "web2", Desc: "frontends", CIDR: &clash})
	suite.assertKind(err, KindConflict, "Requested subnet CIDR overlaps existing subnet(s).")
}

func (suite *ServiceTestSuite) TestEndpointAutoAssignSkipsNetworkAddress() {
	suite.seed("10.0.0.0/16")

	extCIDR := "10.0.1.0/24"
	_, err := suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", CIDR: &extCIDR})
	suite.Require().NoError(err)
	subCIDR := "10.0.1.0/29"
	_, err = suite.svc.CreateSubnet(suite.ctx, adminCtx(), "corp", "blk1", "ext1", SubnetRequest{Name: "web", Desc: "frontends", CIDR: &subCIDR})
	suite.Require().NoError(err)

	endpoint, err := suite.svc.CreateEndpoint(suite.ctx, adminCtx(), "corp", "blk1", "ext1", "web", EndpointRequest{Name: "ep1", Desc: "host"})
	suite.Require().NoError(err)
	suite.Equal("10.0.1.1", endpoint.IP)

	// Explicit duplicate is rejected.
	dup := "10.0.1.1"
	_, err = suite.svc.CreateEndpoint(suite.ctx, adminCtx(), "corp", "blk1", "ext1", "web", EndpointRequest{Name: "ep2", Desc: "host", IP: &dup})
	suite.assertKind(err, KindBadRequest, "Target endpoint IP address overlaps existing endpoint IP address.")

	// Auto-assign continues past it.
	endpoint, err = suite.svc.CreateEndpoint(suite.ctx, adminCtx(), "corp", "blk1", "ext1", "web", EndpointRequest{Name: "ep2", Desc: "host"})
	suite.Require().NoError(err)
	suite.Equal("10.0.1.2", endpoint.IP)

	// A /29 has six usable hosts; fill the rest and overflow.
	for i := 3; i <= 6; i++ {
		_, err = suite.svc.CreateEndpoint(suite.ctx, adminCtx(), "corp", "blk1", "ext1", "web", EndpointRequest{Name: fmt.Sprintf("ep%d", i), Desc: "host"})
		suite.Require().NoError(err)
	}
	_, err = suite.svc.CreateEndpoint(suite.ctx, adminCtx(), "corp", "blk1", "ext1", "web", EndpointRequest{Name: "ep7", Desc: "host"})
	suite.assertKind(err, KindBadRequest, "External subnet has reached maximum available host addresses.")
}

func (suite *ServiceTestSuite) TestPatchBlockCIDRCoversChildren() {
	suite.seed("10.0.0.0/16")

	claimed := "10.0.200.0/24"
	_, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{CIDR: &claimed})
	suite.Require().NoError(err)

	// Shrinking below the reservation fails with the gate's message.
	_, err = suite.svc.UpdateBlock(suite.ctx, adminCtx(), "corp", "blk1", []byte(`[
		{"op": "replace", "path": "/cidr", "value": "10.0.0.0/17"}
	]`))
	suite.assertKind(err, KindBadRequest, "Block CIDR must be in valid CIDR notation (x.x.x.x/x), cannot overlap existing Blocks within the Space and must contain all existing Virtual Networks, External Networks and unfulfilled Reservations within the Block.")

	// Replacing with the identical CIDR succeeds.
	block, err := suite.svc.UpdateBlock(suite.ctx, adminCtx(), "corp", "blk1", []byte(`[
		{"op": "replace", "path": "/cidr", "value": "10.0.0.0/16"}
	]`))
	suite.Require().NoError(err)
	suite.Equal("10.0.0.0/16", block.CIDR)

	// Growing keeps the children covered and succeeds.
	block, err = suite.svc.UpdateBlock(suite.ctx, adminCtx(), "corp", "blk1", []byte(`[
		{"op": "replace", "path": "/cidr", "value": "10.0.0.0/15"}
	]`))
	suite.Require().NoError(err)
	suite.Equal("10.0.0.0/15", block.CIDR)
}

func (suite *ServiceTestSuite) TestPatchSpaceNameUnique() {
	suite.seed("10.0.0.0/16")
	_, err := suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "lab", Desc: "second"})
	suite.Require().NoError(err)

	_, err = suite.svc.UpdateSpace(suite.ctx, adminCtx(), "lab", []byte(`[
		{"op": "replace", "path": "/name", "value": "corp"}
	]`))
	suite.assertKind(err, KindBadRequest, "Updated Space name must be unique.")

	updated, err := suite.svc.UpdateSpace(suite.ctx, adminCtx(), "lab", []byte(`[
		{"op": "replace", "path": "/name", "value": "lab2"},
		{"op": "replace", "path": "/desc", "value": "renamed"}
	]`))
	suite.Require().NoError(err)
	suite.Equal("lab2", updated.Name)
	suite.Equal("renamed", updated.Desc)
}

func (suite *ServiceTestSuite) TestOCCRetryAllocatesNextFreePrefix() {
	suite.seed("10.0.0.0/16")

	race := &raceStore{Store: suite.store}
	racingSvc := New(race, suite.inv, zaptest.NewLogger(suite.T()))
	competitor := New(suite.store, suite.inv, zaptest.NewLogger(suite.T()))

	race.competitor = func() {
		_, err := competitor.CreateReservation(suite.ctx, userCtx("bob@example.com"), "corp", "blk1", ReservationRequest{Size: 24})
		suite.Require().NoError(err)
	}

	// The racing writer reads the pre-state, loses the conditional
	// replace to the competitor, retries, and lands on the next /24.
	resv, err := racingSvc.CreateReservation(suite.ctx, userCtx("alice@example.com"), "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)
	suite.Equal("10.0.1.0/24", resv.CIDR)

	list, err := suite.svc.ListBlockReservations(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Len(list, 2)
	first, err := prefixset.FromStrings([]string{list[0].CIDR})
	suite.Require().NoError(err)
	second, err := prefixset.FromStrings([]string{list[1].CIDR})
	suite.Require().NoError(err)
	suite.False(first.Overlaps(second))
}

func (suite *ServiceTestSuite) TestAvailableExcludesCrossBlockAttachments() {
	suite.inv.Networks = []inventory.Network{
		{ID: "vnet-a", Prefixes: []string{"10.0.1.0/24"}},
		{ID: "vnet-b", Prefixes: []string{"10.0.2.0/24"}},
	}
	suite.seed("10.0.0.0/16")
	_, err := suite.svc.CreateSpace(suite.ctx, adminCtx(), SpaceRequest{Name: "lab", Desc: "second"})
	suite.Require().NoError(err)
	_, err = suite.svc.CreateBlock(suite.ctx, adminCtx(), "lab", BlockRequest{Name: "blk2", CIDR: "10.0.0.0/16"})
	suite.Require().NoError(err)

	_, err = suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-a")
	suite.Require().NoError(err)

	available, err := suite.svc.AvailableNetworks(suite.ctx, userCtx("alice@example.com"), "lab", "blk2")
	suite.Require().NoError(err)
	ids := make([]string, len(available))
	for i, net := range available {
		ids[i] = net.ID
	}
	suite.Equal([]string{"vnet-b"}, ids)
}

func (suite *ServiceTestSuite) TestAttachNetworkChecks() {
	suite.inv.Networks = []inventory.Network{
		{ID: "vnet-a", Prefixes: []string{"10.0.1.0/24"}},
		{ID: "vnet-b", Prefixes: []string{"10.0.1.128/25"}},
		{ID: "vnet-far", Prefixes: []string{"192.168.0.0/24"}},
	}
	suite.seed("10.0.0.0/16")

	_, err := suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-a")
	suite.Require().NoError(err)

	_, err = suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-a")
	suite.assertKind(err, KindBadRequest, "Network already exists in block.")

	_, err = suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-unknown")
	suite.assertKind(err, KindBadRequest, "Invalid network ID.")

	_, err = suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-far")
	suite.assertKind(err, KindBadRequest, "Network CIDR not within block CIDR.")

	_, err = suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-b")
	suite.assertKind(err, KindBadRequest, "Block already contains network(s) and/or reservation(s) within the CIDR range of target network.")
}

func (suite *ServiceTestSuite) TestReplaceAndDetachNetworks() {
	suite.inv.Networks = []inventory.Network{
		{ID: "vnet-a", Prefixes: []string{"10.0.1.0/24"}},
		{ID: "vnet-b", Prefixes: []string{"10.0.2.0/24"}},
	}
	suite.seed("10.0.0.0/16")

	refs, err := suite.svc.ReplaceNetworks(suite.ctx, adminCtx(), "corp", "blk1", []string{"vnet-a", "vnet-b"})
	suite.Require().NoError(err)
	suite.Len(refs, 2)

	_, err = suite.svc.ReplaceNetworks(suite.ctx, adminCtx(), "corp", "blk1", []string{"vnet-a", "vnet-a"})
	suite.assertKind(err, KindBadRequest, "List contains duplicate networks.")

	_, err = suite.svc.ReplaceNetworks(suite.ctx, adminCtx(), "corp", "blk1", []string{"vnet-x"})
	suite.assertKind(err, KindBadRequest, "Invalid network ID(s): ['vnet-x']")

	err = suite.svc.DetachNetworks(suite.ctx, adminCtx(), "corp", "blk1", []string{"vnet-a", "vnet-missing"})
	suite.assertKind(err, KindBadRequest, "List contains one or more invalid network id's.")

	err = suite.svc.DetachNetworks(suite.ctx, adminCtx(), "corp", "blk1", []string{"vnet-a"})
	suite.Require().NoError(err)

	remaining, _, err := suite.svc.ListBlockNetworks(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Len(remaining, 1)
	suite.Equal("vnet-b", remaining[0].ID)
}

func (suite *ServiceTestSuite) TestReservationVisibilityAndSettle() {
	suite.seed("10.0.0.0/16")

	alice := userCtx("alice@example.com")
	bob := userCtx("bob@example.com")

	aliceResv, err := suite.svc.CreateReservation(suite.ctx, alice, "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)
	_, err = suite.svc.CreateReservation(suite.ctx, bob, "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)

	// Users see only their own reservations; admins see all.
	mine, err := suite.svc.ListBlockReservations(suite.ctx, alice, "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Len(mine, 1)
	suite.Equal("alice@example.com", mine[0].CreatedBy)

	all, err := suite.svc.ListBlockReservations(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Len(all, 2)

	// Cross-user access is forbidden.
	_, err = suite.svc.GetReservation(suite.ctx, bob, "corp", "blk1", aliceResv.ID)
	suite.assertKind(err, KindForbidden, "Users can only view their own reservations.")
	err = suite.svc.DeleteReservation(suite.ctx, bob, "corp", "blk1", aliceResv.ID)
	suite.assertKind(err, KindForbidden, "Users can only delete their own reservations.")

	// Deleting settles instead of removing.
	err = suite.svc.DeleteReservation(suite.ctx, alice, "corp", "blk1", aliceResv.ID)
	suite.Require().NoError(err)

	settled, err := suite.svc.GetReservation(suite.ctx, alice, "corp", "blk1", aliceResv.ID)
	suite.Require().NoError(err)
	suite.Equal(model.StatusCancelledByUser, settled.Status)
	suite.NotNil(settled.SettledOn)
	suite.Equal("alice@example.com", *settled.SettledBy)

	// Settled reservations disappear from the default listing but stay
	// reachable with settled=true.
	active, err := suite.svc.ListBlockReservations(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Len(active, 1)
	withSettled, err := suite.svc.ListBlockReservations(suite.ctx, adminCtx(), "corp", "blk1", true)
	suite.Require().NoError(err)
	suite.Len(withSettled, 2)

	// The settled prefix is free again.
	resv, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)
	suite.Equal(aliceResv.CIDR, resv.CIDR)
}

func (suite *ServiceTestSuite) TestBulkReservationDelete() {
	suite.seed("10.0.0.0/16")

	first, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)
	second, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)

	err = suite.svc.DeleteReservations(suite.ctx, adminCtx(), "corp", "blk1", []string{first.ID, first.ID})
	suite.assertKind(err, KindBadRequest, "List contains one or more duplicate id's.")

	err = suite.svc.DeleteReservations(suite.ctx, adminCtx(), "corp", "blk1", []string{first.ID, "nope"})
	suite.assertKind(err, KindBadRequest, "List contains one or more invalid id's.")

	err = suite.svc.DeleteReservations(suite.ctx, adminCtx(), "corp", "blk1", []string{first.ID, second.ID})
	suite.Require().NoError(err)

	remaining, err := suite.svc.ListBlockReservations(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.Require().NoError(err)
	suite.Empty(remaining)
}

func (suite *ServiceTestSuite) TestAddressConservation() {
	// size(block) = vnets-in-block + externals + unsettled resv + free.
	suite.inv.Networks = []inventory.Network{
		{ID: "vnet-a", Prefixes: []string{"10.0.1.0/24", "172.16.0.0/16"}},
	}
	suite.seed("10.0.0.0/16")

	_, err := suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-a")
	suite.Require().NoError(err)
	extCIDR := "10.0.2.0/24"
	_, err = suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", CIDR: &extCIDR})
	suite.Require().NoError(err)
	resv, err := suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 25})
	suite.Require().NoError(err)
	err = suite.svc.DeleteReservation(suite.ctx, adminCtx(), "corp", "blk1", resv.ID)
	suite.Require().NoError(err)
	_, err = suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 26})
	suite.Require().NoError(err)

	_, target, err := suite.svc.loadSpace(suite.ctx, testTenant, "corp")
	suite.Require().NoError(err)
	block := model.FindBlock(target, "blk1")
	nets, err := suite.inv.List(suite.ctx)
	suite.Require().NoError(err)

	claimed, err := model.BlockReservedSet(block, nets)
	suite.Require().NoError(err)
	free, err := blockFreeSet(block, nets)
	suite.Require().NoError(err)

	blockCIDR, err := model.BlockCIDRPrefix(block)
	suite.Require().NoError(err)
	suite.Equal(prefixset.Size(blockCIDR), claimed.Size()+free.Size())
	suite.False(claimed.Overlaps(free))
}

func (suite *ServiceTestSuite) TestUtilizationRollUp() {
	suite.inv.Networks = []inventory.Network{
		{
			ID:       "vnet-a",
			Prefixes: []string{"10.0.1.0/24", "172.16.0.0/16"},
			Subnets:  []inventory.Subnet{{Prefix: "10.0.1.0/26"}},
		},
	}
	suite.seed("10.0.0.0/16")
	_, err := suite.svc.AttachNetwork(suite.ctx, adminCtx(), "corp", "blk1", "vnet-a")
	suite.Require().NoError(err)
	extCIDR := "10.0.2.0/24"
	_, err = suite.svc.CreateExternal(suite.ctx, adminCtx(), "corp", "blk1", ExternalRequest{Name: "ext1", Desc: "edge", CIDR: &extCIDR})
	suite.Require().NoError(err)

	view, err := suite.svc.GetSpace(suite.ctx, adminCtx(), "corp", ViewOpts{Utilization: true})
	suite.Require().NoError(err)

	// Accumulation lands on the requested space: block size plus the
	// vnet's in-block /24 and the external /24. The out-of-block
	// 172.16.0.0/16 prefix contributes nothing.
	suite.Require().NotNil(view.Size)
	suite.Equal(uint64(65536), *view.Size)
	suite.Require().NotNil(view.Used)
	suite.Equal(uint64(512), *view.Used)

	block := view.Blocks[0]
	suite.Equal(uint64(65536), *block.Size)
	suite.Equal(uint64(512), *block.Used)

	// Expanded views add per-network figures.
	expanded, err := suite.svc.GetSpace(suite.ctx, adminCtx(), "corp", ViewOpts{Utilization: true, Expand: true})
	suite.Require().NoError(err)
	vnet := expanded.Blocks[0].VNets[0]
	suite.Equal([]string{"10.0.1.0/24", "172.16.0.0/16"}, vnet.Prefixes)
	suite.Equal(uint64(256), *vnet.Size)
	suite.Equal(uint64(64), *vnet.Used)
	suite.Equal(uint64(64), vnet.Subnets[0].Size)

	// Expand is an admin-only view.
	_, err = suite.svc.GetSpace(suite.ctx, userCtx("alice@example.com"), "corp", ViewOpts{Expand: true})
	suite.assertKind(err, KindForbidden, "Expand parameter can only be used by admins.")
}

func (suite *ServiceTestSuite) TestUtilizationOrderIndependence() {
	suite.inv.Networks = []inventory.Network{
		{ID: "vnet-a", Prefixes: []string{"10.0.1.0/24"}},
		{ID: "vnet-b", Prefixes: []string{"10.0.2.0/24"}},
	}
	nets, err := suite.inv.List(suite.ctx)
	suite.Require().NoError(err)

	doc := &model.Space{
		ID: "x", Type: model.DocType, TenantID: testTenant, Name: "corp", Desc: "main",
		Blocks: []model.Block{
			{
				Name: "blk1", CIDR: "10.0.0.0/16",
				VNets:     []model.VNetRef{{ID: "vnet-a", Active: true}, {ID: "vnet-b", Active: true}},
				Externals: []model.External{{Name: "e1", CIDR: "10.0.3.0/24"}, {Name: "e2", CIDR: "10.0.4.0/24"}},
			},
			{Name: "blk2", CIDR: "10.1.0.0/16"},
		},
	}
	forward := BuildSpaceView(doc, nets, ViewOpts{Utilization: true})

	// Reverse every slice in the document and in the snapshot.
	shuffled := doc.Copy()
	shuffled.Blocks[0], shuffled.Blocks[1] = shuffled.Blocks[1], shuffled.Blocks[0]
	inner := &shuffled.Blocks[1]
	inner.VNets[0], inner.VNets[1] = inner.VNets[1], inner.VNets[0]
	inner.Externals[0], inner.Externals[1] = inner.Externals[1], inner.Externals[0]
	reversedNets := []inventory.Network{nets[1], nets[0]}
	backward := BuildSpaceView(shuffled, reversedNets, ViewOpts{Utilization: true})

	suite.Equal(*forward.Size, *backward.Size)
	suite.Equal(*forward.Used, *backward.Used)
}

func (suite *ServiceTestSuite) TestDeleteSpaceAndBlockForceGates() {
	suite.seed("10.0.0.0/16")

	err := suite.svc.DeleteSpace(suite.ctx, adminCtx(), "corp", false)
	suite.assertKind(err, KindBadRequest, "Cannot delete space while it contains blocks.")

	_, err = suite.svc.CreateReservation(suite.ctx, adminCtx(), "corp", "blk1", ReservationRequest{Size: 24})
	suite.Require().NoError(err)
	err = suite.svc.DeleteBlock(suite.ctx, adminCtx(), "corp", "blk1", false)
	suite.assertKind(err, KindBadRequest, "Cannot delete block while it contains vNets or reservations.")

	err = suite.svc.DeleteBlock(suite.ctx, adminCtx(), "corp", "blk1", true)
	suite.Require().NoError(err)
	err = suite.svc.DeleteSpace(suite.ctx, adminCtx(), "corp", false)
	suite.Require().NoError(err)

	_, err = suite.svc.GetSpace(suite.ctx, adminCtx(), "corp", ViewOpts{})
	suite.assertKind(err, KindBadRequest, "Invalid space name.")
}

// raceStore injects a competing committed write before the first
// conditional replace, producing a genuine etag conflict.
type raceStore struct {
	docstore.Store
	once       sync.Once
	competitor func()
}

func (r *raceStore) Replace(ctx context.Context, old docstore.Document, raw []byte) (docstore.Document, error) {
	r.once.Do(r.competitor)
	return r.Store.Replace(ctx, old, raw)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(
		t,
		new(ServiceTestSuite),
	)
}
