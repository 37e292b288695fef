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

	"github.com/RedMane/ipam-engine/pkg/alloc"
	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
	"github.com/RedMane/ipam-engine/pkg/validate"
)

// ReservationRequest is the body of POST …/blocks/{b}/reservations.
type ReservationRequest struct {
	Size          int     `json:"size,omitempty"`
	CIDR          *string `json:"cidr,omitempty"`
	Desc          string  `json:"desc,omitempty"`
	ReverseSearch bool    `json:"reverse_search,omitempty"`
	SmallestCIDR  bool    `json:"smallest_cidr,omitempty"`
}

// MultiBlockRequest is the body of POST /spaces/{s}/reservations. Blocks
// are evaluated in the order provided; the first block that can satisfy
// the request wins.
type MultiBlockRequest struct {
	Blocks        []string `json:"blocks"`
	Size          int      `json:"size"`
	Desc          string   `json:"desc,omitempty"`
	ReverseSearch bool     `json:"reverse_search,omitempty"`
	SmallestCIDR  bool     `json:"smallest_cidr,omitempty"`
}

// blockFreeSet computes the block's unclaimed address space against one
// inventory snapshot.
func blockFreeSet(block *model.Block, nets []inventory.Network) (prefixset.Set, error) {
	blockCIDR, err := model.BlockCIDRPrefix(block)
	if err != nil {
		return prefixset.Set{}, err
	}
	claimed, err := model.BlockReservedSet(block, nets)
	if err != nil {
		return prefixset.Set{}, err
	}
	return prefixset.New(blockCIDR).Difference(claimed), nil
}

// annotate copies a reservation into its response view.
func annotate(resv model.Reservation, spaceName, blockName string) ReservationView {
	return ReservationView{Reservation: resv, Space: spaceName, Block: blockName}
}

// ListSpaceReservations returns reservations across every block of the
// space. Settled reservations are excluded unless asked for; non-admins
// see only their own.
func (s *Service) ListSpaceReservations(ctx context.Context, ac *auth.Context, spaceName string, settled bool) ([]ReservationView, error) {
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}

	userName := ""
	if !ac.IsAdmin {
		userName = ac.UserName()
	}

	out := []ReservationView{}
	for i := range target.Blocks {
		block := &target.Blocks[i]
		for _, resv := range filterReservations(block.Resv, userName, settled) {
			out = append(out, annotate(resv, target.Name, block.Name))
		}
	}
	return out, nil
}

// ListBlockReservations returns one block's reservations.
func (s *Service) ListBlockReservations(ctx context.Context, ac *auth.Context, spaceName, blockName string, settled bool) ([]ReservationView, error) {
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, badRequest("Invalid block name.")
	}

	userName := ""
	if !ac.IsAdmin {
		userName = ac.UserName()
	}

	out := []ReservationView{}
	for _, resv := range filterReservations(block.Resv, userName, settled) {
		out = append(out, annotate(resv, target.Name, block.Name))
	}
	return out, nil
}

// CreateReservation claims a prefix inside one block, either an explicit
// CIDR or the allocator's pick for the requested size.
func (s *Service) CreateReservation(ctx context.Context, ac *auth.Context, spaceName, blockName string, req ReservationRequest) (*ReservationView, error) {
	var view *ReservationView
	err := s.withRetry(ctx, "Error creating cidr reservation, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}

		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}
		freeSet, err := blockFreeSet(block, nets)
		if err != nil {
			return err
		}

		var nextCIDR string
		if req.CIDR != nil {
			canonical, err := validate.CIDR(*req.CIDR)
			if err != nil {
				return badRequest("Invalid network CIDR format.")
			}
			if !alloc.Fits(freeSet, prefixset.MustParse(canonical)) {
				return conflict("Requested CIDR overlaps existing network(s).")
			}
			nextCIDR = canonical
		} else {
			carved, err := alloc.BySize(freeSet, req.Size, req.ReverseSearch, req.SmallestCIDR)
			if err != nil {
				return unavailable("Network of requested size unavailable in target block.")
			}
			nextCIDR = carved.String()
		}

		resv := model.Reservation{
			ID:        model.NewReservationID(),
			CIDR:      nextCIDR,
			Desc:      req.Desc,
			CreatedOn: s.now(),
			CreatedBy: ac.UserName(),
			Status:    model.StatusWait,
		}
		block.Resv = append(block.Resv, resv)
		annotated := annotate(resv, target.Name, block.Name)
		view = &annotated
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// ReserveMultiBlock walks the caller-ordered block list and reserves in
// the first block that can satisfy the request.
func (s *Service) ReserveMultiBlock(ctx context.Context, ac *auth.Context, spaceName string, req MultiBlockRequest) (*ReservationView, error) {
	var view *ReservationView
	err := s.withRetry(ctx, "Error creating cidr reservation, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}

		var invalid []string
		for _, name := range req.Blocks {
			if model.FindBlock(target, name) == nil {
				invalid = append(invalid, name)
			}
		}
		if len(invalid) > 0 {
			return badRequest("Invalid Block(s) in Block list: %s.", pyList(invalid))
		}

		nets, err := s.snapshot(ctx)
		if err != nil {
			return err
		}

		var chosenBlock *model.Block
		var nextCIDR string
		for _, name := range req.Blocks {
			block := model.FindBlock(target, name)
			freeSet, err := blockFreeSet(block, nets)
			if err != nil {
				return err
			}
			carved, err := alloc.BySize(freeSet, req.Size, req.ReverseSearch, req.SmallestCIDR)
			if err != nil {
				continue
			}
			chosenBlock = block
			nextCIDR = carved.String()
			break
		}
		if chosenBlock == nil {
			return unavailable("Network of requested size unavailable in target block(s).")
		}

		resv := model.Reservation{
			ID:        model.NewReservationID(),
			CIDR:      nextCIDR,
			Desc:      req.Desc,
			CreatedOn: s.now(),
			CreatedBy: ac.UserName(),
			Status:    model.StatusWait,
		}
		chosenBlock.Resv = append(chosenBlock.Resv, resv)
		annotated := annotate(resv, target.Name, chosenBlock.Name)
		view = &annotated
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// GetReservation returns one reservation by id. Non-admins may only read
// their own.
func (s *Service) GetReservation(ctx context.Context, ac *auth.Context, spaceName, blockName, id string) (*ReservationView, error) {
	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, badRequest("Invalid block name.")
	}
	resv := model.FindReservation(block, id)
	if resv == nil {
		return nil, badRequest("Invalid reservation ID.")
	}
	if !ac.IsAdmin && resv.CreatedBy != ac.UserName() {
		return nil, forbidden("Users can only view their own reservations.")
	}
	annotated := annotate(*resv, target.Name, block.Name)
	return &annotated, nil
}

// DeleteReservations soft-settles the listed reservations: they stay in
// the document with settledOn/settledBy stamped and status
// cancelledByUser. Settled entries in the list are left untouched.
func (s *Service) DeleteReservations(ctx context.Context, ac *auth.Context, spaceName, blockName string, ids []string) error {
	userName := ac.UserName()

	return s.withRetry(ctx, "Error removing block reservation(s), please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		if hasDuplicateIDs(ids) {
			return badRequest("List contains one or more duplicate id's.")
		}
		for _, id := range ids {
			if model.FindReservation(block, id) == nil {
				return badRequest("List contains one or more invalid id's.")
			}
		}
		if !ac.IsAdmin {
			for _, id := range ids {
				if resv := model.FindReservation(block, id); resv.CreatedBy != userName {
					return forbidden("Users can only delete their own reservations.")
				}
			}
		}

		for _, id := range ids {
			resv := model.FindReservation(block, id)
			if resv.Settled() {
				continue
			}
			settledOn := s.now()
			settledBy := userName
			resv.SettledOn = &settledOn
			resv.SettledBy = &settledBy
			resv.Status = model.StatusCancelledByUser
		}
		return s.replaceSpace(ctx, doc, target)
	})
}

// DeleteReservation soft-settles one reservation. Settled reservations
// are immutable; the call is a no-op for them.
func (s *Service) DeleteReservation(ctx context.Context, ac *auth.Context, spaceName, blockName, id string) error {
	userName := ac.UserName()

	return s.withRetry(ctx, "Error removing reservation, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		block := model.FindBlock(target, blockName)
		if block == nil {
			return badRequest("Invalid block name.")
		}
		resv := model.FindReservation(block, id)
		if resv == nil {
			return badRequest("Invalid reservation ID.")
		}
		if !ac.IsAdmin && resv.CreatedBy != userName {
			return forbidden("Users can only delete their own reservations.")
		}
		if resv.Settled() {
			return nil
		}

		settledOn := s.now()
		settledBy := userName
		resv.SettledOn = &settledOn
		resv.SettledBy = &settledBy
		resv.Status = model.StatusCancelledByUser
		return s.replaceSpace(ctx, doc, target)
	})
}

// hasDuplicateIDs is the case-sensitive variant for reservation ids.
func hasDuplicateIDs(ids []string) bool {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return true
		}
		seen[id] = true
	}
	return false
}
