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

// Package space implements the public operations of the IPAM engine over
// the per-tenant Space document: CRUD on the hierarchy, network
// attachment, availability queries, reservations, and utilization.
package space

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/docstore"
	"github.com/RedMane/ipam-engine/pkg/inventory"
	"github.com/RedMane/ipam-engine/pkg/model"
	"github.com/RedMane/ipam-engine/pkg/prefixset"
	"github.com/RedMane/ipam-engine/pkg/validate"
)

// Admin-gate messages differ between the management and the consumption
// surfaces; both are part of the external contract.
const (
	msgAdminRestricted = "This API is admin restricted."
	msgAdminOnly       = "API restricted to admins."
)

// Service is the stateless request handler over the document store and
// the inventory snapshot provider.
type Service struct {
	store  docstore.Store
	inv    inventory.Provider
	runner *docstore.Runner
	log    *zap.Logger
	now    func() float64
}

// New wires a service.
func New(store docstore.Store, inv inventory.Provider, log *zap.Logger) *Service {
	return &Service{
		store:  store,
		inv:    inv,
		runner: docstore.NewRunner(log),
		log:    log,
		now: func() float64 {
			return float64(time.Now().UnixNano()) / float64(time.Second)
		},
	}
}

// SpaceRequest is the body of POST /spaces.
type SpaceRequest struct {
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// BlockRequest is the body of POST /spaces/{s}/blocks.
type BlockRequest struct {
	Name string `json:"name"`
	CIDR string `json:"cidr"`
}

// withRetry runs fn in the optimistic-concurrency envelope and converts
// budget exhaustion into the operation's caller-facing error.
func (s *Service) withRetry(ctx context.Context, errMsg string, fn func(ctx context.Context) error) error {
	err := s.runner.Run(ctx, errMsg, fn)
	var exhausted *docstore.ExhaustedError
	if pkgerrors.As(err, &exhausted) {
		return internal(exhausted.Msg)
	}
	return err
}

// querySpaces loads every space document of the tenant.
func (s *Service) querySpaces(ctx context.Context, tenant string) ([]docstore.Document, []*model.Space, error) {
	docs, err := s.store.Query(ctx, tenant, docstore.Filter{Type: model.DocType})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(err, "querying space documents")
	}
	spaces := make([]*model.Space, len(docs))
	for i := range docs {
		spaces[i] = &model.Space{}
		if err := json.Unmarshal(docs[i].Raw, spaces[i]); err != nil {
			return nil, nil, pkgerrors.Wrapf(err, "decoding space document %s", docs[i].ID)
		}
	}
	return docs, spaces, nil
}

// loadSpace resolves one space by name, case-insensitively.
func (s *Service) loadSpace(ctx context.Context, tenant, name string) (docstore.Document, *model.Space, error) {
	docs, spaces, err := s.querySpaces(ctx, tenant)
	if err != nil {
		return docstore.Document{}, nil, err
	}
	for i := range spaces {
		if strings.EqualFold(spaces[i].Name, name) {
			return docs[i], spaces[i], nil
		}
	}
	return docstore.Document{}, nil, badRequest("Invalid space name.")
}

// replaceSpace writes the mutated document back conditionally.
func (s *Service) replaceSpace(ctx context.Context, doc docstore.Document, space *model.Space) error {
	raw, err := json.Marshal(space)
	if err != nil {
		return pkgerrors.Wrap(err, "encoding space document")
	}
	if _, err := s.store.Replace(ctx, doc, raw); err != nil {
		return err
	}
	return nil
}

// snapshot fetches the inventory once per attempt.
func (s *Service) snapshot(ctx context.Context) ([]inventory.Network, error) {
	nets, err := s.inv.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing network inventory")
	}
	return nets, nil
}

// ListSpaces returns every space of the tenant, optionally expanded and
// with utilization.
func (s *Service) ListSpaces(ctx context.Context, ac *auth.Context, opts ViewOpts) ([]*SpaceView, error) {
	if opts.Expand && !ac.IsAdmin {
		return nil, forbidden("Expand parameter can only be used by admins.")
	}

	var nets []inventory.Network
	if opts.Expand || opts.Utilization {
		var err error
		nets, err = s.snapshot(ctx)
		if err != nil {
			return nil, err
		}
	}

	_, spaces, err := s.querySpaces(ctx, ac.TenantID)
	if err != nil {
		return nil, err
	}

	opts = s.scopeOpts(opts, ac)
	views := make([]*SpaceView, len(spaces))
	for i := range spaces {
		views[i] = BuildSpaceView(spaces[i], nets, opts)
	}
	return views, nil
}

// GetSpace returns one space.
func (s *Service) GetSpace(ctx context.Context, ac *auth.Context, name string, opts ViewOpts) (*SpaceView, error) {
	if opts.Expand && !ac.IsAdmin {
		return nil, forbidden("Expand parameter can only be used by admins.")
	}

	_, target, err := s.loadSpace(ctx, ac.TenantID, name)
	if err != nil {
		return nil, err
	}

	var nets []inventory.Network
	if opts.Expand || opts.Utilization {
		if nets, err = s.snapshot(ctx); err != nil {
			return nil, err
		}
	}
	return BuildSpaceView(target, nets, s.scopeOpts(opts, ac)), nil
}

// scopeOpts restricts the view to the caller's own reservations for
// non-admins.
func (s *Service) scopeOpts(opts ViewOpts, ac *auth.Context) ViewOpts {
	if !ac.IsAdmin {
		opts.FilterUser = ac.UserName()
	}
	return opts
}

// CreateSpace creates an empty space.
func (s *Service) CreateSpace(ctx context.Context, ac *auth.Context, req SpaceRequest) (*model.Space, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var created *model.Space
	err := s.withRetry(ctx, "Error creating space, please try again.", func(ctx context.Context) error {
		if !validate.Name(req.Name) {
			return badRequest("Space name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, and periods.")
		}
		if !validate.Description(req.Desc) {
			return badRequest("Space description can be a maximum of 128 characters and may contain alphanumerics, spaces, underscores, hypens, slashes, and periods.")
		}

		_, spaces, err := s.querySpaces(ctx, ac.TenantID)
		if err != nil {
			return err
		}
		for _, existing := range spaces {
			if strings.EqualFold(existing.Name, req.Name) {
				return badRequest("Space name must be unique.")
			}
		}

		created = &model.Space{
			ID:       model.NewSpaceID(),
			Type:     model.DocType,
			TenantID: ac.TenantID,
			Name:     req.Name,
			Desc:     req.Desc,
			Blocks:   []model.Block{},
		}
		raw, err := json.Marshal(created)
		if err != nil {
			return pkgerrors.Wrap(err, "encoding space document")
		}
		_, err = s.store.Upsert(ctx, docstore.Document{
			ID:     created.ID,
			Tenant: ac.TenantID,
			Type:   model.DocType,
			Raw:    raw,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("space created",
		zap.String("tenant", ac.TenantID),
		zap.String("space", created.Name),
	)
	return created, nil
}

// UpdateSpace applies a validated JSON patch (replace /name, /desc).
func (s *Service) UpdateSpace(ctx context.Context, ac *auth.Context, name string, rawPatch []byte) (*model.Space, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var updated *model.Space
	err := s.withRetry(ctx, "Error updating space, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, name)
		if err != nil {
			return err
		}
		gate := s.spaceGate(ac.TenantID, target.Name)
		if err := applyPatch(ctx, gate, rawPatch, target); err != nil {
			return err
		}
		updated = target
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSpace removes a space; force is required while it contains
// blocks.
func (s *Service) DeleteSpace(ctx context.Context, ac *auth.Context, name string, force bool) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminRestricted)
	}

	return s.withRetry(ctx, "Error deleting space, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, name)
		if err != nil {
			return err
		}
		if !force && len(target.Blocks) > 0 {
			return badRequest("Cannot delete space while it contains blocks.")
		}
		return s.store.Delete(ctx, doc)
	})
}

// ListBlocks returns the blocks of a space.
func (s *Service) ListBlocks(ctx context.Context, ac *auth.Context, spaceName string, opts ViewOpts) ([]BlockView, error) {
	if opts.Expand && !ac.IsAdmin {
		return nil, forbidden("Expand parameter can only be used by admins.")
	}

	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}

	var nets []inventory.Network
	if opts.Expand || opts.Utilization {
		if nets, err = s.snapshot(ctx); err != nil {
			return nil, err
		}
	}

	opts = s.scopeOpts(opts, ac)
	views := make([]BlockView, len(target.Blocks))
	for i := range target.Blocks {
		views[i] = BuildBlockView(&target.Blocks[i], nets, opts)
	}
	return views, nil
}

// GetBlock returns one block.
func (s *Service) GetBlock(ctx context.Context, ac *auth.Context, spaceName, blockName string, opts ViewOpts) (*BlockView, error) {
	if opts.Expand && !ac.IsAdmin {
		return nil, forbidden("Expand parameter can only be used by admins.")
	}

	_, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
	if err != nil {
		return nil, err
	}
	block := model.FindBlock(target, blockName)
	if block == nil {
		return nil, badRequest("Invalid block name.")
	}

	var nets []inventory.Network
	if opts.Expand || opts.Utilization {
		if nets, err = s.snapshot(ctx); err != nil {
			return nil, err
		}
	}
	view := BuildBlockView(block, nets, s.scopeOpts(opts, ac))
	return &view, nil
}

// CreateBlock adds a block to a space. The CIDR must be canonical and
// disjoint from every existing block.
func (s *Service) CreateBlock(ctx context.Context, ac *auth.Context, spaceName string, req BlockRequest) (*model.Block, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var created *model.Block
	err := s.withRetry(ctx, "Error creating block, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}

		if !validate.Name(req.Name) {
			return badRequest("Block name can be a maximum of 64 characters and may contain alphanumerics, underscores, hypens, slashes, and periods.")
		}
		canonical, err := validate.CIDR(req.CIDR)
		if err != nil {
			return badRequest("Invalid CIDR, please ensure CIDR is in valid IPv4 CIDR notation (x.x.x.x/x).")
		}
		if canonical != req.CIDR {
			return badRequest("Invalid CIDR value, Try '%s' instead.", canonical)
		}

		existing := make([]string, 0, len(target.Blocks))
		for i := range target.Blocks {
			existing = append(existing, target.Blocks[i].CIDR)
		}
		existingSet, err := prefixset.FromStrings(existing)
		if err != nil {
			return pkgerrors.Wrap(err, "parsing existing block CIDRs")
		}
		if existingSet.Overlaps(prefixset.New(prefixset.MustParse(canonical))) {
			return badRequest("New block cannot overlap existing blocks.")
		}

		block := model.Block{
			Name:      req.Name,
			CIDR:      req.CIDR,
			VNets:     []model.VNetRef{},
			Externals: []model.External{},
			Resv:      []model.Reservation{},
		}
		target.Blocks = append(target.Blocks, block)
		created = &target.Blocks[len(target.Blocks)-1]
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateBlock applies a validated JSON patch (replace /name, /cidr).
func (s *Service) UpdateBlock(ctx context.Context, ac *auth.Context, spaceName, blockName string, rawPatch []byte) (*model.Block, error) {
	if !ac.IsAdmin {
		return nil, forbidden(msgAdminRestricted)
	}

	var updated *model.Block
	err := s.withRetry(ctx, "Error updating block, please try again.", func(ctx context.Context) error {
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
		gate := s.blockGate(target, block, nets)
		if err := applyPatch(ctx, gate, rawPatch, block); err != nil {
			return err
		}
		updated = block
		return s.replaceSpace(ctx, doc, target)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBlock removes a block; force is required while it still holds
// networks or reservations.
func (s *Service) DeleteBlock(ctx context.Context, ac *auth.Context, spaceName, blockName string, force bool) error {
	if !ac.IsAdmin {
		return forbidden(msgAdminRestricted)
	}

	return s.withRetry(ctx, "Error deleting block, please try again.", func(ctx context.Context) error {
		doc, target, err := s.loadSpace(ctx, ac.TenantID, spaceName)
		if err != nil {
			return err
		}
		index := -1
		for i := range target.Blocks {
			if strings.EqualFold(target.Blocks[i].Name, blockName) {
				index = i
				break
			}
		}
		if index < 0 {
			return badRequest("Invalid block name.")
		}
		block := &target.Blocks[index]
		if !force && (len(block.VNets) > 0 || len(block.Resv) > 0) {
			return badRequest("Cannot delete block while it contains vNets or reservations.")
		}
		target.Blocks = append(target.Blocks[:index], target.Blocks[index+1:]...)
		return s.replaceSpace(ctx, doc, target)
	})
}
