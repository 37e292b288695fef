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

// Package api adapts the space service onto its HTTP surface. The engine
// treats transport as an external concern: this adapter only routes,
// decodes, resolves the caller identity, and maps error kinds onto the
// historical status codes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/RedMane/ipam-engine/pkg/auth"
	"github.com/RedMane/ipam-engine/pkg/space"
)

// AuthResolver turns an incoming request into the caller identity. Token
// verification and tenant resolution happen upstream of the engine; the
// default resolver trusts the gateway-injected headers.
type AuthResolver func(r *http.Request) (*auth.Context, error)

// HeaderAuth reads X-Tenant-ID, X-Admin, and the bearer assertion.
func HeaderAuth(r *http.Request) (*auth.Context, error) {
	assertion := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		assertion = strings.TrimPrefix(header, "Bearer ")
	}
	return &auth.Context{
		TenantID:      r.Header.Get("X-Tenant-ID"),
		IsAdmin:       strings.EqualFold(r.Header.Get("X-Admin"), "true"),
		UserAssertion: assertion,
	}, nil
}

// Handler serves the /spaces surface.
type Handler struct {
	svc     *space.Service
	resolve AuthResolver
	log     *zap.Logger
}

// NewHandler wires the adapter.
func NewHandler(svc *space.Service, resolve AuthResolver, log *zap.Logger) *Handler {
	if resolve == nil {
		resolve = HeaderAuth
	}
	return &Handler{svc: svc, resolve: resolve, log: log}
}

// Router builds the route table.
func (h *Handler) Router() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /spaces", h.withAuth(h.listSpaces))
	mux.HandleFunc("POST /spaces", h.withAuth(h.createSpace))
	mux.HandleFunc("GET /spaces/{space}", h.withAuth(h.getSpace))
	mux.HandleFunc("PATCH /spaces/{space}", h.withAuth(h.updateSpace))
	mux.HandleFunc("DELETE /spaces/{space}", h.withAuth(h.deleteSpace))

	mux.HandleFunc("GET /spaces/{space}/reservations", h.withAuth(h.listSpaceReservations))
	mux.HandleFunc("POST /spaces/{space}/reservations", h.withAuth(h.reserveMultiBlock))

	mux.HandleFunc("GET /spaces/{space}/blocks", h.withAuth(h.listBlocks))
	mux.HandleFunc("POST /spaces/{space}/blocks", h.withAuth(h.createBlock))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}", h.withAuth(h.getBlock))
	mux.HandleFunc("PATCH /spaces/{space}/blocks/{block}", h.withAuth(h.updateBlock))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}", h.withAuth(h.deleteBlock))

	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/available", h.withAuth(h.availableNetworks))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/networks", h.withAuth(h.listNetworks))
	mux.HandleFunc("POST /spaces/{space}/blocks/{block}/networks", h.withAuth(h.attachNetwork))
	mux.HandleFunc("PUT /spaces/{space}/blocks/{block}/networks", h.withAuth(h.replaceNetworks))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/networks", h.withAuth(h.detachNetworks))

	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals", h.withAuth(h.listExternals))
	mux.HandleFunc("POST /spaces/{space}/blocks/{block}/externals", h.withAuth(h.createExternal))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals/{external}", h.withAuth(h.getExternal))
	mux.HandleFunc("PATCH /spaces/{space}/blocks/{block}/externals/{external}", h.withAuth(h.updateExternal))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/externals/{external}", h.withAuth(h.deleteExternal))

	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals/{external}/subnets", h.withAuth(h.listSubnets))
	mux.HandleFunc("POST /spaces/{space}/blocks/{block}/externals/{external}/subnets", h.withAuth(h.createSubnet))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}", h.withAuth(h.getSubnet))
	mux.HandleFunc("PATCH /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}", h.withAuth(h.updateSubnet))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}", h.withAuth(h.deleteSubnet))

	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints", h.withAuth(h.listEndpoints))
	mux.HandleFunc("POST /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints", h.withAuth(h.createEndpoint))
	mux.HandleFunc("PUT /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints", h.withAuth(h.replaceEndpoints))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints", h.withAuth(h.deleteEndpoints))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints/{endpoint}", h.withAuth(h.getEndpoint))
	mux.HandleFunc("PATCH /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints/{endpoint}", h.withAuth(h.updateEndpoint))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/externals/{external}/subnets/{subnet}/endpoints/{endpoint}", h.withAuth(h.deleteEndpoint))

	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/reservations", h.withAuth(h.listBlockReservations))
	mux.HandleFunc("POST /spaces/{space}/blocks/{block}/reservations", h.withAuth(h.createReservation))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/reservations", h.withAuth(h.deleteReservations))
	mux.HandleFunc("GET /spaces/{space}/blocks/{block}/reservations/{reservation}", h.withAuth(h.getReservation))
	mux.HandleFunc("DELETE /spaces/{space}/blocks/{block}/reservations/{reservation}", h.withAuth(h.deleteReservation))

	return mux
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, ac *auth.Context)

func (h *Handler) withAuth(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, err := h.resolve(r)
		if err != nil {
			h.writeError(w, r, &space.Error{Kind: space.KindForbidden, Detail: "Unable to resolve caller identity."})
			return
		}
		fn(w, r, ac)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// errorBody mirrors the historical {"detail": "..."} envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var typed *space.Error
	if errors.As(err, &typed) {
		h.writeJSON(w, typed.StatusCode(), errorBody{Detail: typed.Detail})
		return
	}
	h.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.writeJSON(w, http.StatusInternalServerError, errorBody{Detail: "Internal server error."})
}

func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}

func boolQuery(r *http.Request, name string) bool {
	return strings.EqualFold(r.URL.Query().Get(name), "true")
}

func viewOpts(r *http.Request) space.ViewOpts {
	return space.ViewOpts{
		Expand:      boolQuery(r, "expand"),
		Utilization: boolQuery(r, "utilization"),
	}
}

const msgBadBody = "Request body is not valid JSON."

func (h *Handler) listSpaces(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	views, err := h.svc.ListSpaces(r.Context(), ac, viewOpts(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createSpace(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.SpaceRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	created, err := h.svc.CreateSpace(r.Context(), ac, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getSpace(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	view, err := h.svc.GetSpace(r.Context(), ac, r.PathValue("space"), viewOpts(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) updateSpace(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	rawPatch, err := readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	updated, err := h.svc.UpdateSpace(r.Context(), ac, r.PathValue("space"), rawPatch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteSpace(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	if err := h.svc.DeleteSpace(r.Context(), ac, r.PathValue("space"), boolQuery(r, "force")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listSpaceReservations(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	views, err := h.svc.ListSpaceReservations(r.Context(), ac, r.PathValue("space"), boolQuery(r, "settled"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) reserveMultiBlock(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.MultiBlockRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	view, err := h.svc.ReserveMultiBlock(r.Context(), ac, r.PathValue("space"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) listBlocks(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	views, err := h.svc.ListBlocks(r.Context(), ac, r.PathValue("space"), viewOpts(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createBlock(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.BlockRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	created, err := h.svc.CreateBlock(r.Context(), ac, r.PathValue("space"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) getBlock(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	view, err := h.svc.GetBlock(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), viewOpts(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) updateBlock(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	rawPatch, err := readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	updated, err := h.svc.UpdateBlock(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), rawPatch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteBlock(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	if err := h.svc.DeleteBlock(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), boolQuery(r, "force")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) availableNetworks(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	nets, err := h.svc.AvailableNetworks(r.Context(), ac, r.PathValue("space"), r.PathValue("block"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if boolQuery(r, "expand") {
		h.writeJSON(w, http.StatusOK, nets)
		return
	}
	ids := make([]string, len(nets))
	for i, net := range nets {
		ids[i] = net.ID
	}
	h.writeJSON(w, http.StatusOK, ids)
}

func (h *Handler) listNetworks(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	refs, expanded, err := h.svc.ListBlockNetworks(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), boolQuery(r, "expand"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if boolQuery(r, "expand") {
		h.writeJSON(w, http.StatusOK, expanded)
		return
	}
	h.writeJSON(w, http.StatusOK, refs)
}

type vnetRequest struct {
	ID string `json:"id"`
}

func (h *Handler) attachNetwork(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req vnetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	block, err := h.svc.AttachNetwork(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), req.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, block)
}

func (h *Handler) replaceNetworks(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var ids []string
	if err := decodeBody(r, &ids); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	refs, err := h.svc.ReplaceNetworks(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), ids)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, refs)
}

func (h *Handler) detachNetworks(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var ids []string
	if err := decodeBody(r, &ids); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	if err := h.svc.DetachNetworks(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), ids); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listExternals(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	externals, err := h.svc.ListExternals(r.Context(), ac, r.PathValue("space"), r.PathValue("block"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, externals)
}

func (h *Handler) createExternal(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.ExternalRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	view, err := h.svc.CreateExternal(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) getExternal(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	external, err := h.svc.GetExternal(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, external)
}

func (h *Handler) updateExternal(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	rawPatch, err := readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	updated, err := h.svc.UpdateExternal(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), rawPatch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteExternal(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	err := h.svc.DeleteExternal(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), boolQuery(r, "force"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listSubnets(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	subnets, err := h.svc.ListSubnets(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subnets)
}

func (h *Handler) createSubnet(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.SubnetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	view, err := h.svc.CreateSubnet(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) getSubnet(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	subnet, err := h.svc.GetSubnet(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, subnet)
}

func (h *Handler) updateSubnet(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	rawPatch, err := readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	updated, err := h.svc.UpdateSubnet(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), rawPatch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteSubnet(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	err := h.svc.DeleteSubnet(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), boolQuery(r, "force"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listEndpoints(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	endpoints, err := h.svc.ListEndpoints(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, endpoints)
}

func (h *Handler) createEndpoint(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.EndpointRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	endpoint, err := h.svc.CreateEndpoint(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	// The endpoint create historically returns 200, not 201.
	h.writeJSON(w, http.StatusOK, endpoint)
}

func (h *Handler) replaceEndpoints(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var reqs []space.EndpointRequest
	if err := decodeBody(r, &reqs); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	endpoints, err := h.svc.ReplaceEndpoints(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), reqs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, endpoints)
}

func (h *Handler) deleteEndpoints(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var names []string
	if err := decodeBody(r, &names); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	err := h.svc.DeleteEndpoints(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), names)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) getEndpoint(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	endpoint, err := h.svc.GetEndpoint(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), r.PathValue("endpoint"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, endpoint)
}

func (h *Handler) updateEndpoint(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	rawPatch, err := readBody(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	updated, err := h.svc.UpdateEndpoint(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), r.PathValue("endpoint"), rawPatch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteEndpoint(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	err := h.svc.DeleteEndpoint(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("external"), r.PathValue("subnet"), r.PathValue("endpoint"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) listBlockReservations(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	views, err := h.svc.ListBlockReservations(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), boolQuery(r, "settled"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var req space.ReservationRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	view, err := h.svc.CreateReservation(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) deleteReservations(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	var ids []string
	if err := decodeBody(r, &ids); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Detail: msgBadBody})
		return
	}
	if err := h.svc.DeleteReservations(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), ids); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	view, err := h.svc.GetReservation(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("reservation"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) deleteReservation(w http.ResponseWriter, r *http.Request, ac *auth.Context) {
	if err := h.svc.DeleteReservation(r.Context(), ac, r.PathValue("space"), r.PathValue("block"), r.PathValue("reservation")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
