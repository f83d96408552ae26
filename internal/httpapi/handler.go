// Package httpapi serves the JSON surface consumed by the presentation layer:
// cached reads, unsigned write requests and settlement of executed writes.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/suiven-network/suiven/internal/actions"
	svcerrors "github.com/suiven-network/suiven/internal/errors"
	"github.com/suiven-network/suiven/internal/profile"
	"github.com/suiven-network/suiven/internal/sui"
	"github.com/suiven-network/suiven/internal/suiven"
	"github.com/suiven-network/suiven/internal/txbuilder"
	"github.com/suiven-network/suiven/internal/units"
	"github.com/suiven-network/suiven/pkg/logger"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

// Reader is the query surface the gateway exposes.
type Reader interface {
	Event(ctx context.Context, id string) (*suiven.Event, error)
	AllEvents(ctx context.Context) ([]suiven.Event, error)
	FeaturedEvents(ctx context.Context) ([]suiven.Event, error)
	EventsByOrganizer(ctx context.Context, owner string) ([]suiven.Event, error)
	Ticket(ctx context.Context, id string) (*suiven.Ticket, error)
	WalletTickets(ctx context.Context, owner string) ([]suiven.Ticket, error)
	WalletProofs(ctx context.Context, owner string) ([]suiven.Proof, error)
}

// Profiles stores wallet holder profiles.
type Profiles interface {
	Load(address string) profile.Profile
	Save(address string, p profile.Profile) bool
	Clear(address string) bool
}

// Instrumenter wraps a route handler with telemetry.
type Instrumenter interface {
	InstrumentHandler(route string, next http.Handler) http.Handler
	Handler() http.Handler
}

// Options configures the handler. Nil fields disable the routes that need them.
type Options struct {
	Profiles Profiles
	Metrics  Instrumenter
	Logger   *logger.Logger

	// Builder enables POST /tx/{action}.
	Builder *txbuilder.Builder
	// Actions and Waiter together enable POST /tx/{action}/executed.
	Actions *actions.Service
	Waiter  actions.Waiter
}

type handler struct {
	reader   Reader
	profiles Profiles
	builder  *txbuilder.Builder
	actions  *actions.Service
	waiter   actions.Waiter
	log      *logger.Logger
}

// NewHandler returns a router exposing the gateway API.
func NewHandler(reader Reader, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logger.NewDefault("httpapi")
	}
	h := &handler{
		reader:   reader,
		profiles: opts.Profiles,
		builder:  opts.Builder,
		actions:  opts.Actions,
		waiter:   opts.Waiter,
		log:      opts.Logger,
	}

	router := mux.NewRouter()
	route := func(path string, fn http.HandlerFunc, methods ...string) {
		var next http.Handler = fn
		if opts.Metrics != nil {
			next = opts.Metrics.InstrumentHandler(path, next)
		}
		router.Handle(path, next).Methods(methods...)
	}

	route("/healthz", h.health, http.MethodGet)
	route("/events", h.listEvents, http.MethodGet)
	route("/events/featured", h.featuredEvents, http.MethodGet)
	route("/events/{id}", h.getEvent, http.MethodGet)
	route("/organizers/{owner}/events", h.organizerEvents, http.MethodGet)
	route("/owners/{owner}/tickets", h.ownerTickets, http.MethodGet)
	route("/owners/{owner}/proofs", h.ownerProofs, http.MethodGet)
	route("/tickets/{id}", h.getTicket, http.MethodGet)
	route("/units/to-base", h.toBase, http.MethodPost)
	route("/units/from-base/{value}", h.fromBase, http.MethodGet)
	if h.profiles != nil {
		route("/profiles/{address}", h.getProfile, http.MethodGet)
		route("/profiles/{address}", h.putProfile, http.MethodPut)
		route("/profiles/{address}", h.deleteProfile, http.MethodDelete)
	}
	if h.builder != nil {
		route("/tx/{action}", h.buildTx, http.MethodPost)
	}
	if h.actions != nil && h.waiter != nil {
		route("/tx/{action}/executed", h.settleTx, http.MethodPost)
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}
	return router
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// Events
// =============================================================================

func (h *handler) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reader.AllEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventViews(events))
}

func (h *handler) featuredEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.reader.FeaturedEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventViews(events))
}

func (h *handler) getEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathAddress(w, r, "id")
	if !ok {
		return
	}
	event, err := h.reader.Event(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if event == nil {
		h.writeError(w, r, svcerrors.NotFound("event", id))
		return
	}
	writeJSON(w, http.StatusOK, eventView(*event))
}

func (h *handler) organizerEvents(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathAddress(w, r, "owner")
	if !ok {
		return
	}
	events, err := h.reader.EventsByOrganizer(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, eventViews(events))
}

// =============================================================================
// Tickets and proofs
// =============================================================================

func (h *handler) ownerTickets(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathAddress(w, r, "owner")
	if !ok {
		return
	}
	tickets, err := h.reader.WalletTickets(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticketViews(tickets))
}

func (h *handler) ownerProofs(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.pathAddress(w, r, "owner")
	if !ok {
		return
	}
	proofs, err := h.reader.WalletProofs(r.Context(), owner)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, proofViews(proofs))
}

func (h *handler) getTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathAddress(w, r, "id")
	if !ok {
		return
	}
	ticket, err := h.reader.Ticket(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if ticket == nil {
		h.writeError(w, r, svcerrors.NotFound("ticket", id))
		return
	}
	writeJSON(w, http.StatusOK, ticketViews([]suiven.Ticket{*ticket})[0])
}

// =============================================================================
// Units
// =============================================================================

type unitsResponse struct {
	Value     string `json:"value"`
	BaseUnits string `json:"baseUnits"`
}

func (h *handler) toBase(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		h.writeError(w, r, svcerrors.InvalidInput("body", err.Error()))
		return
	}
	base, err := units.ToBaseUnits(payload.Value)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, unitsResponse{Value: units.FromBaseUnits(base), BaseUnits: base.String()})
}

func (h *handler) fromBase(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["value"]
	base, ok := units.ParseBaseUnits(raw)
	if !ok || base.Sign() < 0 {
		h.writeError(w, r, svcerrors.InvalidInput("value", "must be a non-negative integer"))
		return
	}
	writeJSON(w, http.StatusOK, unitsResponse{Value: units.FromBaseUnits(base), BaseUnits: base.String()})
}

// =============================================================================
// Profiles
// =============================================================================

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.profiles.Load(address))
}

func (h *handler) putProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	var p profile.Profile
	if err := decodeJSON(r.Body, &p); err != nil {
		h.writeError(w, r, svcerrors.InvalidInput("body", err.Error()))
		return
	}
	if !h.profiles.Save(address, p) {
		h.writeError(w, r, svcerrors.Internal("profile could not be saved", nil))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	address, ok := h.pathAddress(w, r, "address")
	if !ok {
		return
	}
	if !h.profiles.Clear(address) {
		h.writeError(w, r, svcerrors.Internal("profile could not be cleared", nil))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

// pathAddress reads a path variable that must be a Sui address.
func (h *handler) pathAddress(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := mux.Vars(r)[name]
	if !sui.IsValidAddress(value) {
		h.writeError(w, r, svcerrors.InvalidInput(name, "must be a 0x-prefixed address"))
		return "", false
	}
	return value, true
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := svcerrors.GetServiceError(err)
	if se == nil {
		se = svcerrors.Internal("internal error", err)
	}
	status := svcerrors.HTTPStatus(se)
	if status >= http.StatusInternalServerError {
		h.log.WithContext(r.Context()).WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, map[string]interface{}{"error": se})
}
