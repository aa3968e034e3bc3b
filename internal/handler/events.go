package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/granada-sport/server/internal/model"
	"github.com/granada-sport/server/internal/service"
)

// Catalog is the event operations used by EventHandler.  It is satisfied
// by *service.EventCatalog.
type Catalog interface {
	Create(ctx context.Context, organizerID uint64, in model.EventDetails) (model.Event, error)
	List(ctx context.Context, f service.ListFilter) ([]model.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uint64, page service.Page) ([]model.Event, error)
	Get(ctx context.Context, eventID, requesterID uint64) (model.Event, error)
	Update(ctx context.Context, eventID, organizerID uint64, in model.EventDetails) (model.Event, error)
	Delete(ctx context.Context, eventID, organizerID uint64) error
}

// Ledger is the participation operations used by EventHandler.  It is
// satisfied by *service.ParticipationLedger.
type Ledger interface {
	Join(ctx context.Context, eventID, userID uint64) (model.JoinOutcome, error)
	Leave(ctx context.Context, eventID, userID uint64) error
	ListParticipants(ctx context.Context, eventID, organizerID uint64) ([]uint64, error)
}

// EventHandler serves /event and its participation sub-resources.
type EventHandler struct {
	Catalog Catalog
	Ledger  Ledger
}

func NewEventHandler(catalog Catalog, ledger Ledger) *EventHandler {
	return &EventHandler{Catalog: catalog, Ledger: ledger}
}

// Create handles POST /event.
func (h *EventHandler) Create(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	var req eventReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.Create(ctx, u.ID, req.details())
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusCreated, toEventResp(e))
}

// List handles GET /event?sport=&skip=&limit=.
func (h *EventHandler) List(c echo.Context) error {
	p, err := page(c)
	if err != nil {
		return badRequest(c, "skip and limit must be integers")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	events, err := h.Catalog.List(ctx, service.ListFilter{Sport: c.QueryParam("sport"), Page: p})
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusOK, toEventResps(events))
}

// Mine handles GET /event/me.
func (h *EventHandler) Mine(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	p, err := page(c)
	if err != nil {
		return badRequest(c, "skip and limit must be integers")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	events, err := h.Catalog.ListByOrganizer(ctx, u.ID, p)
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusOK, toEventResps(events))
}

// Get handles GET /event/:id.  Only the organizer sees the event.
func (h *EventHandler) Get(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.Get(ctx, id, u.ID)
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusOK, toEventResp(e))
}

// Update handles PUT /event/:id.
func (h *EventHandler) Update(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req eventReq
	if err := bindValid(c, &req); err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	e, err := h.Catalog.Update(ctx, id, u.ID, req.details())
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusOK, toEventResp(e))
}

// Delete handles DELETE /event/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Catalog.Delete(ctx, id, u.ID); err != nil {
		return respondError(c, err, "event not found or you are not the organizer")
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": "event deleted"})
}

// Join handles POST /event/:id/participate.
func (h *EventHandler) Join(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	outcome, err := h.Ledger.Join(ctx, id, u.ID)
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusCreated, echo.Map{"detail": "participation registered", "outcome": outcome.String()})
}

// Leave handles DELETE /event/:id/participate.
func (h *EventHandler) Leave(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	if err := h.Ledger.Leave(ctx, id, u.ID); err != nil {
		return respondError(c, err, "event not found or you are not participating in this event")
	}
	return c.JSON(http.StatusOK, echo.Map{"detail": "participation removed"})
}

// Participants handles GET /event/:id/participants.
func (h *EventHandler) Participants(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return unauthenticated(c)
	}
	id, ok := eventID(c)
	if !ok {
		return badRequest(c, "invalid event id")
	}
	ctx, cancel := withTimeout(c)
	defer cancel()

	ids, err := h.Ledger.ListParticipants(ctx, id, u.ID)
	if err != nil {
		return respondError(c, err, "event not found")
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "user_ids": ids})
}
