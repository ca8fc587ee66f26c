package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/ward-bed-registry/internal/model"
    "github.com/iliyamo/ward-bed-registry/internal/queue"
    "github.com/iliyamo/ward-bed-registry/internal/repository"
)

// BedStore is the bed persistence used by StoreHandler.  BedRepo and
// MemoryBedRepo implement it.
type BedStore interface {
    Create(ctx context.Context, b *model.Bed) error
    List(ctx context.Context, wardID string) ([]model.Bed, error)
    GetByID(ctx context.Context, bedID string) (*model.Bed, error)
    UpdateStatus(ctx context.Context, bedID string, status model.BedStatus) (model.BedStatus, error)
    CountFunctional(ctx context.Context, wardID string) (int, error)
}

// WardStore holds the census and surge figures of each ward.
type WardStore interface {
    RecordCensus(ctx context.Context, wardID string, occupied int, recordedBy string) error
    LatestOccupied(ctx context.Context, wardID string) (int, error)
    SetActiveSurge(ctx context.Context, wardID string, active int, updatedBy string) error
    ActiveSurge(ctx context.Context, wardID string) (int, error)
}

// EventPublisher delivers bed events after a committed change.
type EventPublisher interface {
    Publish(ctx context.Context, ev queue.BedEvent) error
}

// Invalidator purges cached read responses.
type Invalidator interface {
    Invalidate(ctx context.Context) error
}

const (
    publishTimeout = 3 * time.Second
    outboxSize     = 256
)

// StoreHandler serves the Bed Entity Store routes.  Events and Cache are
// optional; a nil value disables publishing or invalidation.
//
// Events are handed to one background publisher in commit order, so a slow
// or unreachable broker never delays a response.
type StoreHandler struct {
    Beds   BedStore
    Wards  WardStore
    Events EventPublisher
    Cache  Invalidator
    Logger *zap.Logger

    outbox chan queue.BedEvent
    done   chan struct{}
}

// NewStoreHandler wires a StoreHandler and panics if a repository is nil.
// Call Close on shutdown to flush queued events.
func NewStoreHandler(beds BedStore, wards WardStore, events EventPublisher, cache Invalidator, logger *zap.Logger) *StoreHandler {
    if beds == nil || wards == nil {
        panic("nil repository passed to NewStoreHandler")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    h := &StoreHandler{Beds: beds, Wards: wards, Events: events, Cache: cache, Logger: logger}
    if events != nil {
        h.outbox = make(chan queue.BedEvent, outboxSize)
        h.done = make(chan struct{})
        go h.drain()
    }
    return h
}

// Close stops accepting events and waits until the queued ones have been
// published or have failed.
func (h *StoreHandler) Close() {
    if h.outbox == nil {
        return
    }
    close(h.outbox)
    <-h.done
}

func (h *StoreHandler) drain() {
    defer close(h.done)
    for ev := range h.outbox {
        ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
        if err := h.Events.Publish(ctx, ev); err != nil {
            h.Logger.Warn("publish bed event failed", zap.String("type", ev.Type), zap.String("event_id", ev.EventID), zap.Error(err))
        }
        cancel()
    }
}

// ListBeds handles GET /beds.  An optional ward_id query parameter narrows
// the list to one ward; an unknown ward yields 400.
func (h *StoreHandler) ListBeds(c echo.Context) error {
    wardID := strings.ToUpper(strings.TrimSpace(c.QueryParam("ward_id")))
    if wardID != "" && !model.IsKnownWard(wardID) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + wardID})
    }
    beds, err := h.Beds.List(c.Request().Context(), wardID)
    if err != nil {
        h.Logger.Error("list beds failed", zap.String("ward_id", wardID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, beds)
}

// CreateBed handles POST /bed.  New beds always start Functional.  A bed id
// that exists in any ward yields 409.
func (h *StoreHandler) CreateBed(c echo.Context) error {
    var req model.RegisterBedRequest
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    bed, err := req.Normalize()
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": errorMessage(err)})
    }
    ctx := c.Request().Context()
    if err := h.Beds.Create(ctx, &bed); err != nil {
        if errors.Is(err, repository.ErrDuplicateBed) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "bed id " + bed.BedID + " already exists"})
        }
        h.Logger.Error("create bed failed", zap.String("bed_id", bed.BedID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.Logger.Info("bed registered", zap.String("bed_id", bed.BedID), zap.String("ward_id", bed.WardID))
    h.invalidate(ctx)

    ev := queue.NewBedEvent(queue.EventBedRegistered, bed.WardID, actor(c))
    ev.BedID = bed.BedID
    ev.BedType = string(bed.BedType)
    ev.Status = string(bed.Status)
    h.publish(ev)
    return c.JSON(http.StatusCreated, bed)
}

// UpdateBedStatus handles PUT /bed-status.  Setting the current status again
// succeeds without publishing an event.
func (h *StoreHandler) UpdateBedStatus(c echo.Context) error {
    var body struct {
        BedID  string `json:"bed_id"`
        Status string `json:"status"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    bedID := strings.TrimSpace(body.BedID)
    if bedID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "bed_id is required"})
    }
    status, ok := model.ParseBedStatus(body.Status)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }
    ctx := c.Request().Context()
    prev, err := h.Beds.UpdateStatus(ctx, bedID, status)
    if err != nil {
        if errors.Is(err, repository.ErrBedNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "bed not found"})
        }
        h.Logger.Error("update bed status failed", zap.String("bed_id", bedID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    bed, err := h.Beds.GetByID(ctx, bedID)
    if err != nil {
        h.Logger.Error("reload bed failed", zap.String("bed_id", bedID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    if prev != status {
        h.invalidate(ctx)
        ev := queue.NewBedEvent(queue.EventBedStatusChanged, bed.WardID, actor(c))
        ev.BedID = bed.BedID
        ev.Status = string(status)
        ev.PreviousStatus = string(prev)
        h.publish(ev)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "bed": bed})
}

// DeleteBed handles DELETE /bed.  Beds are never removed.
func (h *StoreHandler) DeleteBed(c echo.Context) error {
    return c.JSON(http.StatusMethodNotAllowed, echo.Map{"error": "bed deletion is not supported"})
}

// WardStatus handles GET /ward-status/:ward_id.
func (h *StoreHandler) WardStatus(c echo.Context) error {
    wardID := strings.ToUpper(strings.TrimSpace(c.Param("ward_id")))
    if !model.IsKnownWard(wardID) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + wardID})
    }
    ctx := c.Request().Context()
    capacity, err := h.Beds.CountFunctional(ctx, wardID)
    if err != nil {
        h.Logger.Error("count functional beds failed", zap.String("ward_id", wardID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    occupied, err := h.Wards.LatestOccupied(ctx, wardID)
    if err != nil {
        h.Logger.Error("read census failed", zap.String("ward_id", wardID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    surge, err := h.Wards.ActiveSurge(ctx, wardID)
    if err != nil {
        h.Logger.Error("read surge failed", zap.String("ward_id", wardID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, model.NewWardStatus(wardID, capacity, occupied, surge))
}

// RecordCensus handles POST /ward-census with {ward_id, occupied}.
func (h *StoreHandler) RecordCensus(c echo.Context) error {
    var body struct {
        WardID   string `json:"ward_id"`
        Occupied *int   `json:"occupied"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    wardID := strings.ToUpper(strings.TrimSpace(body.WardID))
    if !model.IsKnownWard(wardID) {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + wardID})
    }
    if body.Occupied == nil || *body.Occupied < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "occupied must be a non-negative integer"})
    }
    ctx := c.Request().Context()
    if err := h.Wards.RecordCensus(ctx, wardID, *body.Occupied, actor(c)); err != nil {
        if errors.Is(err, repository.ErrUnknownWard) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + wardID})
        }
        h.Logger.Error("record census failed", zap.String("ward_id", wardID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.invalidate(ctx)
    ev := queue.NewBedEvent(queue.EventCensusRecorded, wardID, actor(c))
    ev.Occupied = body.Occupied
    h.publish(ev)
    return c.JSON(http.StatusCreated, echo.Map{"ward_id": wardID, "occupied": *body.Occupied})
}

// SetSurge handles PUT /ward-surge with {ward_id, active}.  The active count
// is clamped to the ward's surge limit; wards without surge capacity always
// end at zero.
func (h *StoreHandler) SetSurge(c echo.Context) error {
    var body struct {
        WardID string `json:"ward_id"`
        Active *int   `json:"active"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ward, ok := model.LookupWard(strings.ToUpper(strings.TrimSpace(body.WardID)))
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + body.WardID})
    }
    if body.Active == nil || *body.Active < 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "active must be a non-negative integer"})
    }
    active := *body.Active
    if active > ward.SurgeLimit {
        active = ward.SurgeLimit
    }
    ctx := c.Request().Context()
    if err := h.Wards.SetActiveSurge(ctx, ward.ID, active, actor(c)); err != nil {
        if errors.Is(err, repository.ErrUnknownWard) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown ward " + ward.ID})
        }
        h.Logger.Error("set surge failed", zap.String("ward_id", ward.ID), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    h.invalidate(ctx)
    ev := queue.NewBedEvent(queue.EventSurgeUpdated, ward.ID, actor(c))
    ev.ActiveSurge = &active
    h.publish(ev)
    return c.JSON(http.StatusOK, echo.Map{"ward_id": ward.ID, "active_surge": active, "surge_limit": ward.SurgeLimit})
}

func (h *StoreHandler) invalidate(ctx context.Context) {
    if h.Cache == nil {
        return
    }
    if err := h.Cache.Invalidate(ctx); err != nil {
        h.Logger.Warn("cache invalidation failed", zap.Error(err))
    }
}

// publish queues ev without blocking; the mutation has already committed.
// A full outbox drops the event.
func (h *StoreHandler) publish(ev queue.BedEvent) {
    if h.outbox == nil {
        return
    }
    select {
    case h.outbox <- ev:
    default:
        h.Logger.Warn("bed event outbox full, event dropped", zap.String("type", ev.Type), zap.String("event_id", ev.EventID))
    }
}
