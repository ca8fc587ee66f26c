package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/ward-bed-registry/internal/apperr"
    "github.com/iliyamo/ward-bed-registry/internal/model"
    "github.com/iliyamo/ward-bed-registry/internal/optimistic"
    "github.com/iliyamo/ward-bed-registry/internal/plan"
    "github.com/iliyamo/ward-bed-registry/internal/registry"
    "github.com/iliyamo/ward-bed-registry/internal/session"
    "github.com/iliyamo/ward-bed-registry/internal/wardview"
)

// DashboardHandler exposes the registry, the optimistic controller and the
// ward views to the staff dashboard.  Every route runs behind JWTAuth; the
// caller's session is forwarded to the bed store and the forecast service.
type DashboardHandler struct {
    Registry   *registry.Registry
    Controller *optimistic.Controller
    Board      *wardview.Board
    Plans      *plan.Cache
    Logger     *zap.Logger
}

// NewDashboardHandler wires a DashboardHandler and panics on a nil
// dependency.
func NewDashboardHandler(reg *registry.Registry, ctl *optimistic.Controller, board *wardview.Board, plans *plan.Cache, logger *zap.Logger) *DashboardHandler {
    if reg == nil || ctl == nil || board == nil || plans == nil {
        panic("nil dependency passed to NewDashboardHandler")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    return &DashboardHandler{Registry: reg, Controller: ctl, Board: board, Plans: plans, Logger: logger}
}

type bedRow struct {
    model.Bed
    Displayed model.BedStatus `json:"displayed_status"`
    Phase     string          `json:"phase"`
    Editable  bool            `json:"editable"`
}

type wardInventory struct {
    Ward      model.Ward          `json:"ward"`
    Aggregate model.WardAggregate `json:"aggregate"`
    Beds      []bedRow            `json:"beds"`
}

// Inventory handles GET /v1/inventory.  The registry is reloaded on the
// first call and whenever refresh=true.  A failed reload keeps the cached
// list and marks the response stale.
func (h *DashboardHandler) Inventory(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
    var loadErr error
    if refresh || !h.Registry.Loaded() {
        loadErr = h.Registry.Refresh(c.Request().Context(), sess)
    }
    if loadErr != nil && !h.Registry.Loaded() {
        return h.fail(c, loadErr)
    }

    canEdit := sess.CanEdit()
    wards := make([]wardInventory, 0, 4)
    for _, w := range model.KnownWards() {
        list := h.Registry.ListBeds(w.ID)
        rows := make([]bedRow, 0, len(list))
        for _, b := range list {
            st := h.Controller.State(b.BedID)
            rows = append(rows, bedRow{
                Bed:       b,
                Displayed: st.Displayed(),
                Phase:     st.Phase.String(),
                Editable:  canEdit && !st.Locked(),
            })
        }
        wards = append(wards, wardInventory{Ward: w, Aggregate: h.Registry.Aggregate(w.ID), Beds: rows})
    }
    resp := echo.Map{
        "wards":        wards,
        "stale":        h.Registry.Stale(),
        "refreshed_at": h.Registry.RefreshedAt(),
    }
    if loadErr != nil {
        resp["error"] = errorMessage(loadErr)
        resp["retry"] = true
    }
    return c.JSON(http.StatusOK, resp)
}

// RegisterBed handles POST /v1/beds.
func (h *DashboardHandler) RegisterBed(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body struct {
        WardID  string `json:"ward_id"`
        BedID   string `json:"bed_id"`
        BedType string `json:"bed_type"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    bed, err := h.Registry.Register(c.Request().Context(), sess, body.WardID, body.BedID, body.BedType)
    if err != nil {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"bed": bed, "stale": h.Registry.Stale()})
}

// UpdateBedStatus handles PUT /v1/beds/:bed_id/status.  The body names the
// target status; supersede=true replaces an edit still in flight.  A second
// edit without supersede while one is in flight yields 423.
func (h *DashboardHandler) UpdateBedStatus(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    bedID := strings.TrimSpace(c.Param("bed_id"))
    var body struct {
        Status    string `json:"status"`
        Supersede bool   `json:"supersede"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    target, ok := model.ParseBedStatus(body.Status)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
    }

    ctx := c.Request().Context()
    var (
        st  optimistic.State
        err error
    )
    if body.Supersede {
        st, err = h.Controller.Supersede(ctx, sess, bedID, target)
    } else {
        st, err = h.Controller.Submit(ctx, sess, bedID, target)
    }
    switch {
    case errors.Is(err, optimistic.ErrEditLocked):
        return c.JSON(http.StatusLocked, echo.Map{"error": err.Error(), "bed_id": bedID})
    case errors.Is(err, optimistic.ErrStaleResult):
        cur := h.Controller.State(bedID)
        return c.JSON(http.StatusAccepted, echo.Map{"bed_id": bedID, "superseded": true, "phase": cur.Phase.String(), "displayed_status": cur.Displayed()})
    case err != nil && st.Phase == optimistic.RolledBack:
        e, _ := apperr.As(err)
        status := http.StatusBadGateway
        if e != nil {
            status = e.HTTPStatus()
        }
        return c.JSON(status, echo.Map{
            "error":            errorMessage(err),
            "bed_id":           bedID,
            "phase":            st.Phase.String(),
            "displayed_status": st.Displayed(),
        })
    case err != nil:
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"bed_id": bedID, "phase": st.Phase.String(), "displayed_status": st.Displayed()})
}

// WardView handles GET /v1/wards/:ward_id/view.  refresh=true recomposes the
// ward from fresh data.  Unreachable upstreams are reported in the view with
// status 200 so the dashboard can render the retry state.
func (h *DashboardHandler) WardView(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    wardID := strings.ToUpper(strings.TrimSpace(c.Param("ward_id")))
    refresh, _ := strconv.ParseBool(c.QueryParam("refresh"))
    v, err := h.Board.View(c.Request().Context(), sess, wardID, refresh)
    if err != nil && apperr.Is(err, apperr.KindValidation) {
        return h.fail(c, err)
    }
    return c.JSON(http.StatusOK, v)
}

// WardViews handles GET /v1/wards and recomposes every ward.
func (h *DashboardHandler) WardViews(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return c.JSON(http.StatusOK, h.Board.Refresh(c.Request().Context(), sess))
}

// RefreshPlan handles POST /v1/plan/refresh.  Every ward view follows the
// new snapshot.
func (h *DashboardHandler) RefreshPlan(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    st, err := h.Plans.Refresh(c.Request().Context(), sess)
    if err != nil {
        e, _ := apperr.As(err)
        status := http.StatusBadGateway
        if e != nil {
            status = e.HTTPStatus()
        }
        return c.JSON(status, planBody(st))
    }
    return c.JSON(http.StatusOK, planBody(st))
}

// Plan handles GET /v1/plan and returns the shared snapshot.
func (h *DashboardHandler) Plan(c echo.Context) error {
    sess, ok := sessionOf(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    return c.JSON(http.StatusOK, planBody(h.Plans.Get(c.Request().Context(), sess)))
}

func planBody(st plan.Status) echo.Map {
    if !st.Available || st.Current == nil {
        body := echo.Map{"plan_state": wardview.PlanUnavailable, "plan": nil, "retry": true}
        if st.Err != nil {
            body["error"] = errorMessage(st.Err)
        }
        return body
    }
    return echo.Map{
        "plan_state": wardview.PlanAvailable,
        "version":    st.Current.Version,
        "fetched_at": st.Current.FetchedAt,
        "plan":       st.Current.Plan,
    }
}

// fail writes err using the taxonomy's status mapping.
func (h *DashboardHandler) fail(c echo.Context, err error) error {
    if errors.Is(err, session.ErrNoSession) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    e, ok := apperr.As(err)
    if !ok {
        h.Logger.Error("dashboard request failed", zap.String("path", c.Path()), zap.Error(err))
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
    body := echo.Map{"error": e.UserMessage(), "kind": e.Kind}
    if e.Field != "" {
        body["field"] = e.Field
    }
    if e.Kind == apperr.KindUnreachable {
        body["retry"] = true
    }
    return c.JSON(e.HTTPStatus(), body)
}

func errorMessage(err error) string {
    if e, ok := apperr.As(err); ok {
        return e.UserMessage()
    }
    return err.Error()
}
