package registration

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medicare/portal/internal/domain/triage"
	"github.com/medicare/portal/internal/platform/auth"
	"github.com/medicare/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the public intake endpoints on api and the
// dashboard endpoints on admin, which must already authenticate.
func (h *Handler) RegisterRoutes(api *echo.Group, admin *echo.Group) {
	api.POST("/registrations", h.Register)
	api.GET("/registrations/:registration_id/status", h.Status)
	api.GET("/departments", h.Departments)

	g := admin.Group("", auth.RequireRole(auth.RoleAdmin))
	g.GET("/registrations", h.List)
	g.GET("/registrations/:registration_id", h.Get)
	g.GET("/registrations/:registration_id/report", h.Report)
	g.POST("/registrations/:registration_id/confirm", h.Confirm)
	g.GET("/stats", h.Stats)
	g.GET("/alerts", h.Alerts)
	g.POST("/alerts/:id/resolve", h.ResolveAlert)
	g.GET("/reports/registrations", h.Export)
}

func (h *Handler) Register(c echo.Context) error {
	var in triage.Intake
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Register(c.Request().Context(), in)
	if err != nil {
		var iie *triage.InvalidIntakeError
		if errors.As(err, &iie) {
			return c.JSON(http.StatusBadRequest, map[string]string{"field": iie.Field, "error": iie.Error()})
		}
		if errors.Is(err, ErrDuplicateID) {
			return echo.NewHTTPError(http.StatusConflict, "registration id already in use, retry")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Status(c echo.Context) error {
	v, err := h.svc.Status(c.Request().Context(), c.Param("registration_id"))
	if err != nil {
		return notFoundOr500(err, "registration not found")
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Departments(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"departments": triage.Catalog})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	dept := triage.Department(c.QueryParam("department"))
	items, total, err := h.svc.List(c.Request().Context(), dept, pg.Limit, pg.Offset)
	if err != nil {
		if errors.Is(err, ErrUnknownDepartment) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	a, err := h.svc.Get(c.Request().Context(), c.Param("registration_id"))
	if err != nil {
		return notFoundOr500(err, "registration not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Report(c echo.Context) error {
	r, err := h.svc.Report(c.Request().Context(), c.Param("registration_id"))
	if err != nil {
		return notFoundOr500(err, "registration not found")
	}
	return c.JSON(http.StatusOK, r)
}

type confirmRequest struct {
	AppointmentTime *time.Time `json:"appointment_time"`
	AdminNotes      string     `json:"admin_notes"`
}

func (h *Handler) Confirm(c echo.Context) error {
	var req confirmRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Confirm(c.Request().Context(), c.Param("registration_id"), req.AppointmentTime, req.AdminNotes)
	if err != nil {
		return notFoundOr500(err, "registration not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Stats(c echo.Context) error {
	st, err := h.svc.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, st)
}

func (h *Handler) Alerts(c echo.Context) error {
	items, err := h.svc.ActiveAlerts(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items, "total": len(items)})
}

func (h *Handler) ResolveAlert(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.ResolveAlert(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrAlertNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "alert not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Export(c echo.Context) error {
	format := strings.ToLower(c.QueryParam("format"))
	if format == "" {
		format = "csv"
	}
	var buf bytes.Buffer
	if err := h.svc.Export(c.Request().Context(), format, &buf); err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	name := fmt.Sprintf("registrations-%s.%s", time.Now().UTC().Format("20060102"), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, ContentType(format), buf.Bytes())
}

func notFoundOr500(err error, msg string) error {
	if errors.Is(err, ErrAppointmentNotFound) || errors.Is(err, triage.ErrVerdictNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
