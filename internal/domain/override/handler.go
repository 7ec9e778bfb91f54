package override

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carewell/hms/internal/domain/audit"
	"github.com/carewell/hms/internal/platform/auth"
)

type Handler struct {
	svc    *Service
	audits *audit.Service
}

func NewHandler(svc *Service, audits *audit.Service) *Handler {
	return &Handler{svc: svc, audits: audits}
}

func (h *Handler) RegisterRoutes(api *echo.Group, engine *auth.Engine) {
	// Issuance needs only the narrow request permission.
	requestGroup := api.Group("", engine.Middleware("emergency.request"))
	requestGroup.POST("/emergency/overrides", h.IssueOverride)

	// Listing and revocation are administrative.
	manageGroup := api.Group("", engine.Middleware("emergency.manage"))
	manageGroup.GET("/emergency/overrides", h.ListOverrides)
	manageGroup.POST("/emergency/overrides/:id/expire", h.ExpireOverride)
}

type issueRequest struct {
	Reason       string  `json:"reason"`
	TargetUserID *string `json:"target_user_id,omitempty"`
	TTLMinutes   int     `json:"ttl_minutes,omitempty"`
}

func (h *Handler) IssueOverride(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())
	if actor == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req issueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ttl := time.Duration(req.TTLMinutes) * time.Minute
	grant, err := h.svc.Issue(c.Request().Context(), actor.ID, req.Reason, req.TargetUserID, ttl)
	switch {
	case errors.Is(err, ErrReasonTooShort):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue override")
	}

	id := grant.ID.String()
	ip := c.RealIP()
	h.audits.TryRecord(c.Request().Context(), &audit.Entry{
		ActorID:    &actor.ID,
		Action:     "emergency.override.issued",
		Resource:   auth.ResourceOverride,
		ResourceID: &id,
		Meta: map[string]interface{}{
			"reason":         req.Reason,
			"target_user_id": req.TargetUserID,
			"expires_at":     grant.ExpiresAt,
		},
		IP: &ip,
	})

	return c.JSON(http.StatusCreated, grant)
}

func (h *Handler) ListOverrides(c echo.Context) error {
	onlyActive := c.QueryParam("active") == "true"
	overrides, err := h.svc.List(c.Request().Context(), onlyActive)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, overrides)
}

func (h *Handler) ExpireOverride(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	requestedBy := ""
	if actor := auth.ActorFromContext(c.Request().Context()); actor != nil {
		requestedBy = actor.ID
	}

	o, err := h.svc.Expire(c.Request().Context(), id, requestedBy)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "override not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	idStr := id.String()
	ip := c.RealIP()
	var actorID *string
	if requestedBy != "" {
		actorID = &requestedBy
	}
	h.audits.TryRecord(c.Request().Context(), &audit.Entry{
		ActorID:    actorID,
		Action:     "emergency.override.revoked",
		Resource:   auth.ResourceOverride,
		ResourceID: &idStr,
		Meta:       map[string]interface{}{"reason": o.Reason},
		IP:         &ip,
	})

	return c.JSON(http.StatusOK, o)
}
