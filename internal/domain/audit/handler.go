package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carewell/hms/internal/platform/auth"
	"github.com/carewell/hms/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, engine *auth.Engine) {
	readGroup := api.Group("", engine.Middleware("audit.read"))
	readGroup.GET("/audit-log", h.ListEntries)
}

func (h *Handler) ListEntries(c echo.Context) error {
	p := pagination.FromContext(c)
	filter := Filter{
		ActorID:  c.QueryParam("actor_id"),
		Action:   c.QueryParam("action"),
		Resource: c.QueryParam("resource"),
		Limit:    p.Limit,
		Offset:   p.Offset,
	}

	entries, total, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, p.Limit, p.Offset))
}
