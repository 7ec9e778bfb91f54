package role

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carewell/hms/internal/domain/audit"
	"github.com/carewell/hms/internal/platform/auth"
)

const resourceRole = "Role"

type Handler struct {
	svc    *Service
	audits *audit.Service
}

func NewHandler(svc *Service, audits *audit.Service) *Handler {
	return &Handler{svc: svc, audits: audits}
}

func (h *Handler) RegisterRoutes(api *echo.Group, engine *auth.Engine) {
	read := api.Group("", engine.Middleware("roles.read"))
	read.GET("/roles", h.ListRoles)
	read.GET("/roles/:id", h.GetRole)
	read.GET("/permissions", h.ListPermissions)

	manage := api.Group("", engine.Middleware("roles.manage"))
	manage.POST("/roles", h.CreateRole)
	manage.PUT("/roles/:id", h.UpdateRole)
	manage.DELETE("/roles/:id", h.DeleteRole)
	manage.POST("/permissions", h.CreatePermission)
}

type roleRequest struct {
	Name        *string   `json:"name"`
	Permissions *[]string `json:"permissions"`
}

func (h *Handler) ListRoles(c echo.Context) error {
	roles, err := h.svc.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *Handler) GetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	role, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "role not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, role)
}

func (h *Handler) CreateRole(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	name := ""
	if req.Name != nil {
		name = *req.Name
	}
	perms := []string{}
	if req.Permissions != nil {
		perms = *req.Permissions
	}

	role, err := h.svc.Create(c.Request().Context(), name, perms)
	switch {
	case errors.Is(err, ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidPermissionName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recordMutation(c, "roles.create", role.ID, nil, roleSnapshot(role))
	return c.JSON(http.StatusCreated, role)
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	before, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "role not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	role, err := h.svc.Update(c.Request().Context(), id, UpdateInput{
		Name:            req.Name,
		PermissionNames: req.Permissions,
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "role not found")
	case errors.Is(err, ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidPermissionName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recordMutation(c, "roles.update", id, roleSnapshot(before), roleSnapshot(role))
	return c.JSON(http.StatusOK, role)
}

func (h *Handler) DeleteRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	before, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "role not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	err = h.svc.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, ErrRootRoleProtected), errors.Is(err, ErrRoleInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "role not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recordMutation(c, "roles.delete", id, roleSnapshot(before), nil)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListPermissions(c echo.Context) error {
	perms, err := h.svc.ListPermissions(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, perms)
}

func (h *Handler) CreatePermission(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.CreatePermission(c.Request().Context(), req.Name)
	switch {
	case errors.Is(err, ErrInvalidPermissionName):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateName):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.recordMutation(c, "permissions.create", p.ID, nil, map[string]interface{}{"name": p.Name})
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) recordMutation(c echo.Context, action string, id uuid.UUID, before, after map[string]interface{}) {
	var actorID *string
	if actor := auth.ActorFromContext(c.Request().Context()); actor != nil {
		actorID = &actor.ID
	}
	idStr := id.String()
	ip := c.RealIP()
	h.audits.TryRecord(c.Request().Context(), &audit.Entry{
		ActorID:    actorID,
		Action:     action,
		Resource:   resourceRole,
		ResourceID: &idStr,
		Before:     before,
		After:      after,
		IP:         &ip,
	})
}

func roleSnapshot(r *Role) map[string]interface{} {
	return map[string]interface{}{
		"name":        r.Name,
		"permissions": r.Permissions,
	}
}
