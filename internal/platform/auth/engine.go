package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// OverrideTokenHeader is the well-known request header carrying an emergency
// override token. Absence of the header when the normal permission check
// fails is treated identically to an invalid token.
const OverrideTokenHeader = "X-Override-Token"

const (
	// ActionOverrideUsed is the audit action recorded for every successful
	// override-based grant.
	ActionOverrideUsed = "emergency.override.used"
	// ResourceOverride is the audit resource type for override records.
	ResourceOverride = "EmergencyOverride"
)

// OverrideRecord is the engine's view of a consumed override token.
type OverrideRecord struct {
	ID           string
	IssuedBy     string
	Reason       string
	TargetUserID *string
}

// OverrideConsumer consumes an override token exactly once. Implementations
// must guarantee that concurrent calls racing on the same token yield one
// success; every failure (not found, expired, already used) comes back as an
// error the engine treats uniformly.
type OverrideConsumer interface {
	Consume(ctx context.Context, token string) (*OverrideRecord, error)
}

// AuditEntry is the engine's view of an audit record.
type AuditEntry struct {
	ActorID    *string
	Action     string
	Resource   string
	ResourceID *string
	Meta       map[string]interface{}
	IP         *string
}

// AuditRecorder persists audit entries best-effort: a write failure must be
// observable to operators but must never surface to the request.
type AuditRecorder interface {
	TryRecord(ctx context.Context, entry AuditEntry)
}

// Decision is the outcome of a successful permission check, including
// provenance so the caller can audit the business mutation appropriately.
type Decision struct {
	Actor        *Actor
	UsedOverride bool
	Override     *OverrideRecord
}

// Engine is the authorization gate every state-changing operation passes
// through. It evaluates the actor's resolved permission set and, on a miss,
// falls back to single-use consumption of an emergency override token.
type Engine struct {
	overrides OverrideConsumer
	audits    AuditRecorder
	logger    zerolog.Logger
}

func NewEngine(logger zerolog.Logger, overrides OverrideConsumer, audits AuditRecorder) *Engine {
	return &Engine{overrides: overrides, audits: audits, logger: logger}
}

// RequirePermission checks the named permission for the request's actor.
//
// The fast path (actor resolved, permission present) performs no I/O and
// writes no audit entry; auditing the business mutation is the caller's job.
// When the check misses, the X-Override-Token header is consumed through the
// override manager; a successful consumption is audited here, exactly once,
// before the caller proceeds.
//
// The optional actorIDHint is used only for audit provenance when no session
// could be resolved (service-to-service or test contexts).
//
// All failure paths collapse to ErrForbidden: the caller learns nothing about
// whether a token existed, expired, or the permission was simply absent.
func (e *Engine) RequirePermission(c echo.Context, permission string, actorIDHint ...string) (*Decision, error) {
	ctx := c.Request().Context()
	actor := ActorFromContext(ctx)

	if actor != nil && actor.Permissions.Has(permission) {
		return &Decision{Actor: actor, UsedOverride: false}, nil
	}

	token := c.Request().Header.Get(OverrideTokenHeader)
	if token == "" {
		return nil, ErrForbidden
	}

	rec, err := e.overrides.Consume(ctx, token)
	if err != nil {
		// The specific sub-reason stays in the logs only.
		e.logger.Warn().
			Err(err).
			Str("permission", permission).
			Str("remote_ip", c.RealIP()).
			Msg("override consumption rejected")
		return nil, ErrForbidden
	}

	actorID := overrideActorID(actor, actorIDHint)
	ip := c.RealIP()
	e.audits.TryRecord(ctx, AuditEntry{
		ActorID:    actorID,
		Action:     ActionOverrideUsed,
		Resource:   ResourceOverride,
		ResourceID: &rec.ID,
		Meta: map[string]interface{}{
			"reason":     rec.Reason,
			"permission": permission,
			"issued_by":  rec.IssuedBy,
		},
		IP: &ip,
	})

	e.logger.Warn().
		Str("type", "emergency_override").
		Str("override_id", rec.ID).
		Str("permission", permission).
		Str("reason", rec.Reason).
		Str("remote_ip", ip).
		Msg("override_grant")

	return &Decision{Actor: actor, UsedOverride: true, Override: rec}, nil
}

// overrideActorID picks the audited actor id: the resolved session if any,
// otherwise the caller-supplied hint, otherwise nil (system action).
func overrideActorID(actor *Actor, hint []string) *string {
	if actor != nil {
		id := actor.ID
		return &id
	}
	if len(hint) > 0 && hint[0] != "" {
		id := hint[0]
		return &id
	}
	return nil
}

const decisionContextKey = "authz_decision"

// Middleware guards a route group with RequirePermission and stores the
// decision on the echo context for the handler.
func (e *Engine) Middleware(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision, err := e.RequirePermission(c, permission)
			if err != nil {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			c.Set(decisionContextKey, decision)
			return next(c)
		}
	}
}

// DecisionFromEcho retrieves the decision stored by Middleware, or nil.
func DecisionFromEcho(c echo.Context) *Decision {
	d, _ := c.Get(decisionContextKey).(*Decision)
	return d
}
