// Package httptransport is the thin HTTP layer over the authorization
// core. It delegates to the authz service without embedding business
// logic.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tenantguard/internal/audit"
	authzservice "tenantguard/internal/authz/service"
	"tenantguard/internal/transport/http/shared"
	"tenantguard/pkg/domain"
	dErrors "tenantguard/pkg/domain-errors"
	"tenantguard/pkg/requestcontext"
)

// Handler serves the read-only audit query API.
type Handler struct {
	service *authzservice.Service
	logger  *slog.Logger
}

func NewHandler(service *authzservice.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/records", h.handleQueryRecords)
}

type recordResponse struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenant_id"`
	ActorID   string            `json:"actor_id"`
	Procedure string            `json:"procedure"`
	Outcome   string            `json:"outcome"`
	Detail    map[string]string `json:"detail,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// handleQueryRecords serves GET /audit/records.
//
// Each request is its own unit of work: context is resolved fresh, the
// caller's tenant filter is validated against it, and nothing survives
// the request. A caller can therefore only ever read its own tenant's
// trail, whatever tenant_id it asserts.
func (h *Handler) handleQueryRecords(w http.ResponseWriter, r *http.Request) {
	ctx, release := h.service.BeginUnitOfWork(r.Context())
	defer release()

	resolved, err := h.service.ResolveContext(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "audit query without resolvable context",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	filter, err := parseFilter(r, resolved.TenantID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.service.ValidateAssertion(resolved, filter.TenantID); err != nil {
		h.logger.WarnContext(ctx, "audit query tenant rejected",
			"request_id", requestcontext.RequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	records, err := h.service.QueryAudit(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit query failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "audit query failed"))
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			ID:        rec.ID.String(),
			TenantID:  rec.TenantID.String(),
			ActorID:   rec.ActorID.String(),
			Procedure: rec.Procedure,
			Outcome:   string(rec.Outcome),
			Detail:    rec.Detail,
			Timestamp: rec.Timestamp,
		})
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": out})
}

const defaultQueryLimit = 100

func parseFilter(r *http.Request, resolvedTenant domain.TenantID) (audit.Filter, error) {
	q := r.URL.Query()
	filter := audit.Filter{TenantID: resolvedTenant, Limit: defaultQueryLimit}

	if raw := q.Get("tenant_id"); raw != "" {
		tenantID, err := domain.ParseTenantID(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		filter.TenantID = tenantID
	}
	if raw := q.Get("actor_id"); raw != "" {
		actorID, err := domain.ParseActorID(raw)
		if err != nil {
			return audit.Filter{}, err
		}
		filter.ActorID = actorID
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeBadRequest, "from must be RFC3339")
		}
		filter.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filter{}, dErrors.New(dErrors.CodeBadRequest, "to must be RFC3339")
		}
		filter.To = t
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 1000 {
			return audit.Filter{}, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 1000")
		}
		filter.Limit = n
	}
	return filter, nil
}
