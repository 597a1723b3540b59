// Package handlers contains the HTTP layer. Handlers decode, authorize,
// delegate to services and encode; business rules live one layer down.
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/cozinhalabs/auditoria/internal/config"
	"github.com/cozinhalabs/auditoria/internal/export"
	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/logging"
	"github.com/cozinhalabs/auditoria/internal/middleware"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/permissions"
	"github.com/cozinhalabs/auditoria/internal/service"
)

// AuditHandler serves the audit trail read surface: listings, per-user
// views, statistics and file exports.
type AuditHandler struct {
	audit  *service.AuditService
	cfg    config.AuditConfig
	logger *logging.Logger
}

func NewAuditHandler(audit *service.AuditService, cfg config.AuditConfig, logger *logging.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, cfg: cfg, logger: logger}
}

// requireAuditRead enforces the elevated audit-read rule: administrators
// always, coordinators only at level III. Everyone else gets an explicit 403
// before any storage work.
func (h *AuditHandler) requireAuditRead(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := middleware.GetActor(r.Context())
	if !ok || !permissions.CanReadAudit(actor.Role, actor.Level) {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado ao registro de auditoria")
		return false
	}
	return true
}

// List handles GET /api/v1/auditoria.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.requireAuditRead(w, r) {
		return
	}

	filter, err := service.ParseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset := httputil.ParseLimitOffset(r, h.cfg.DefaultLimit, h.cfg.MaxLimit)

	page, err := h.audit.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list audit events", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar auditoria")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// ListByUser handles GET /api/v1/auditoria/usuarios/{id}. Administrators can
// view anyone; other roles only their own trail.
func (h *AuditHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	id, err := httputil.ParseID(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}
	if actor.Role != models.RoleAdministrador && actor.ID != id {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	limit, offset := httputil.ParseLimitOffset(r, h.cfg.DefaultLimit, h.cfg.MaxLimit)
	page, err := h.audit.ListForUser(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to list user audit events", "error", err, "usuario_id", id)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao consultar auditoria")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// Stats handles GET /api/v1/auditoria/estatisticas. Administrators only.
func (h *AuditHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.GetActor(r.Context())
	if !ok || !permissions.CanViewStats(actor.Role) {
		httputil.WriteError(w, http.StatusForbidden, "acesso negado")
		return
	}

	stats, err := h.audit.Stats(r.Context())
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to aggregate audit stats", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao calcular estatísticas")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// ExportXLSX handles GET /api/v1/auditoria/exportar/xlsx.
func (h *AuditHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	events, ok := h.exportSet(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("auditoria_%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WriteXLSX(w, events); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to render xlsx export", "error", err)
	}
}

// ExportPDF handles GET /api/v1/auditoria/exportar/pdf.
func (h *AuditHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	events, ok := h.exportSet(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("auditoria_%s.pdf", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.WritePDF(w, events); err != nil {
		h.logger.WithContext(r.Context()).Error("failed to render pdf export", "error", err)
	}
}

func (h *AuditHandler) exportSet(w http.ResponseWriter, r *http.Request) ([]*models.AuditEventRecord, bool) {
	if !h.requireAuditRead(w, r) {
		return nil, false
	}
	filter, err := service.ParseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	events, err := h.audit.ExportSet(r.Context(), filter)
	if err != nil {
		h.logger.WithContext(r.Context()).Error("failed to collect export set", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "erro ao exportar auditoria")
		return nil, false
	}
	return events, true
}
