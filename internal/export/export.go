// Package export renders audit event sets as downloadable XLSX and PDF
// reports. Both renderers consume the same ordered event slice the listing
// endpoint serves, so a report always matches what the caller saw on screen.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cozinhalabs/auditoria/internal/models"
)

const timestampLayout = "02/01/2006 15:04:05"

// actorLabel prefers the joined display name, then email, then a system tag
// for events with no credited user.
func actorLabel(ev *models.AuditEventRecord) string {
	if ev.UsuarioNome != "" {
		return ev.UsuarioNome
	}
	if ev.UsuarioEmail != "" {
		return ev.UsuarioEmail
	}
	return "sistema"
}

// formatChanges flattens a change set into "campo: antes -> depois" lines in
// stable field order.
func formatChanges(detail *models.EventDetail) string {
	if detail == nil || len(detail.Changes) == 0 {
		return ""
	}
	fields := make([]string, 0, len(detail.Changes))
	for field := range detail.Changes {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	lines := make([]string, 0, len(fields))
	for _, field := range fields {
		change := detail.Changes[field]
		lines = append(lines, fmt.Sprintf("%s: %v -> %v", field, change.From, change.To))
	}
	return strings.Join(lines, "\n")
}
