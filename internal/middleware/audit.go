package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/cozinhalabs/auditoria/internal/audit"
	"github.com/cozinhalabs/auditoria/internal/diff"
	"github.com/cozinhalabs/auditoria/internal/httputil"
	"github.com/cozinhalabs/auditoria/internal/models"
	"github.com/cozinhalabs/auditoria/internal/registry"
	"github.com/cozinhalabs/auditoria/internal/snapshot"
)

// statusRecorder captures the status code written by the wrapped handler.
// Handlers that never call WriteHeader implicitly produce 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Interceptor wraps mutating handlers and records an audit event after the
// handler completes with a success status. Recording never affects the
// response already sent to the client.
type Interceptor struct {
	recorder *audit.Recorder
	snapshot *snapshot.Accessor
	registry *registry.Registry
}

func NewInterceptor(rec *audit.Recorder, snap *snapshot.Accessor, reg *registry.Registry) *Interceptor {
	return &Interceptor{recorder: rec, snapshot: snap, registry: reg}
}

// Wrap intercepts a handler for a fixed action and resource.
func (i *Interceptor) Wrap(action, resource string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i.intercept(w, r, action, resource, next)
	}
}

// WrapDynamic intercepts a handler whose resource comes from the {recurso}
// path parameter.
func (i *Interceptor) WrapDynamic(action string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i.intercept(w, r, action, r.PathValue("recurso"), next)
	}
}

func (i *Interceptor) intercept(w http.ResponseWriter, r *http.Request, action, resource string, next http.HandlerFunc) {
	payload := i.readPayload(r)
	resourceID := pathID(r)

	// Pre-image is fetched before the handler mutates the row. A failed
	// fetch degrades to no change set, never to a failed request.
	var preImage map[string]any
	if action == models.ActionUpdate && resourceID != nil {
		preImage = i.snapshot.Fetch(r.Context(), resource, *resourceID)
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r)

	if rec.status < 200 || rec.status >= 300 {
		return
	}

	detail := &models.EventDetail{
		Method:     r.Method,
		URL:        r.URL.RequestURI(),
		StatusCode: rec.status,
		UserAgent:  r.UserAgent(),
		ResourceID: resourceID,
	}

	sensitive := i.registry.SensitiveFields(resource)
	switch action {
	case models.ActionCreate:
		detail.RequestBody = diff.Redact(payload, sensitive)
	case models.ActionUpdate:
		detail.RequestBody = diff.Redact(payload, sensitive)
		// Without a pre-image every field would show up as changed from
		// nil. Record only the request body in that case.
		if preImage != nil {
			detail.Changes = diff.RedactChanges(diff.Changes(preImage, payload), sensitive)
		}
	case models.ActionPasswordChange, models.ActionPermissionChange, models.ActionUserStatusChange:
		detail.RequestBody = diff.Redact(payload, sensitive)
	}

	var actorID *int64
	if actor, ok := GetActor(r.Context()); ok {
		actorID = &actor.ID
	}

	i.recorder.Record(actorID, action, resource, detail, httputil.GetClientIP(r))
}

// readPayload drains the request body into a map and restores it so the
// wrapped handler can decode it again. Non-JSON and empty bodies yield nil.
func (i *Interceptor) readPayload(r *http.Request) map[string]any {
	if r.Body == nil {
		return nil
	}
	raw, err := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	return payload
}

func pathID(r *http.Request) *int64 {
	raw := r.PathValue("id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}
