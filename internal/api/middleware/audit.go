package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// AuditExecer is the subset of pgxpool.Pool the audit writer needs.
type AuditExecer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// AuditLogger is an async writer of the vault audit trail.
type AuditLogger struct {
	db     AuditExecer
	logger zerolog.Logger
	ch     chan auditEntry
	done   chan struct{}
}

type auditEntry struct {
	OrganizationID *string
	UserID         *string
	Method         string
	Path           string
	ResourceType   *string
	ResourceID     *string
	Action         string
	StatusCode     int
	RequestBody    json.RawMessage
}

func NewAuditLogger(db AuditExecer, logger zerolog.Logger) *AuditLogger {
	al := &AuditLogger{
		db:     db,
		logger: logger.With().Str("component", "audit").Logger(),
		ch:     make(chan auditEntry, 1024),
		done:   make(chan struct{}),
	}
	go al.drain()
	return al
}

func (al *AuditLogger) drain() {
	defer close(al.done)
	for entry := range al.ch {
		_, err := al.db.Exec(
			// use context.Background since this is async
			context.Background(),
			`INSERT INTO vault_audit_log (organization_id, user_id, method, path, resource_type, resource_id, action, status_code, request_body, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`,
			entry.OrganizationID, entry.UserID, entry.Method, entry.Path, entry.ResourceType, entry.ResourceID, entry.Action, entry.StatusCode, entry.RequestBody,
		)
		if err != nil {
			al.logger.Error().Err(err).Msg("failed to write audit log")
		}
	}
}

// Close stops accepting entries and waits for the buffered ones to be written.
func (al *AuditLogger) Close() {
	close(al.ch)
	<-al.done
}

// Middleware records mutating vault requests. It must run after Auth so
// the principal is known.
func (al *AuditLogger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		var bodyBytes []byte
		if r.Body != nil {
			bodyBytes, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		resourceType, resourceID, action := extractResource(r.Method, r.URL.Path)

		var orgID, userID *string
		if p := GetPrincipal(r.Context()); p != nil {
			orgID, userID = &p.OrganizationID, &p.UserID
		}

		var sanitizedBody json.RawMessage
		if len(bodyBytes) > 0 && json.Valid(bodyBytes) {
			sanitizedBody = sanitizeBody(bodyBytes)
		}

		select {
		case al.ch <- auditEntry{
			OrganizationID: orgID,
			UserID:         userID,
			Method:         r.Method,
			Path:           r.URL.Path,
			ResourceType:   resourceType,
			ResourceID:     resourceID,
			Action:         action,
			StatusCode:     sw.status,
			RequestBody:    sanitizedBody,
		}:
		default:
			al.logger.Warn().Msg("audit log buffer full, dropping entry")
		}
	})
}

// extractResource splits a vault path into resource type, optional id and
// the action performed.
//
//	POST   /api/v1/vault/snapshots              -> snapshots, -, create
//	DELETE /api/v1/vault/snapshots/abc          -> snapshots, abc, delete
//	POST   /api/v1/vault/snapshots/abc/restore  -> snapshots, abc, restore
//	PUT    /api/v1/vault/config                 -> config, -, update
func extractResource(method, path string) (*string, *string, string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/v1/vault"), "/"), "/")

	var resourceType, resourceID *string
	if len(parts) > 0 && parts[0] != "" {
		resourceType = &parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		resourceID = &parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		return resourceType, resourceID, parts[2]
	}

	switch method {
	case http.MethodPost:
		return resourceType, resourceID, "create"
	case http.MethodPut:
		return resourceType, resourceID, "update"
	default:
		return resourceType, resourceID, "delete"
	}
}

// sensitiveFields are fields that should be redacted from audit logs.
var sensitiveFields = map[string]bool{
	"password": true, "secret": true, "token": true, "api_key": true,
}

func sanitizeBody(body []byte) json.RawMessage {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}
	for k := range data {
		if sensitiveFields[k] {
			data[k] = "[REDACTED]"
		}
	}
	sanitized, _ := json.Marshal(data)
	return sanitized
}
