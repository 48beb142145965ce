package logger

import (
	"context"
	"log/slog"
	"time"
)

// SessionEvent is a security-relevant session lifecycle event: login
// outcomes, rotations, revocations, lockouts. It is logged for audit and
// never echoed to clients.
type SessionEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	Success       bool
	FailureReason string
	LockedUntil   *time.Time
}

// AuditLogger provides structured audit logging for auth decisions
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login attempts
func (al *AuditLogger) LogAuthAttempt(event SessionEvent) {
	al.log("auth", event)
}

// LogSessionEvent logs mid-session decisions (rotation, rejection, logout)
func (al *AuditLogger) LogSessionEvent(event SessionEvent) {
	al.log("session", event)
}

// LogLockout logs lockout transitions. The remaining duration lives only in
// this log, never in a response.
func (al *AuditLogger) LogLockout(userID string, lockedUntil time.Time) {
	al.log("lockout", SessionEvent{
		EventType:   "account_locked",
		UserID:      userID,
		Success:     false,
		LockedUntil: &lockedUntil,
	})
}

func (al *AuditLogger) log(auditType string, event SessionEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	if event.LockedUntil != nil {
		attrs = append(attrs, slog.String("locked_until", event.LockedUntil.UTC().Format(time.RFC3339)))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
