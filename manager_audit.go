package goAccess

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventManagerCreated       = "manager_created"
	auditEventTokenUpdated         = "token_updated"
	auditEventTokenInvalid         = "token_invalid"
	auditEventTokenWillExpire      = "token_will_expire"
	auditEventTokenExpired         = "token_expired"
	auditEventListenerRegistered   = "listener_registered"
	auditEventListenerUnregistered = "listener_unregistered"
	auditEventListenerPurged       = "listener_purged"
	auditEventListenerPanic        = "listener_panic"
	auditEventDelegatePanic        = "delegate_panic"
	auditEventManagerShutdown      = "manager_shutdown"
)

// AuditErrorCode is the stable error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidTokenFormat AuditErrorCode = "invalid_token_format"
	auditErrManagerShutdown    AuditErrorCode = "manager_shutdown"
	auditErrListenerLimit      AuditErrorCode = "listener_limit"
	auditErrPanic              AuditErrorCode = "panic"
	auditErrInternal           AuditErrorCode = "internal_error"
)

var errCallbackPanic = errors.New("callback panicked")

func (m *Manager) emitAudit(
	eventType string,
	success bool,
	expiresAt time.Time,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: m.clock.Now().UTC(),
		EventType: eventType,
		ManagerID: m.id,
		Success:   success,
		Metadata:  metadata,
	}
	if !expiresAt.IsZero() {
		exp := expiresAt.UTC()
		event.ExpiresAt = &exp
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(context.Background(), event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidTokenFormat):
		return auditErrInvalidTokenFormat
	case errors.Is(err, ErrManagerShutdown):
		return auditErrManagerShutdown
	case errors.Is(err, ErrListenerLimit):
		return auditErrListenerLimit
	case errors.Is(err, errCallbackPanic):
		return auditErrPanic
	default:
		return auditErrInternal
	}
}
