package service

import (
	"github.com/google/uuid"

	"github.com/fleetworks/fleet-finance/internal/domain/apperr"
	"github.com/fleetworks/fleet-finance/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// isUUID reports whether s parses as a UUID. Every identifier entering the
// core is checked before any store access.
func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// requireActor rejects calls with no identity or an unknown role string.
func requireActor(actor entity.Actor) error {
	if actor.ID == "" {
		return apperr.Unauthenticated()
	}
	if !actor.Role.IsValid() {
		return apperr.Validation("unknown role %q", string(actor.Role))
	}
	return nil
}
