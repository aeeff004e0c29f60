package simpleauthority

import (
	"context"
	"time"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// AuthorityRenamed does nothing and returns nil
func (n *NoopEventSink) AuthorityRenamed(ctx context.Context, event AuthorityRenamed) error {
	return nil
}

// NoopObserver ignores rename outcomes
type NoopObserver struct{}

// RenameFinished does nothing
func (NoopObserver) RenameFinished(outcome string, itemsUpdated int, duration time.Duration) {}

// StaticGate is a CapabilityGate backed by fixed flags and an admin role.
// An empty AdminRole treats every caller with a subject as administrator.
type StaticGate struct {
	AllowPerson   bool
	AllowExternal bool
	AdminRole     string
}

// RenameEnabled reports whether person renames are allowed
func (g StaticGate) RenameEnabled(kind Kind) bool {
	return kind.IsPerson() && g.AllowPerson
}

// ExternalRenameEnabled reports whether externally sourced renames are allowed
func (g StaticGate) ExternalRenameEnabled() bool {
	return g.AllowExternal
}

// IsAdministrator checks the caller's roles
func (g StaticGate) IsAdministrator(ctx context.Context, caller Caller) bool {
	if g.AdminRole == "" {
		return caller.Subject != ""
	}
	return caller.HasRole(g.AdminRole)
}
