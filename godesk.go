// Package godesk controls Linak-based standing desks over Bluetooth Low Energy.
//
// The package finds desks (Scan), links to one (Connect) and drives it to a height with a
// closed-loop poll (Session.MoveToHeight). UIs should use a Controller, which owns at most one
// Session and serializes movement requests.
package godesk

import "context"

// Desk is the set of operations a UI drives. Every call may be long-running and may fail.
type Desk interface {
	// Connect links to the desk with the given address, or to the first desk found when
	// address is empty.
	Connect(ctx context.Context, address string) error

	// MoveToHeight drives the desk to heightMM and returns once it has settled there.
	MoveToHeight(ctx context.Context, heightMM uint16) error

	// GetHeight returns the current height in millimeters.
	GetHeight(ctx context.Context) (uint16, error)

	// Disconnect releases the desk. It is safe to call when not connected.
	Disconnect(ctx context.Context) error
}

// This line is the compile-time check. It will fail to compile if
// *Controller ever stops satisfying the Desk interface.
var _ Desk = (*Controller)(nil)
