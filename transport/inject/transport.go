// Package inject provides a hand-rolled fake transport.Interface for
// exercising higher-level components without a live device connection:
// each method calls a settable function field, and falls back to a
// fixed default when a test leaves that field nil.
package inject

import (
	"context"

	"github.com/viam-modules/slam-device-sdk/wire"
)

// Transport is a scriptable fake of transport.Interface.
type Transport struct {
	CallFunc    func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error)
	CloseFunc   func() error
	IsAliveFunc func() bool
}

// Call invokes CallFunc or returns a zero response if unset.
func (t *Transport) Call(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
	if t.CallFunc == nil {
		return nil, nil
	}
	return t.CallFunc(ctx, kind, body)
}

// Close invokes CloseFunc or returns nil if unset.
func (t *Transport) Close() error {
	if t.CloseFunc == nil {
		return nil
	}
	return t.CloseFunc()
}

// IsAlive invokes IsAliveFunc or returns true if unset.
func (t *Transport) IsAlive() bool {
	if t.IsAliveFunc == nil {
		return true
	}
	return t.IsAliveFunc()
}
