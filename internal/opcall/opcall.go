// Package opcall is the shared request/response glue every component
// package (controller, dataprovider, mapmanager, ...) uses to call one
// operation over a transport.Interface: apply a timeout the way
// cartofacade.request wraps ctxParent in context.WithTimeout, encode the
// op-prefixed request, and translate the status code in the response
// into a typed sdkerrors error.
package opcall

import (
	"context"
	"time"

	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/telemetry"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// Do sends payload under op, waits at most timeout for a response, and
// returns the response payload with the status code translated to a
// typed error (nil on CodeOK). Every call's round-trip time is reported
// to telemetry.OperationLatencyMs regardless of whether a host has
// registered an exporter.
func Do(ctx context.Context, t transport.Interface, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	body, err := t.Call(callCtx, wire.KindRequest, wire.EncodeOpRequest(op, payload))
	telemetry.RecordLatency(time.Since(start))
	if err != nil {
		return nil, err
	}
	code, resp := wire.DecodeOpResponse(body)
	if code != int32(sdkerrors.CodeOK) {
		return resp, sdkerrors.FromCode(code, "")
	}
	return resp, nil
}
