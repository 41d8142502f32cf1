// Package controller owns the device transport and exposes the
// connection lifecycle plus every mutating device command. Mutating
// calls serialize through the transport's own single request
// goroutine, so no two Controller operations race on the wire; a
// local mutex additionally guards the connect/disconnect lifecycle
// itself, generalizing cartofacade.CartoFacade's "one goroutine owns
// the shared resource" discipline to the connection handle.
package controller

import (
	"context"
	"encoding/binary"
	"math"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/rdk/logging"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// Dialer abstracts transport.Dial so tests can substitute a fake
// connection without opening a real socket.
type Dialer func(ctx context.Context, opt slamtypes.ConnectionOption, onStream transport.StreamHandler) (transport.Interface, error)

// Controller owns the device transport handle and the connect/
// disconnect lifecycle, plus every operation in the device's mutating
// command surface.
type Controller struct {
	dial     Dialer
	onStream transport.StreamHandler
	logger   logging.Logger

	mu   sync.Mutex
	conn transport.Interface

	rawSubscribed bool
	enhancedSubs  map[slamtypes.EnhancedImagingType]bool
}

// New builds a Controller. onStream, if non-nil, receives every
// unsolicited stream-event frame once connected; dataprovider installs
// its own handler here to keep its snapshot caches warm.
func New(dial Dialer, onStream transport.StreamHandler) *Controller {
	return &Controller{
		dial:         dial,
		onStream:     onStream,
		logger:       logging.NewLogger("slamdevice.controller"),
		enhancedSubs: make(map[slamtypes.EnhancedImagingType]bool),
	}
}

// SetLogger replaces the Controller's logger, e.g. with one sharing a
// host application's log sink.
func (c *Controller) SetLogger(logger logging.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// NewWithRealTransport builds a Controller that dials real TCP
// connections via transport.Dial.
func NewWithRealTransport(onStream transport.StreamHandler) *Controller {
	return New(func(ctx context.Context, opt slamtypes.ConnectionOption, onStream transport.StreamHandler) (transport.Interface, error) {
		return transport.Dial(ctx, opt, onStream)
	}, onStream)
}

// Discover performs passive network discovery and returns a snapshot
// of currently known endpoints. It returns an empty slice, never an
// error, when nothing is found before timeout.
func (c *Controller) Discover(timeout time.Duration) ([]slamtypes.DeviceEndpoint, error) {
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		return nil, errors.Wrap(err, "controller: opening discovery listener")
	}
	defer listener.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	endpoints, err := transport.Discover(ctx, listener)
	if err != nil {
		return []slamtypes.DeviceEndpoint{}, nil
	}
	return endpoints, nil
}

// Connect establishes the device transport. It fails with
// ErrAlreadyConnected if a transport already exists.
func (c *Controller) Connect(ctx context.Context, target slamtypes.ConnectTarget) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return sdkerrors.ErrAlreadyConnected
	}
	opt, err := target.ResolveOption()
	if err != nil {
		return errors.Wrap(err, "controller: resolving connect target")
	}
	conn, err := c.dial(ctx, opt, c.onStream)
	if err != nil {
		if c.logger != nil {
			c.logger.Errorw("connecting to device failed", "error", err)
		}
		return errors.Wrap(err, "controller: connecting to device")
	}
	c.conn = conn
	if c.logger != nil {
		c.logger.Infow("connected to device", "address", opt.Address)
	}
	return nil
}

// Disconnect closes the transport. It is idempotent and always safe.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if c.logger != nil {
		if err != nil {
			c.logger.Errorw("closing device connection failed", "error", err)
		} else {
			c.logger.Debug("disconnected from device")
		}
	}
	return err
}

// IsConnected reflects local intent: whether Connect succeeded and
// Disconnect has not since been called.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// IsDeviceConnectionAlive probes liveness of the underlying transport.
func (c *Controller) IsDeviceConnectionAlive() bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}
	return conn.IsAlive()
}

func (c *Controller) transportOrErr() (transport.Interface, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil, sdkerrors.ErrNotConnected
	}
	return c.conn, nil
}

// Transport exposes the current connection for the other components a
// Session composes around this Controller, so every component shares
// the same transport handle without duplicating the connect lifecycle.
func (c *Controller) Transport() (transport.Interface, error) {
	return c.transportOrErr()
}

// EnableMapDataSyncing toggles the device-to-client map snapshot stream.
func (c *Controller) EnableMapDataSyncing(ctx context.Context, on bool, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpEnableMapDataSyncing, encodeBool(on), timeout)
	return err
}

// EnableRawDataSubscription opts into high-bandwidth raw frame streams.
func (c *Controller) EnableRawDataSubscription(ctx context.Context, on bool, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	if _, err := opcall.Do(ctx, t, wire.OpEnableRawDataSubscription, encodeBool(on), timeout); err != nil {
		return err
	}
	c.mu.Lock()
	c.rawSubscribed = on
	c.mu.Unlock()
	return nil
}

// IsRawDataSubscribed reports local subscription intent.
func (c *Controller) IsRawDataSubscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rawSubscribed
}

// SetEnhancedImagingSubscription toggles a per-type (depth/segmentation)
// stream. Must be called after Connect.
func (c *Controller) SetEnhancedImagingSubscription(ctx context.Context, imageType slamtypes.EnhancedImagingType, on bool, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	payload := append([]byte{byte(imageType)}, encodeBool(on)...)
	if _, err := opcall.Do(ctx, t, wire.OpSetEnhancedImagingSubscription, payload, timeout); err != nil {
		return err
	}
	c.mu.Lock()
	c.enhancedSubs[imageType] = on
	c.mu.Unlock()
	return nil
}

// IsEnhancedImagingSubscribed reports local subscription intent for type.
func (c *Controller) IsEnhancedImagingSubscribed(imageType slamtypes.EnhancedImagingType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enhancedSubs[imageType]
}

// requireMode sends a no-payload mode-change command and blocks for ack.
func (c *Controller) requireMode(ctx context.Context, op wire.OpCode, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, op, nil, time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// RequireMappingMode switches the device into mapping mode.
func (c *Controller) RequireMappingMode(ctx context.Context, timeoutMs int) error {
	return c.requireMode(ctx, wire.OpRequireMappingMode, timeoutMs)
}

// RequirePureLocalizationMode switches the device into localization-only mode.
func (c *Controller) RequirePureLocalizationMode(ctx context.Context, timeoutMs int) error {
	return c.requireMode(ctx, wire.OpRequirePureLocalizationMode, timeoutMs)
}

// RequireMapReset discards the device's current map state.
func (c *Controller) RequireMapReset(ctx context.Context, timeoutMs int) error {
	return c.requireMode(ctx, wire.OpRequireMapReset, timeoutMs)
}

// RequireRelocalization requests relocalization and reports success or
// failure; unlike the other require_* calls, it does not raise on a
// negative device response.
func (c *Controller) RequireRelocalization(ctx context.Context, timeoutMs int) (bool, error) {
	t, err := c.transportOrErr()
	if err != nil {
		return false, err
	}
	resp, err := opcall.Do(ctx, t, wire.OpRequireRelocalization, nil, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return false, err
	}
	return decodeBool(resp), nil
}

// CancelRelocalization aborts an in-progress relocalization.
func (c *Controller) CancelRelocalization(ctx context.Context, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpCancelRelocalization, nil, timeout)
	return err
}

// RequireLocalRelocalization requests relocalization constrained to a
// local search radius around centerPose.
func (c *Controller) RequireLocalRelocalization(ctx context.Context, centerPose slamtypes.PoseSE3, radiusM float64, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	payload := append(encodePoseSE3(centerPose), encodeFloat64(radiusM)...)
	_, err = opcall.Do(ctx, t, wire.OpRequireLocalRelocalization, payload, time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// RequireLocalMapMerge requests a local map merge around centerPose.
func (c *Controller) RequireLocalMapMerge(ctx context.Context, centerPose slamtypes.PoseSE3, radiusM float64, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	payload := append(encodePoseSE3(centerPose), encodeFloat64(radiusM)...)
	_, err = opcall.Do(ctx, t, wire.OpRequireLocalMapMerge, payload, time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// GetLastRelocalizationStatus returns the outcome of the most recent
// relocalization request.
func (c *Controller) GetLastRelocalizationStatus(ctx context.Context, timeoutMs int) (slamtypes.RelocalizationStatus, error) {
	t, err := c.transportOrErr()
	if err != nil {
		return slamtypes.RelocalizationNone, err
	}
	resp, err := opcall.Do(ctx, t, wire.OpGetLastRelocalizationStatus, nil, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		return slamtypes.RelocalizationNone, err
	}
	if len(resp) < 4 {
		return slamtypes.RelocalizationNone, errors.New("controller: short relocalization status response")
	}
	return slamtypes.RelocalizationStatus(binary.LittleEndian.Uint32(resp)), nil
}

// RequireSemanticSegmentationAlternativeModel sends the segmentation
// model toggle and blocks until the device acknowledges it, or times
// out. It does not query the active model afterwards.
func (c *Controller) RequireSemanticSegmentationAlternativeModel(ctx context.Context, useAlt bool, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpRequireSemanticSegmentationAltModel, encodeBool(useAlt), time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// ResyncMapData forces a fresh snapshot pull, optionally invalidating
// any locally cached data first.
func (c *Controller) ResyncMapData(ctx context.Context, invalidateCache bool, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpResyncMapData, encodeBool(invalidateCache), timeout)
	return err
}

// SetLowRateMode toggles the device's reduced-bandwidth streaming mode.
func (c *Controller) SetLowRateMode(ctx context.Context, on bool, timeout time.Duration) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpSetLowRateMode, encodeBool(on), timeout)
	return err
}

// SetLoopClosure toggles loop closure detection.
func (c *Controller) SetLoopClosure(ctx context.Context, on bool, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpSetLoopClosure, encodeBool(on), time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// ForceMapGlobalOptimization forces a full bundle adjustment pass.
func (c *Controller) ForceMapGlobalOptimization(ctx context.Context, timeoutMs int) error {
	t, err := c.transportOrErr()
	if err != nil {
		return err
	}
	_, err = opcall.Do(ctx, t, wire.OpForceMapGlobalOptimization, nil, time.Duration(timeoutMs)*time.Millisecond)
	return err
}

// SendCustomCommand sends an opaque command and returns the device's
// opaque response bytes, an escape hatch for device-specific commands
// the rest of the surface does not model.
func (c *Controller) SendCustomCommand(ctx context.Context, cmdID uint32, data []byte, timeoutMs int) ([]byte, error) {
	t, err := c.transportOrErr()
	if err != nil {
		return nil, err
	}
	payload := make([]byte, 4+len(data))
	binary.LittleEndian.PutUint32(payload[:4], cmdID)
	copy(payload[4:], data)
	return opcall.Do(ctx, t, wire.OpSendCustomCommand, payload, time.Duration(timeoutMs)*time.Millisecond)
}

func encodeBool(b bool) []byte {
	if b {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBool(b []byte) bool {
	return len(b) > 0 && b[0] != 0
}

func encodeFloat64(f float64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
	return buf
}

func encodePoseSE3(p slamtypes.PoseSE3) []byte {
	return wire.EncodePoseSE3(p)
}
