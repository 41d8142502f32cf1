// Package slamdevice is a client-side SDK for a remote visual-inertial
// SLAM device. A Session owns one transport handle and composes the
// seven device-facing components (Controller, DataProvider, MapManager,
// LidarMapBuilder, FloorDetector, EnhancedImaging, Recorder) around it,
// the way viam-cartographer's cartographerService composes cartofacade,
// sensorprocess, and postprocess around one CartoFacade handle.
package slamdevice

import (
	"context"
	"time"

	"go.viam.com/rdk/logging"
	"go.viam.com/utils/perf"

	"github.com/viam-modules/slam-device-sdk/controller"
	"github.com/viam-modules/slam-device-sdk/dataprovider"
	"github.com/viam-modules/slam-device-sdk/enhancedimaging"
	"github.com/viam-modules/slam-device-sdk/floordetector"
	"github.com/viam-modules/slam-device-sdk/lidarmap"
	"github.com/viam-modules/slam-device-sdk/mapmanager"
	"github.com/viam-modules/slam-device-sdk/recorder"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/telemetry"
)

// Session is the process-local object owning at most one transport
// handle to one device and at most one active map-storage session
// (enforced by MapManager), per the data model's Session entity.
type Session struct {
	Controller      *controller.Controller
	DataProvider    *dataprovider.DataProvider
	MapManager      *mapmanager.MapManager
	LidarMapBuilder *lidarmap.LidarMapBuilder
	FloorDetector   *floordetector.FloorDetector
	EnhancedImaging *enhancedimaging.EnhancedImaging
	Recorder        *recorder.Recorder

	telemetry perf.Exporter
}

// New builds a Session that dials real TCP connections. The
// Controller's stream handler fans unsolicited stream-event frames out
// to both DataProvider (pose/preview/tracking/lidar/imu caches) and
// MapManager (map-storage progress pushes),
// the only two components that observe the stream rather than only
// issuing on-demand requests.
func New() *Session {
	s := &Session{}
	s.Controller = controller.NewWithRealTransport(s.dispatchStreamEvent)
	s.wireComponents()
	return s
}

// NewWithDialer builds a Session over a caller-supplied Dialer, letting
// tests substitute a fake transport without opening a real socket.
func NewWithDialer(dial controller.Dialer) *Session {
	s := &Session{}
	s.Controller = controller.New(dial, s.dispatchStreamEvent)
	s.wireComponents()
	return s
}

func (s *Session) wireComponents() {
	s.DataProvider = dataprovider.New(s.Controller.Transport)
	s.MapManager = mapmanager.New(s.Controller.Transport)
	s.LidarMapBuilder = lidarmap.New(s.Controller.Transport)
	s.FloorDetector = floordetector.New(s.Controller.Transport)
	s.EnhancedImaging = enhancedimaging.New(s.Controller.Transport)
	s.Recorder = recorder.New(s.Controller.Transport)
}

func (s *Session) dispatchStreamEvent(body []byte) {
	s.DataProvider.HandleStreamEvent(body)
	s.MapManager.HandleStreamEvent(body)
}

// Discover performs passive network discovery for devices to connect
// to; see Controller.Discover.
func (s *Session) Discover(timeout time.Duration) ([]slamtypes.DeviceEndpoint, error) {
	return s.Controller.Discover(timeout)
}

// Connect establishes the session's transport. Fails with
// sdkerrors.ErrAlreadyConnected if one already exists.
func (s *Session) Connect(ctx context.Context, target slamtypes.ConnectTarget) error {
	return s.Controller.Connect(ctx, target)
}

// Release tears down the session's transport, if any, and stops
// telemetry reporting if it was enabled. It is idempotent and safe to
// call multiple times, matching the Session entity's "idempotent
// release" lifecycle.
func (s *Session) Release() error {
	if s.telemetry != nil {
		s.telemetry.Stop()
		s.telemetry = nil
	}
	return s.Controller.Disconnect()
}

// SetLogger replaces the Controller's logger, e.g. with one sharing a
// host application's log sink.
func (s *Session) SetLogger(logger logging.Logger) {
	s.Controller.SetLogger(logger)
}

// EnableTelemetry starts reporting operation-latency stats for every
// component call this Session makes. It is optional: a host that never
// calls it pays no telemetry overhead beyond an in-process stats
// record per call.
func (s *Session) EnableTelemetry() error {
	exporter, err := telemetry.Init()
	if err != nil {
		return err
	}
	s.telemetry = exporter
	return nil
}
