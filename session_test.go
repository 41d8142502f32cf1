package slamdevice_test

import (
	"context"
	"encoding/binary"
	"testing"

	"go.viam.com/test"

	slamdevice "github.com/viam-modules/slam-device-sdk"
	"github.com/viam-modules/slam-device-sdk/controller"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/transport/inject"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func dialerCapturingStream(fake *inject.Transport, captured *transport.StreamHandler) controller.Dialer {
	return func(ctx context.Context, opt slamtypes.ConnectionOption, onStream transport.StreamHandler) (transport.Interface, error) {
		*captured = onStream
		return fake, nil
	}
}

func TestConnectWiresStreamEventsToDataProviderAndMapManager(t *testing.T) {
	fake := &inject.Transport{}
	var onStream transport.StreamHandler
	s := slamdevice.NewWithDialer(dialerCapturingStream(fake, &onStream))

	test.That(t, s.Connect(context.Background(), slamtypes.TargetFromString("10.0.0.5")), test.ShouldBeNil)
	test.That(t, onStream, test.ShouldNotBeNil)

	pose := slamtypes.PoseSE3{QW: 1}
	posePayload := append(wire.EncodePoseSE3(pose), make([]byte, 8)...)
	binary.LittleEndian.PutUint64(posePayload[len(posePayload)-8:], 99)
	onStream(wire.JoinStreamEvent(wire.StreamPose, posePayload))

	got, ts, err := s.DataProvider.CurrentPoseSE3()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got.QW, test.ShouldEqual, float64(1))
	test.That(t, ts, test.ShouldEqual, int64(99))

	progressPayload := make([]byte, 8)
	binary.LittleEndian.PutUint32(progressPayload[:4], 50)
	binary.LittleEndian.PutUint32(progressPayload[4:8], uint32(slamtypes.MapStorageFinished))
	onStream(wire.JoinStreamEvent(wire.StreamMapStorageProgress, progressPayload))

	test.That(t, s.MapManager.IsSessionActive(), test.ShouldBeFalse)
}

func TestReleaseIsIdempotent(t *testing.T) {
	var onStream transport.StreamHandler
	s := slamdevice.NewWithDialer(dialerCapturingStream(&inject.Transport{}, &onStream))
	test.That(t, s.Release(), test.ShouldBeNil)
	test.That(t, s.Connect(context.Background(), slamtypes.TargetFromString("10.0.0.5")), test.ShouldBeNil)
	test.That(t, s.Release(), test.ShouldBeNil)
	test.That(t, s.Release(), test.ShouldBeNil)
}
