package recorder_test

import (
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/recorder"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/transport/inject"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func TestStartRecordingEncodesKindAndPath(t *testing.T) {
	var gotKind uint32
	var gotPath string
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			payload := body[2:]
			gotKind = binary.LittleEndian.Uint32(payload[:4])
			pathLen := binary.LittleEndian.Uint32(payload[4:8])
			gotPath = string(payload[8 : 8+pathLen])
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	err := rec.StartRecording(context.Background(), slamtypes.RecorderColmapDataset, "/tmp/cmp", time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotKind, test.ShouldEqual, uint32(slamtypes.RecorderColmapDataset))
	test.That(t, gotPath, test.ShouldEqual, "/tmp/cmp")
}

func TestIsRecordingTrue(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, []byte{1}), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	ok, err := rec.IsRecording(context.Background(), slamtypes.RecorderRawDataset, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestSetOptionBoolEncodesValue(t *testing.T) {
	var gotValue byte
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			payload := body[2:]
			gotValue = payload[len(payload)-1]
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	err := rec.SetOptionBool(context.Background(), slamtypes.RecorderColmapDataset, slamtypes.OptionStereoRecording, true, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotValue, test.ShouldEqual, byte(1))
}

func TestSetOptionFloatRoundTrips(t *testing.T) {
	var gotValue float64
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			payload := body[2:]
			gotValue = math.Float64frombits(binary.LittleEndian.Uint64(payload[len(payload)-8:]))
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	err := rec.SetOptionFloat(context.Background(), slamtypes.RecorderRawDataset, slamtypes.OptionUndistort, 0.5, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotValue, test.ShouldEqual, 0.5)
}

func TestQueryStatusIntReturnsValue(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, uint64(42))
			return wire.EncodeOpResponse(0, buf), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	count, err := rec.QueryStatusInt(context.Background(), slamtypes.RecorderColmapDataset, "kf_count", false, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, int64(42))
}

func TestQueryStatusFloatReturnsValue(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			buf := make([]byte, 8)
			binary.LittleEndian.PutUint64(buf, math.Float64bits(0.75))
			return wire.EncodeOpResponse(0, buf), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	progress, err := rec.QueryStatusFloat(context.Background(), slamtypes.RecorderColmapDataset, "progress", true, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, progress, test.ShouldEqual, 0.75)
}

func TestResetOptions(t *testing.T) {
	called := false
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			called = true
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	rec := recorder.New(func() (transport.Interface, error) { return fake, nil })

	err := rec.ResetOptions(context.Background(), slamtypes.RecorderRawDataset, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, called, test.ShouldBeTrue)
}
