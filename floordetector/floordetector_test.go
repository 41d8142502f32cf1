package floordetector_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/floordetector"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/transport/inject"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func encodeFloorDescriptor(d slamtypes.FloorDescriptor) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, d.FloorID)
	buf.Write(make([]byte, 4))
	_ = binary.Write(&buf, binary.LittleEndian, d.TypicalHeightM)
	_ = binary.Write(&buf, binary.LittleEndian, d.Confidence)
	return buf.Bytes()
}

func TestDetectionHistogram(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			var buf bytes.Buffer
			_ = binary.Write(&buf, binary.LittleEndian, 0.1)
			_ = binary.Write(&buf, binary.LittleEndian, -1.0)
			_ = binary.Write(&buf, binary.LittleEndian, int32(3))
			buf.Write(make([]byte, 4))
			_ = binary.Write(&buf, binary.LittleEndian, float32(1.5))
			_ = binary.Write(&buf, binary.LittleEndian, float32(2.5))
			_ = binary.Write(&buf, binary.LittleEndian, float32(3.5))
			return wire.EncodeOpResponse(0, buf.Bytes()), nil
		},
	}
	fd := floordetector.New(func() (transport.Interface, error) { return fake, nil })

	hist, err := fd.DetectionHistogram(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, hist.Info.BinTotalCount, test.ShouldEqual, 3)
	test.That(t, len(hist.Values), test.ShouldEqual, 3)
	test.That(t, hist.Values[1], test.ShouldEqual, float32(2.5))
}

func TestAllDetectionInfo(t *testing.T) {
	descA := slamtypes.FloorDescriptor{FloorID: 0, TypicalHeightM: 0, Confidence: 0.9}
	descB := slamtypes.FloorDescriptor{FloorID: 1, TypicalHeightM: 3.1, Confidence: 0.8}
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			var buf bytes.Buffer
			_ = binary.Write(&buf, binary.LittleEndian, int32(1))
			buf.Write(encodeFloorDescriptor(descA))
			buf.Write(encodeFloorDescriptor(descB))
			return wire.EncodeOpResponse(0, buf.Bytes()), nil
		},
	}
	fd := floordetector.New(func() (transport.Interface, error) { return fake, nil })

	floors, currentID, err := fd.AllDetectionInfo(context.Background(), 20, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, currentID, test.ShouldEqual, int32(1))
	test.That(t, len(floors), test.ShouldEqual, 2)
	test.That(t, floors[1].TypicalHeightM, test.ShouldEqual, 3.1)
}

func TestCurrentDetectionDesc(t *testing.T) {
	desc := slamtypes.FloorDescriptor{FloorID: 2, TypicalHeightM: 6.0, Confidence: 0.95}
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, encodeFloorDescriptor(desc)), nil
		},
	}
	fd := floordetector.New(func() (transport.Interface, error) { return fake, nil })

	got, err := fd.CurrentDetectionDesc(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, desc)
}
