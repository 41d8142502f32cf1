package lidarmap_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/lidarmap"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/transport/inject"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func encodeGridDimension(rect slamtypes.Rect, res float64, cellW, cellH int) []byte {
	return wire.EncodeGridDimension(rect, res, cellW, cellH)
}

func TestStartStopPreviewBackgroundUpdate(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	test.That(t, l.IsPreviewBackgroundUpdating(), test.ShouldBeFalse)
	err := l.StartPreviewBackgroundUpdate(context.Background(), slamtypes.GridMapGenerationOptions{ResolutionM: 0.05}, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.IsPreviewBackgroundUpdating(), test.ShouldBeTrue)

	err = l.StopPreviewBackgroundUpdate(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.IsPreviewBackgroundUpdating(), test.ShouldBeFalse)
}

func TestSetPreviewAutoFloorDetectionTracksLocally(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, nil), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	test.That(t, l.IsPreviewAutoFloorDetection(), test.ShouldBeFalse)
	err := l.SetPreviewAutoFloorDetection(context.Background(), true, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.IsPreviewAutoFloorDetection(), test.ShouldBeTrue)
}

func TestGetAndResetPreviewDirtyRect(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			var buf bytes.Buffer
			fields := [4]float64{1, 2, 3, 4}
			_ = binary.Write(&buf, binary.LittleEndian, &fields)
			buf.WriteByte(1)
			return wire.EncodeOpResponse(0, buf.Bytes()), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	rect, bigChange, err := l.GetAndResetPreviewDirtyRect(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rect, test.ShouldResemble, slamtypes.Rect{X: 1, Y: 2, W: 3, H: 4})
	test.That(t, bigChange, test.ShouldBeTrue)
}

func TestGetPreviewMapReturnsNonOwningView(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, encodeGridDimension(slamtypes.Rect{X: 0, Y: 0, W: 10, H: 10}, 0.1, 100, 100)), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	g, err := l.GetPreviewMap(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Owned(), test.ShouldBeFalse)
	test.That(t, g.CellW, test.ShouldEqual, 100)
	test.That(t, g.CellH, test.ShouldEqual, 100)

	// Releasing a non-owning view is a no-op and never errors.
	test.That(t, g.Release(), test.ShouldBeNil)
}

func TestGenerateFullmapOnDemandReturnsOwnedHandle(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, encodeGridDimension(slamtypes.Rect{X: 0, Y: 0, W: 20, H: 20}, 0.05, 400, 400)), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	g, err := l.GenerateFullmapOnDemand(context.Background(), slamtypes.GridMapGenerationOptions{ResolutionM: 0.05}, true, 5000)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Owned(), test.ShouldBeTrue)
	test.That(t, g.Release(), test.ShouldBeNil)
}

func TestReadCellDataTruncatesToReportedDimensions(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			var buf bytes.Buffer
			buf.Write(encodeFetchInfo(0, 0, 3, 2))
			buf.Write([]byte{255, 127, 0, 255, 127, 0})
			buf.Write([]byte{0xAA, 0xBB}) // extra padding the device over-allocated
			return wire.EncodeOpResponse(0, buf.Bytes()), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	cells, info, err := l.ReadCellData(context.Background(), slamtypes.Rect{X: 0, Y: 0, W: 1, H: 1}, 0.5, true, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.CellW, test.ShouldEqual, 3)
	test.That(t, info.CellH, test.ShouldEqual, 2)
	test.That(t, len(cells), test.ShouldEqual, 6)
	test.That(t, cells[0], test.ShouldEqual, byte(255))
}

func encodeFetchInfo(realX, realY float64, cellW, cellH int) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, realX)
	_ = binary.Write(&buf, binary.LittleEndian, realY)
	_ = binary.Write(&buf, binary.LittleEndian, int32(cellW))
	_ = binary.Write(&buf, binary.LittleEndian, int32(cellH))
	return buf.Bytes()
}

func TestGetSupportedGridResolutionRange(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			var buf bytes.Buffer
			_ = binary.Write(&buf, binary.LittleEndian, 0.01)
			_ = binary.Write(&buf, binary.LittleEndian, 1.0)
			return wire.EncodeOpResponse(0, buf.Bytes()), nil
		},
	}
	l := lidarmap.New(func() (transport.Interface, error) { return fake, nil })

	min, max, err := l.GetSupportedGridResolutionRange(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, min, test.ShouldEqual, 0.01)
	test.That(t, max, test.ShouldEqual, 1.0)
}
