package enhancedimaging_test

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/enhancedimaging"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/transport/inject"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func TestIsDepthCameraSupportedReadsCapabilityBit(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, wire.EncodeDeviceBasicInfo(slamtypes.DeviceBasicInfo{
				SensingFeatures: slamtypes.SensingFeatureStereoDenseDisparity,
			})), nil
		},
	}
	e := enhancedimaging.New(func() (transport.Interface, error) { return fake, nil })

	ok, err := e.IsDepthCameraSupported(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
}

func TestPeekDepthCameraFrameReturnsNilWhenNotReady(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			header := wire.EncodeImageFrameHeader(slamtypes.ImageFrame{})
			resp := append(append([]byte{}, header...), make([]byte, 4)...) // requiredSize == 0
			return wire.EncodeOpResponse(0, resp), nil
		},
	}
	e := enhancedimaging.New(func() (transport.Interface, error) { return fake, nil })

	frame, err := e.PeekDepthCameraFrame(context.Background(), slamtypes.DepthFrameDepthMap, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, frame, test.ShouldBeNil)
}

func TestPeekDepthCameraFrameTwoStepProtocol(t *testing.T) {
	wantFrame := slamtypes.ImageFrame{Width: 4, Height: 2, Stride: 16, PixelFormat: slamtypes.PixelFormatDepthFloat32, TimestampNs: 42}
	pixelBytes := make([]byte, 4*2*4)
	for i := range pixelBytes {
		pixelBytes[i] = byte(i)
	}

	calls := 0
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			calls++
			header := wire.EncodeImageFrameHeader(wantFrame)
			if calls == 1 {
				resp := append(append([]byte{}, header...), make([]byte, 4)...)
				binary.LittleEndian.PutUint32(resp[len(header):], uint32(len(pixelBytes)))
				return wire.EncodeOpResponse(0, resp), nil
			}
			resp := append(append([]byte{}, header...), make([]byte, 4)...)
			binary.LittleEndian.PutUint32(resp[len(header):], uint32(len(pixelBytes)))
			resp = append(resp, pixelBytes...)
			return wire.EncodeOpResponse(0, resp), nil
		},
	}
	e := enhancedimaging.New(func() (transport.Interface, error) { return fake, nil })

	frame, err := e.PeekDepthCameraFrame(context.Background(), slamtypes.DepthFramePoint3D, time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calls, test.ShouldEqual, 2)
	test.That(t, frame.Width, test.ShouldEqual, 4)
	test.That(t, frame.Height, test.ShouldEqual, 2)
	test.That(t, len(frame.Bytes), test.ShouldEqual, len(pixelBytes))
	test.That(t, frame.Bytes[3], test.ShouldEqual, pixelBytes[3])
}

func TestWaitDepthCameraNextFrameTimeoutReturnsFalseNotError(t *testing.T) {
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return nil, context.DeadlineExceeded
		},
	}
	e := enhancedimaging.New(func() (transport.Interface, error) { return fake, nil })

	ok, err := e.WaitDepthCameraNextFrame(context.Background(), 10)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestSemanticSegmentationLabelsRoundTrip(t *testing.T) {
	labels := slamtypes.SemanticSegmentationLabels{LabelSetName: "indoor-v1", ClassNames: []string{"floor", "wall", "door"}}
	fake := &inject.Transport{
		CallFunc: func(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
			return wire.EncodeOpResponse(0, encodeLabelsForTest(labels)), nil
		},
	}
	e := enhancedimaging.New(func() (transport.Interface, error) { return fake, nil })

	got, err := e.SemanticSegmentationLabels(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, got, test.ShouldResemble, labels)

	name, err := e.SemanticSegmentationLabelSetName(context.Background(), time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, name, test.ShouldEqual, "indoor-v1")
}

func encodeLabelsForTest(labels slamtypes.SemanticSegmentationLabels) []byte {
	buf := make([]byte, 0)
	putStr := func(s string) {
		l := make([]byte, 4)
		binary.LittleEndian.PutUint32(l, uint32(len(s)))
		buf = append(buf, l...)
		buf = append(buf, []byte(s)...)
	}
	putStr(labels.LabelSetName)
	count := make([]byte, 4)
	binary.LittleEndian.PutUint32(count, uint32(len(labels.ClassNames)))
	buf = append(buf, count...)
	for _, n := range labels.ClassNames {
		putStr(n)
	}
	return buf
}
