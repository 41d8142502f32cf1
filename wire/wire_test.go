package wire_test

import (
	"bytes"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/wire"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	body := []byte("hello device")
	test.That(t, wire.WriteFrame(&buf, wire.KindRequest, body), test.ShouldBeNil)

	kind, got, err := wire.ReadFrame(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, wire.KindRequest)
	test.That(t, got, test.ShouldResemble, body)
}

func TestFrameRoundTripEmptyBody(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, wire.WriteFrame(&buf, wire.KindStreamEvent, nil), test.ShouldBeNil)

	kind, got, err := wire.ReadFrame(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, kind, test.ShouldEqual, wire.KindStreamEvent)
	test.That(t, len(got), test.ShouldEqual, 0)
}

func TestServerConnectionInfoRoundTrip(t *testing.T) {
	endpoints := []slamtypes.DeviceEndpoint{
		{Name: "192.168.1.10", Options: []slamtypes.ConnectionOption{{Protocol: slamtypes.ProtocolTCP, Address: "192.168.1.10", Port: 7447}}},
		{Name: "192.168.1.11", Options: []slamtypes.ConnectionOption{{Protocol: slamtypes.ProtocolTCP, Address: "192.168.1.11", Port: 7448}}},
	}
	encoded, err := wire.EncodeServerConnectionInfo(endpoints)
	test.That(t, err, test.ShouldBeNil)

	decoded, err := wire.DecodeServerConnectionInfo(encoded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(decoded), test.ShouldEqual, 2)
	test.That(t, decoded[0].Options[0].Address, test.ShouldEqual, "192.168.1.10")
	test.That(t, decoded[1].Options[0].Port, test.ShouldEqual, uint16(7448))
}

func TestDeviceBasicInfoRoundTrip(t *testing.T) {
	info := slamtypes.DeviceBasicInfo{
		ModelNumber:      "SD-1000",
		FirmwareVersion:  "1.4.2",
		SerialNumber:     [16]byte{1, 2, 3, 4},
		UptimeSeconds:    12345,
		HardwareFeatures: slamtypes.HardwareFeatureLidar | slamtypes.HardwareFeatureIMU,
		SensingFeatures:  slamtypes.SensingFeatureCoMap,
		SoftwareFeatures: slamtypes.SoftwareFeatureVSLAM,
		CapturedAt:       time.Unix(1_700_000_000, 0).UTC(),
	}
	encoded := wire.EncodeDeviceBasicInfo(info)
	decoded, err := wire.DecodeDeviceBasicInfo(encoded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded.ModelNumber, test.ShouldEqual, info.ModelNumber)
	test.That(t, decoded.FirmwareVersion, test.ShouldEqual, info.FirmwareVersion)
	test.That(t, decoded.UptimeSeconds, test.ShouldEqual, info.UptimeSeconds)
	test.That(t, decoded.HardwareFeatures, test.ShouldEqual, info.HardwareFeatures)
	test.That(t, decoded.CapturedAt.Unix(), test.ShouldEqual, info.CapturedAt.Unix())
}

func TestPoseSE3RoundTrip(t *testing.T) {
	p := slamtypes.PoseSE3{X: 1.5, Y: -2.25, Z: 0.75, QX: 0, QY: 0, QZ: 0, QW: 1}
	decoded, err := wire.DecodePoseSE3(wire.EncodePoseSE3(p))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, p)
}

func TestPoseEulerRoundTrip(t *testing.T) {
	p := slamtypes.PoseEuler{X: 1, Y: 2, Z: 3, Roll: 0.1, Pitch: 0.2, Yaw: 0.3}
	decoded, err := wire.DecodePoseEuler(wire.EncodePoseEuler(p))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, p)
}

func TestKeypointsRoundTrip(t *testing.T) {
	kps := []slamtypes.Keypoint{{X: 1, Y: 2, Matched: true}, {X: 3, Y: 4, Matched: false}}
	decoded, err := wire.DecodeKeypoints(wire.EncodeKeypoints(kps))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, kps)
}

func TestLidarPointsRoundTrip(t *testing.T) {
	pts := []slamtypes.LidarPoint{{DistanceM: 1.2, AngleRad: 0.5, Quality: 200}}
	decoded, err := wire.DecodeLidarPoints(wire.EncodeLidarPoints(pts))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, pts)
}

func TestLidarPointsRejectsMisalignedLength(t *testing.T) {
	_, err := wire.DecodeLidarPoints(make([]byte, 5))
	test.That(t, err, test.ShouldBeError)
}

func TestIMUSampleRoundTrip(t *testing.T) {
	s := slamtypes.IMUSample{TimestampNs: 42, IMUID: 1, Acc: [3]float64{0.1, 0.2, 9.8}, Gyro: [3]float64{0, 0, 0}}
	decoded, err := wire.DecodeIMUSample(wire.EncodeIMUSample(s))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, s)
}

func TestIDArrayRoundTrip(t *testing.T) {
	ids := []uint64{10, 20, 30}
	decoded, err := wire.DecodeIDArray(bytes.NewReader(wire.EncodeIDArray(ids)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, ids)
}

func TestIDArrayEmpty(t *testing.T) {
	decoded, err := wire.DecodeIDArray(bytes.NewReader(wire.EncodeIDArray(nil)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(decoded), test.ShouldEqual, 0)
}

func TestGridDimensionRoundTrip(t *testing.T) {
	rect := slamtypes.Rect{X: -1, Y: -2, W: 10, H: 20}
	encoded := wire.EncodeGridDimension(rect, 0.05, 200, 400)
	gotRect, res, cw, ch, err := wire.DecodeGridDimension(encoded)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, gotRect, test.ShouldResemble, rect)
	test.That(t, res, test.ShouldEqual, 0.05)
	test.That(t, cw, test.ShouldEqual, 200)
	test.That(t, ch, test.ShouldEqual, 400)
}

func TestDepthCameraConfigRoundTrip(t *testing.T) {
	cfg := slamtypes.DepthCameraConfig{FPS: 15, FrameSkip: 2, ImageW: 640, ImageH: 480, BoundCamID: 0}
	decoded, err := wire.DecodeDepthCameraConfig(wire.EncodeDepthCameraConfig(cfg))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, decoded, test.ShouldResemble, cfg)
}
