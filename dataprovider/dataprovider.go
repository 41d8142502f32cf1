// Package dataprovider is the read-only accessor for live device
// streams and on-demand map data. The live-stream accessors (pose,
// preview, tracking, LiDAR, IMU) are non-blocking snapshot reads of a
// mutex-protected cache kept warm by the transport's stream-event
// handler; the device and map queries are transport calls. The cache generalizes
// sensorprocess.Config's currentData caching from one sensor pair to
// the full set of live streams this SDK exposes.
package dataprovider

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// loopClosureSafetyCap bounds how many looped-frame IDs map_data reads
// per keyframe, guarding against a malformed or malicious null
// terminator never arriving.
const loopClosureSafetyCap = 100

// DataProvider reads live pose/image/lidar/imu state and pulls map data
// on demand.
type DataProvider struct {
	transport func() (transport.Interface, error)
	cache     *cache
}

// New builds a DataProvider. transportFn resolves the active transport
// (or sdkerrors.ErrNotConnected) for each on-demand request; it is
// typically the owning Session's internal accessor.
func New(transportFn func() (transport.Interface, error)) *DataProvider {
	return &DataProvider{transport: transportFn, cache: newCache()}
}

// HandleStreamEvent updates the live caches from one stream-event
// frame. It is installed as the transport's StreamHandler.
func (d *DataProvider) HandleStreamEvent(body []byte) {
	tag, payload := wire.SplitStreamEvent(body)
	switch tag {
	case wire.StreamPose:
		pose, err := wire.DecodePoseSE3(payload)
		if err != nil || len(payload) < 8 {
			return
		}
		ts := int64(binary.LittleEndian.Uint64(payload[len(payload)-8:]))
		d.cache.setPose(pose, ts)
	case wire.StreamCameraPreview:
		pair, err := wire.DecodeStereoDescriptor(payload)
		if err != nil {
			return
		}
		d.cache.setPreview(pair)
	case wire.StreamTrackingFrame:
		frame, _, _, err := wire.DecodeTrackingInfo(payload)
		if err != nil {
			return
		}
		d.cache.setTracking(frame)
	case wire.StreamLidarScan:
		header, pointCount, err := wire.DecodeLidarScanHeader(payload)
		if err != nil {
			return
		}
		pointsStart := len(payload) - pointCount*12
		if pointsStart < 0 {
			return
		}
		points, err := wire.DecodeLidarPoints(payload[pointsStart:])
		if err != nil {
			return
		}
		header.Points = points
		d.cache.setLidarScan(header, 8192)
	case wire.StreamIMUSample:
		sample, err := wire.DecodeIMUSample(payload)
		if err != nil {
			return
		}
		d.cache.pushIMUSample(sample)
	}
}

// CurrentPoseSE3 returns the freshest pose in quaternion form. It
// returns ErrNotReady if no pose has arrived yet.
func (d *DataProvider) CurrentPoseSE3() (slamtypes.PoseSE3, int64, error) {
	pose, ts, ok := d.cache.getPose()
	if !ok {
		return slamtypes.PoseSE3{}, 0, sdkerrors.ErrNotReady
	}
	return pose, ts, nil
}

// CurrentPoseEuler returns the freshest pose in roll/pitch/yaw form.
func (d *DataProvider) CurrentPoseEuler() (slamtypes.PoseEuler, int64, error) {
	pose, ts, ok := d.cache.getPose()
	if !ok {
		return slamtypes.PoseEuler{}, 0, sdkerrors.ErrNotReady
	}
	return pose.ToEuler(), ts, nil
}

// PeekHistoryPose looks up the pose nearest timestampNs in the cached
// pose history. timestampNs must be a real sensor timestamp: 0 or a
// value with no nearby sample both yield ErrNotReady.
func (d *DataProvider) PeekHistoryPose(timestampNs int64, allowInterpolation bool, maxTimeDiffNs int64) (slamtypes.PoseSE3, error) {
	if timestampNs == 0 {
		return slamtypes.PoseSE3{}, sdkerrors.ErrNotReady
	}
	history := d.cache.historySnapshot()
	if len(history) == 0 {
		return slamtypes.PoseSE3{}, sdkerrors.ErrNotReady
	}

	before, after := -1, -1
	for i, h := range history {
		if h.timestampNs <= timestampNs {
			before = i
		}
		if h.timestampNs >= timestampNs && after == -1 {
			after = i
		}
	}

	if before >= 0 && history[before].timestampNs == timestampNs {
		return history[before].pose, nil
	}
	if after >= 0 && history[after].timestampNs == timestampNs {
		return history[after].pose, nil
	}

	if !allowInterpolation {
		nearest, diff := nearestSample(history, timestampNs)
		if nearest == nil || diff > maxTimeDiffNs {
			return slamtypes.PoseSE3{}, sdkerrors.ErrNotReady
		}
		return nearest.pose, nil
	}

	if before < 0 || after < 0 {
		nearest, diff := nearestSample(history, timestampNs)
		if nearest == nil || diff > maxTimeDiffNs {
			return slamtypes.PoseSE3{}, sdkerrors.ErrNotReady
		}
		return nearest.pose, nil
	}

	lo, hi := history[before], history[after]
	if hi.timestampNs-lo.timestampNs > maxTimeDiffNs {
		return slamtypes.PoseSE3{}, sdkerrors.ErrNotReady
	}
	return interpolatePose(lo, hi, timestampNs), nil
}

func nearestSample(history []historyPose, timestampNs int64) (*historyPose, int64) {
	var best *historyPose
	var bestDiff int64 = -1
	for i := range history {
		diff := history[i].timestampNs - timestampNs
		if diff < 0 {
			diff = -diff
		}
		if bestDiff == -1 || diff < bestDiff {
			bestDiff = diff
			best = &history[i]
		}
	}
	return best, bestDiff
}

func interpolatePose(lo, hi historyPose, timestampNs int64) slamtypes.PoseSE3 {
	span := hi.timestampNs - lo.timestampNs
	if span <= 0 {
		return lo.pose
	}
	t := float64(timestampNs-lo.timestampNs) / float64(span)
	lerp := func(a, b float64) float64 { return a + (b-a)*t }
	return slamtypes.PoseSE3{
		X:  lerp(lo.pose.X, hi.pose.X),
		Y:  lerp(lo.pose.Y, hi.pose.Y),
		Z:  lerp(lo.pose.Z, hi.pose.Z),
		QX: lerp(lo.pose.QX, hi.pose.QX),
		QY: lerp(lo.pose.QY, hi.pose.QY),
		QZ: lerp(lo.pose.QZ, hi.pose.QZ),
		QW: lerp(lo.pose.QW, hi.pose.QW),
	}
}

// CameraPreview returns the freshest stereo preview pair when
// timestampNs is 0, or the cached pair nearest timestampNs when
// allowNearest is set and non-zero timestamps are requested.
func (d *DataProvider) CameraPreview(timestampNs int64, allowNearest bool) (slamtypes.StereoImagePair, error) {
	if timestampNs == 0 {
		pair, ok := d.cache.getPreview()
		if !ok {
			return slamtypes.StereoImagePair{}, sdkerrors.ErrNotReady
		}
		return pair, nil
	}
	if !allowNearest {
		return slamtypes.StereoImagePair{}, sdkerrors.ErrNotReady
	}
	pair, ok := d.cache.nearestPreview(timestampNs)
	if !ok {
		return slamtypes.StereoImagePair{}, sdkerrors.ErrNotReady
	}
	return pair, nil
}

// TrackingFrame returns the freshest tracking snapshot.
func (d *DataProvider) TrackingFrame() (slamtypes.TrackingFrame, error) {
	frame, ok := d.cache.getTracking()
	if !ok {
		return slamtypes.TrackingFrame{}, sdkerrors.ErrNotReady
	}
	return frame, nil
}

// RecentLidarScan returns the freshest LiDAR scan, capped to maxPoints.
func (d *DataProvider) RecentLidarScan(maxPoints int) (slamtypes.LidarScan, bool) {
	scan, ok := d.cache.getLidarScan()
	if !ok {
		return slamtypes.LidarScan{}, false
	}
	if len(scan.Points) > maxPoints {
		scan.Points = scan.Points[:maxPoints]
	}
	return scan, true
}

// PeekIMUData returns up to maxCount cached IMU samples, always
// immediately, even when the cache is empty.
func (d *DataProvider) PeekIMUData(maxCount int) []slamtypes.IMUSample {
	return d.cache.peekIMUBurst(maxCount)
}

func (d *DataProvider) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := d.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

// GlobalMappingInfo fetches the device's global mapping summary.
func (d *DataProvider) GlobalMappingInfo(ctx context.Context, timeout time.Duration) (slamtypes.GlobalMapDesc, error) {
	resp, err := d.call(ctx, wire.OpGlobalMappingInfo, nil, timeout)
	if err != nil {
		return slamtypes.GlobalMapDesc{}, err
	}
	return wire.DecodeGlobalMapDesc(resp)
}

// DeviceBasicInfo fetches device identity and capability bitmaps.
func (d *DataProvider) DeviceBasicInfo(ctx context.Context, timeout time.Duration) (slamtypes.DeviceBasicInfo, error) {
	resp, err := d.call(ctx, wire.OpDeviceBasicInfo, nil, timeout)
	if err != nil {
		return slamtypes.DeviceBasicInfo{}, err
	}
	return wire.DecodeDeviceBasicInfo(resp)
}

// DeviceStatus fetches the device's current health/mode status.
func (d *DataProvider) DeviceStatus(ctx context.Context, timeout time.Duration) (slamtypes.DeviceStatus, int64, error) {
	resp, err := d.call(ctx, wire.OpDeviceStatus, nil, timeout)
	if err != nil {
		return 0, 0, err
	}
	if len(resp) < 12 {
		return 0, 0, errors.New("dataprovider: short device status response")
	}
	status := slamtypes.DeviceStatus(binary.LittleEndian.Uint32(resp[:4]))
	ts := int64(binary.LittleEndian.Uint64(resp[4:12]))
	return status, ts, nil
}

// RelocalizationStatus fetches the current relocalization outcome.
func (d *DataProvider) RelocalizationStatus(ctx context.Context, timeout time.Duration) (slamtypes.RelocalizationStatus, error) {
	resp, err := d.call(ctx, wire.OpRelocalizationStatus, nil, timeout)
	if err != nil {
		return slamtypes.RelocalizationNone, err
	}
	if len(resp) < 4 {
		return slamtypes.RelocalizationNone, errors.New("dataprovider: short relocalization status response")
	}
	return slamtypes.RelocalizationStatus(binary.LittleEndian.Uint32(resp)), nil
}

// MappingFlags fetches the device's current mapping-mode flags.
func (d *DataProvider) MappingFlags(ctx context.Context, timeout time.Duration) (uint32, error) {
	resp, err := d.call(ctx, wire.OpMappingFlags, nil, timeout)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, errors.New("dataprovider: short mapping flags response")
	}
	return binary.LittleEndian.Uint32(resp), nil
}

// IMUInfo fetches static IMU stream metadata (sample rate and count).
func (d *DataProvider) IMUInfo(ctx context.Context, timeout time.Duration) (rateHz float64, count int32, err error) {
	resp, err := d.call(ctx, wire.OpIMUInfo, nil, timeout)
	if err != nil {
		return 0, 0, err
	}
	if len(resp) < 12 {
		return 0, 0, errors.New("dataprovider: short imu info response")
	}
	rate := decodeFloat64(resp[:8])
	cnt := int32(binary.LittleEndian.Uint32(resp[8:12]))
	return rate, cnt, nil
}

// AllMapInfo fetches up to max per-map summaries.
func (d *DataProvider) AllMapInfo(ctx context.Context, max int, timeout time.Duration) ([]slamtypes.MapDescriptor, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(max))
	resp, err := d.call(ctx, wire.OpAllMapInfo, payload, timeout)
	if err != nil {
		return nil, err
	}
	const mapDescriptorWireSize = 48
	if len(resp)%mapDescriptorWireSize != 0 {
		return nil, errors.New("dataprovider: malformed all_map_info response")
	}
	count := len(resp) / mapDescriptorWireSize
	out := make([]slamtypes.MapDescriptor, 0, count)
	for i := 0; i < count; i++ {
		desc, err := wire.DecodeMapDescriptor(resp[i*mapDescriptorWireSize : (i+1)*mapDescriptorWireSize])
		if err != nil {
			return nil, errors.Wrapf(err, "dataprovider: decoding map descriptor %d", i)
		}
		out = append(out, desc)
	}
	return out, nil
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
