package dataprovider

import (
	"bytes"
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// MapIDsMode selects which maps map_data pulls records from.
type MapIDsMode int

// Map selection modes, per §4.2: None = active map only, Empty = all
// maps, List = a specific set.
const (
	MapIDsActiveOnly MapIDsMode = iota
	MapIDsAll
	MapIDsList
)

// MapDataFilter parameterizes one map_data call.
type MapDataFilter struct {
	Mode           MapIDsMode
	MapIDs         []uint32
	FetchKeyframes bool
	FetchMapPoints bool
	FetchMapInfo   bool
	KeyframeFlags  uint32
	MapPointFlags  uint32
}

func encodeMapDataFilter(f MapDataFilter) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(byte(f.Mode))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(f.MapIDs)))
	for _, id := range f.MapIDs {
		_ = binary.Write(buf, binary.LittleEndian, id)
	}
	flagsByte := byte(0)
	if f.FetchKeyframes {
		flagsByte |= 1
	}
	if f.FetchMapPoints {
		flagsByte |= 2
	}
	if f.FetchMapInfo {
		flagsByte |= 4
	}
	buf.WriteByte(flagsByte)
	_ = binary.Write(buf, binary.LittleEndian, f.KeyframeFlags)
	_ = binary.Write(buf, binary.LittleEndian, f.MapPointFlags)
	return buf.Bytes()
}

// MapData pulls map points, keyframes, loop closures, and/or map
// summaries per filter. The response is driven through a visitor: any
// panic raised inside a callback is caught and the traversal continues,
// per the map-data visitor's error-isolation contract (§4.2, §7).
func (d *DataProvider) MapData(ctx context.Context, filter MapDataFilter, cb slamtypes.MapVisitorCallbacks, timeout time.Duration) (slamtypes.MapDataResult, error) {
	resp, err := d.call(ctx, wire.OpMapDataVisit, encodeMapDataFilter(filter), timeout)
	if err != nil {
		return slamtypes.MapDataResult{}, err
	}

	r := bytes.NewReader(resp)
	result := slamtypes.MapDataResult{}

	var mapInfoCount uint32
	if err := binary.Read(r, binary.LittleEndian, &mapInfoCount); err != nil {
		return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading map info count")
	}
	for i := uint32(0); i < mapInfoCount; i++ {
		buf := make([]byte, mapDescriptorWireSize)
		if _, err := readFull(r, buf); err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading map descriptor")
		}
		desc, err := wire.DecodeMapDescriptor(buf)
		if err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: decoding map descriptor")
		}
		result.MapInfo = append(result.MapInfo, desc)
		invokeMapDesc(cb, desc)
	}

	var keyframeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &keyframeCount); err != nil {
		return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading keyframe count")
	}
	for i := uint32(0); i < keyframeCount; i++ {
		buf := make([]byte, keyframeHeaderWireSize)
		if _, err := readFull(r, buf); err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading keyframe header")
		}
		kf, err := wire.DecodeKeyframeHeader(buf)
		if err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: decoding keyframe header")
		}
		loopedIDs, err := readCappedIDArray(r, loopClosureSafetyCap)
		if err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading looped ids")
		}
		connectedIDs, err := readCappedIDArray(r, loopClosureSafetyCap)
		if err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading connected ids")
		}
		kf.LoopedFrameIDs = loopedIDs
		kf.ConnectedFrameIDs = connectedIDs

		for _, loopedID := range loopedIDs {
			result.LoopClosures = append(result.LoopClosures, slamtypes.LoopClosure{FromKeyframeID: kf.ID, ToKeyframeID: loopedID})
		}
		result.Keyframes = append(result.Keyframes, kf)
		invokeKeyframe(cb, kf)
	}

	var mapPointCount uint32
	if err := binary.Read(r, binary.LittleEndian, &mapPointCount); err != nil {
		return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading map point count")
	}
	for i := uint32(0); i < mapPointCount; i++ {
		buf := make([]byte, mapPointWireSize)
		if _, err := readFull(r, buf); err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: reading map point")
		}
		mp, err := wire.DecodeMapPoint(buf)
		if err != nil {
			return slamtypes.MapDataResult{}, errors.Wrap(err, "dataprovider: decoding map point")
		}
		result.MapPoints = append(result.MapPoints, mp)
		invokeMapPoint(cb, mp)
	}

	return result, nil
}

const (
	mapDescriptorWireSize  = 48
	keyframeHeaderWireSize = 144
	mapPointWireSize       = 56
	extrinsicWireSize      = 16 * 8
)

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func readCappedIDArray(r *bytes.Reader, maxCount int) ([]uint64, error) {
	var ids []uint64
	for len(ids) < maxCount {
		var id uint64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return nil, err
		}
		if id == 0 {
			return ids, nil
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// invokeMapPoint calls the visitor's OnMapPoint callback if set,
// swallowing any panic so a misbehaving callback cannot kill the
// traversal or the transport's goroutine.
func invokeMapPoint(cb slamtypes.MapVisitorCallbacks, mp slamtypes.MapPoint) {
	if cb.OnMapPoint == nil {
		return
	}
	defer func() { _ = recover() }()
	cb.OnMapPoint(mp)
}

func invokeKeyframe(cb slamtypes.MapVisitorCallbacks, kf slamtypes.Keyframe) {
	if cb.OnKeyframe == nil {
		return
	}
	defer func() { _ = recover() }()
	cb.OnKeyframe(kf)
}

func invokeMapDesc(cb slamtypes.MapVisitorCallbacks, desc slamtypes.MapDescriptor) {
	if cb.OnMapDesc == nil {
		return
	}
	defer func() { _ = recover() }()
	cb.OnMapDesc(desc)
}

// CameraCalibration fetches the device's per-camera calibration.
func (d *DataProvider) CameraCalibration(ctx context.Context, timeout time.Duration) (slamtypes.CameraCalibration, error) {
	resp, err := d.call(ctx, wire.OpCameraCalibration, nil, timeout)
	if err != nil {
		return slamtypes.CameraCalibration{}, err
	}
	return decodeCameraCalibration(resp)
}

// TransformCalibration fetches the base-to-camera and camera-to-IMU
// extrinsic transforms.
func (d *DataProvider) TransformCalibration(ctx context.Context, timeout time.Duration) (slamtypes.TransformCalibration, error) {
	resp, err := d.call(ctx, wire.OpTransformCalibration, nil, timeout)
	if err != nil {
		return slamtypes.TransformCalibration{}, err
	}
	if len(resp) < 2*56 {
		return slamtypes.TransformCalibration{}, errors.New("dataprovider: short transform calibration response")
	}
	baseToCamera, err := wire.DecodePoseSE3(resp[:56])
	if err != nil {
		return slamtypes.TransformCalibration{}, errors.Wrap(err, "dataprovider: decoding base-to-camera transform")
	}
	cameraToIMU, err := wire.DecodePoseSE3(resp[56:112])
	if err != nil {
		return slamtypes.TransformCalibration{}, errors.Wrap(err, "dataprovider: decoding camera-to-imu transform")
	}
	return slamtypes.TransformCalibration{BaseToCamera: baseToCamera, CameraToIMU: cameraToIMU}, nil
}

func decodeCameraCalibration(data []byte) (slamtypes.CameraCalibration, error) {
	r := bytes.NewReader(data)
	var cameraType int32
	if err := binary.Read(r, binary.LittleEndian, &cameraType); err != nil {
		return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading camera type")
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading camera count")
	}
	cal := slamtypes.CameraCalibration{CameraType: slamtypes.CameraType(cameraType)}
	for i := uint32(0); i < count; i++ {
		var lensType, colorMode int32
		var width, height int32
		var fps float64
		var intrinsics [4]float64
		if err := binary.Read(r, binary.LittleEndian, &lensType); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading lens type")
		}
		if err := binary.Read(r, binary.LittleEndian, &colorMode); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading color mode")
		}
		if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading width")
		}
		if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading height")
		}
		if err := binary.Read(r, binary.LittleEndian, &fps); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading fps")
		}
		if err := binary.Read(r, binary.LittleEndian, &intrinsics); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading intrinsics")
		}
		var distortionLen uint32
		if err := binary.Read(r, binary.LittleEndian, &distortionLen); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading distortion length")
		}
		distortion := make([]float64, distortionLen)
		if err := binary.Read(r, binary.LittleEndian, &distortion); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading distortion coefficients")
		}
		cal.Cameras = append(cal.Cameras, slamtypes.PerCameraCalibration{
			LensType:   slamtypes.LensType(lensType),
			ColorMode:  slamtypes.ColorMode(colorMode),
			Width:      int(width),
			Height:     int(height),
			FPS:        fps,
			Intrinsics: intrinsics,
			Distortion: distortion,
		})
	}

	var extCount uint32
	if err := binary.Read(r, binary.LittleEndian, &extCount); err != nil {
		return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading extrinsic transform count")
	}
	for i := uint32(0); i < extCount; i++ {
		buf := make([]byte, extrinsicWireSize)
		if _, err := readFull(r, buf); err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: reading extrinsic transform")
		}
		ext, err := wire.DecodeExtrinsic4x4(buf)
		if err != nil {
			return slamtypes.CameraCalibration{}, errors.Wrap(err, "dataprovider: decoding extrinsic transform")
		}
		cal.ExtCameraTransform = append(cal.ExtCameraTransform, ext)
	}
	return cal, nil
}
