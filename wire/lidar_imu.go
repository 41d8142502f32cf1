package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	lidarScanHeaderSize = 8 + 4 + 4 + 4 + 4 /*pad*/ + poseSE3Size + 4 + 4 /*pad*/
	lidarPointSize      = 4 + 4 + 1 + 3 /*pad*/
	imuSampleSize       = 8 + 4 + 4 /*pad*/ + 3*8 + 3*8
)

// DecodeLidarScanHeader decodes a LiDAR scan's fixed header, returning
// the scan (without Points populated) and the point count the caller
// uses to read the point array that follows on the wire.
func DecodeLidarScanHeader(data []byte) (slamtypes.LidarScan, int, error) {
	if len(data) < lidarScanHeaderSize {
		return slamtypes.LidarScan{}, 0, errors.Errorf("wire: lidar scan header too short: got %d want %d", len(data), lidarScanHeaderSize)
	}
	r := bytes.NewReader(data)
	var timestampNs int64
	if err := binary.Read(r, binary.LittleEndian, &timestampNs); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading lidar timestamp")
	}
	var layerID int32
	if err := binary.Read(r, binary.LittleEndian, &layerID); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading layer id")
	}
	var boundKeyframeID uint32
	if err := binary.Read(r, binary.LittleEndian, &boundKeyframeID); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading bound keyframe id")
	}
	var deltaYaw float32
	if err := binary.Read(r, binary.LittleEndian, &deltaYaw); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading delta yaw")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: skipping padding")
	}
	poseBytes := make([]byte, poseSE3Size)
	if _, err := io.ReadFull(r, poseBytes); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading capture pose")
	}
	pose, err := DecodePoseSE3(poseBytes)
	if err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: decoding capture pose")
	}
	var pointCount uint32
	if err := binary.Read(r, binary.LittleEndian, &pointCount); err != nil {
		return slamtypes.LidarScan{}, 0, errors.Wrap(err, "wire: reading point count")
	}

	return slamtypes.LidarScan{
		TimestampNs:     timestampNs,
		LayerID:         layerID,
		BoundKeyframeID: boundKeyframeID,
		DeltaYaw:        deltaYaw,
		CapturePose:     pose,
	}, int(pointCount), nil
}

// DecodeLidarPoints decodes a flat array of LiDAR point records.
func DecodeLidarPoints(data []byte) ([]slamtypes.LidarPoint, error) {
	if len(data)%lidarPointSize != 0 {
		return nil, errors.Errorf("wire: lidar point array length %d not a multiple of %d", len(data), lidarPointSize)
	}
	count := len(data) / lidarPointSize
	out := make([]slamtypes.LidarPoint, count)
	for i := 0; i < count; i++ {
		entry := data[i*lidarPointSize : (i+1)*lidarPointSize]
		out[i] = slamtypes.LidarPoint{
			DistanceM: decodeFloat32LE(entry[0:4]),
			AngleRad:  decodeFloat32LE(entry[4:8]),
			Quality:   entry[8],
		}
	}
	return out, nil
}

// EncodeLidarPoints is the inverse of DecodeLidarPoints.
func EncodeLidarPoints(points []slamtypes.LidarPoint) []byte {
	buf := make([]byte, len(points)*lidarPointSize)
	for i, p := range points {
		entry := buf[i*lidarPointSize : (i+1)*lidarPointSize]
		binary.LittleEndian.PutUint32(entry[0:4], float32bits(p.DistanceM))
		binary.LittleEndian.PutUint32(entry[4:8], float32bits(p.AngleRad))
		entry[8] = p.Quality
	}
	return buf
}

// DecodeIMUSample decodes one inertial measurement sample.
func DecodeIMUSample(data []byte) (slamtypes.IMUSample, error) {
	if len(data) < imuSampleSize {
		return slamtypes.IMUSample{}, errors.Errorf("wire: imu sample too short: got %d want %d", len(data), imuSampleSize)
	}
	r := bytes.NewReader(data)
	var timestampNs int64
	if err := binary.Read(r, binary.LittleEndian, &timestampNs); err != nil {
		return slamtypes.IMUSample{}, errors.Wrap(err, "wire: reading imu timestamp")
	}
	var imuID int32
	if err := binary.Read(r, binary.LittleEndian, &imuID); err != nil {
		return slamtypes.IMUSample{}, errors.Wrap(err, "wire: reading imu id")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.IMUSample{}, errors.Wrap(err, "wire: skipping padding")
	}
	var acc, gyro [3]float64
	if err := binary.Read(r, binary.LittleEndian, &acc); err != nil {
		return slamtypes.IMUSample{}, errors.Wrap(err, "wire: reading accelerometer")
	}
	if err := binary.Read(r, binary.LittleEndian, &gyro); err != nil {
		return slamtypes.IMUSample{}, errors.Wrap(err, "wire: reading gyroscope")
	}
	return slamtypes.IMUSample{
		TimestampNs: timestampNs,
		IMUID:       imuID,
		Acc:         acc,
		Gyro:        gyro,
	}, nil
}

// EncodeIMUSample is the inverse of DecodeIMUSample.
func EncodeIMUSample(s slamtypes.IMUSample) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(imuSampleSize)
	_ = binary.Write(buf, binary.LittleEndian, s.TimestampNs)
	_ = binary.Write(buf, binary.LittleEndian, s.IMUID)
	buf.Write(make([]byte, 4))
	_ = binary.Write(buf, binary.LittleEndian, s.Acc)
	_ = binary.Write(buf, binary.LittleEndian, s.Gyro)
	return buf.Bytes()
}
