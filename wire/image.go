package wire

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	imageFrameHeaderSize = 4 + 4 + 4 + 4 + 4 /*pad*/ + 8 // width,height,stride,format,pad,timestampNs
	stereoDescriptorSize = imageFrameHeaderSize*2 + 8 + 1 + 7 /*pad*/
	keypointSize         = 4 + 4 + 1 + 3 /*pad*/
	trackingInfoSize     = poseSE3Size + 4 + 4 /*pad*/ + 8 + 4 + 4 // pose, status, pad, timestampNs, leftKPCount, rightKPCount
)

// DecodeImageFrameHeader decodes an image frame's fixed header. In a
// frame response the header is followed by a 4-byte device-reported data
// size and then that many raw bytes, per the two-step buffer protocol (§9).
func DecodeImageFrameHeader(data []byte) (slamtypes.ImageFrame, error) {
	if len(data) < imageFrameHeaderSize {
		return slamtypes.ImageFrame{}, errors.Errorf("wire: image frame header too short: got %d want %d", len(data), imageFrameHeaderSize)
	}
	r := bytes.NewReader(data)
	var width, height, stride, format int32
	for _, f := range []*int32{&width, &height, &stride, &format} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return slamtypes.ImageFrame{}, errors.Wrap(err, "wire: reading image frame header field")
		}
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.ImageFrame{}, errors.Wrap(err, "wire: skipping padding")
	}
	var timestampNs int64
	if err := binary.Read(r, binary.LittleEndian, &timestampNs); err != nil {
		return slamtypes.ImageFrame{}, errors.Wrap(err, "wire: reading image frame timestamp")
	}
	return slamtypes.ImageFrame{
		Width:       int(width),
		Height:      int(height),
		Stride:      int(stride),
		PixelFormat: slamtypes.PixelFormat(format),
		TimestampNs: timestampNs,
	}, nil
}

// EncodeImageFrameHeader is the inverse of DecodeImageFrameHeader; it
// does not include the raw pixel buffer.
func EncodeImageFrameHeader(f slamtypes.ImageFrame) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(imageFrameHeaderSize)
	_ = binary.Write(buf, binary.LittleEndian, int32(f.Width))
	_ = binary.Write(buf, binary.LittleEndian, int32(f.Height))
	_ = binary.Write(buf, binary.LittleEndian, int32(f.Stride))
	_ = binary.Write(buf, binary.LittleEndian, int32(f.PixelFormat))
	buf.Write(make([]byte, 4))
	_ = binary.Write(buf, binary.LittleEndian, f.TimestampNs)
	return buf.Bytes()
}

// DecodeStereoDescriptor decodes a stereo image-pair descriptor: left and
// right frame headers, a pair timestamp, and the stereo flag. Raw pixel
// buffers follow out of band, per the two-step protocol.
func DecodeStereoDescriptor(data []byte) (slamtypes.StereoImagePair, error) {
	if len(data) < stereoDescriptorSize {
		return slamtypes.StereoImagePair{}, errors.Errorf("wire: stereo descriptor too short: got %d want %d", len(data), stereoDescriptorSize)
	}
	left, err := DecodeImageFrameHeader(data[:imageFrameHeaderSize])
	if err != nil {
		return slamtypes.StereoImagePair{}, errors.Wrap(err, "wire: decoding left frame header")
	}
	right, err := DecodeImageFrameHeader(data[imageFrameHeaderSize : 2*imageFrameHeaderSize])
	if err != nil {
		return slamtypes.StereoImagePair{}, errors.Wrap(err, "wire: decoding right frame header")
	}
	tail := data[2*imageFrameHeaderSize:]
	timestampNs := int64(binary.LittleEndian.Uint64(tail[:8]))
	isStereo := tail[8] != 0
	return slamtypes.StereoImagePair{
		Left:        left,
		Right:       right,
		TimestampNs: timestampNs,
		IsStereo:    isStereo,
	}, nil
}

// DecodeKeypoints decodes a flat array of keypoint records.
func DecodeKeypoints(data []byte) ([]slamtypes.Keypoint, error) {
	if len(data)%keypointSize != 0 {
		return nil, errors.Errorf("wire: keypoint array length %d not a multiple of %d", len(data), keypointSize)
	}
	count := len(data) / keypointSize
	out := make([]slamtypes.Keypoint, count)
	for i := 0; i < count; i++ {
		entry := data[i*keypointSize : (i+1)*keypointSize]
		out[i] = slamtypes.Keypoint{
			X:       decodeFloat32LE(entry[0:4]),
			Y:       decodeFloat32LE(entry[4:8]),
			Matched: entry[8] != 0,
		}
	}
	return out, nil
}

// EncodeKeypoints is the inverse of DecodeKeypoints.
func EncodeKeypoints(keypoints []slamtypes.Keypoint) []byte {
	buf := make([]byte, len(keypoints)*keypointSize)
	for i, kp := range keypoints {
		entry := buf[i*keypointSize : (i+1)*keypointSize]
		binary.LittleEndian.PutUint32(entry[0:4], float32bits(kp.X))
		binary.LittleEndian.PutUint32(entry[4:8], float32bits(kp.Y))
		if kp.Matched {
			entry[8] = 1
		}
	}
	return buf
}

// DecodeTrackingInfo decodes the fixed portion of a tracking frame
// record: pose, status, timestamp, and the keypoint counts the caller
// uses to size the two keypoint arrays that follow on the wire.
func DecodeTrackingInfo(data []byte) (slamtypes.TrackingFrame, int, int, error) {
	if len(data) < trackingInfoSize {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Errorf("wire: tracking info too short: got %d want %d", len(data), trackingInfoSize)
	}
	pose, err := DecodePoseSE3(data[:poseSE3Size])
	if err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: decoding tracking pose")
	}
	r := bytes.NewReader(data[poseSE3Size:])
	var status int32
	if err := binary.Read(r, binary.LittleEndian, &status); err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: reading tracking status")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: skipping padding")
	}
	var timestampNs int64
	if err := binary.Read(r, binary.LittleEndian, &timestampNs); err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: reading tracking timestamp")
	}
	var leftCount, rightCount uint32
	if err := binary.Read(r, binary.LittleEndian, &leftCount); err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: reading left keypoint count")
	}
	if err := binary.Read(r, binary.LittleEndian, &rightCount); err != nil {
		return slamtypes.TrackingFrame{}, 0, 0, errors.Wrap(err, "wire: reading right keypoint count")
	}
	return slamtypes.TrackingFrame{
		Pose:           pose,
		TrackingStatus: status,
		TimestampNs:    timestampNs,
	}, int(leftCount), int(rightCount), nil
}

func decodeFloat32LE(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func float32bits(f float32) uint32 {
	return math.Float32bits(f)
}
