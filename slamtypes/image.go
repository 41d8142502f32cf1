package slamtypes

import (
	"math"

	"github.com/pkg/errors"
	"go.viam.com/rdk/pointcloud"
)

// PixelFormat enumerates the pixel encodings an ImageFrame can carry.
type PixelFormat int

// Supported pixel formats.
const (
	PixelFormatGrayscale8 PixelFormat = iota
	PixelFormatRGB8
	PixelFormatRGBA8
	PixelFormatDepthFloat32
	PixelFormatPoint3DFloat32
)

// ImageFrame is a single timestamped raster, in one of the pixel formats
// above. Bytes are an owned copy; the Session's internal buffers are
// never aliased through this type (see the ownership rules in §3).
type ImageFrame struct {
	Width       int
	Height      int
	Stride      int
	PixelFormat PixelFormat
	TimestampNs int64
	Bytes       []byte
}

// bytesPerPixel returns the element size for formats with a fixed
// per-pixel width; DepthFloat32 and Point3DFloat32 are both float32-based.
func (f ImageFrame) bytesPerPixel() int {
	switch f.PixelFormat {
	case PixelFormatGrayscale8:
		return 1
	case PixelFormatRGB8:
		return 3
	case PixelFormatRGBA8:
		return 4
	case PixelFormatDepthFloat32:
		return 4
	case PixelFormatPoint3DFloat32:
		return 12
	default:
		return 0
	}
}

// DepthAt returns the depth in meters at (x, y) for a DepthFloat32 frame.
// An invalid reading (0 or non-finite) is reported as ok=false, per the
// DepthFloat32 derivation rule in §3.
func (f ImageFrame) DepthAt(x, y int) (depthMeters float32, ok bool) {
	if f.PixelFormat != PixelFormatDepthFloat32 {
		return 0, false
	}
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return 0, false
	}
	off := y*f.Stride + x*4
	if off+4 > len(f.Bytes) {
		return 0, false
	}
	v := decodeFloat32LE(f.Bytes[off : off+4])
	if v == 0 || math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0, false
	}
	return v, true
}

// PointAt returns the packed (x, y, z) triple at pixel position (px, py)
// for a Point3DFloat32 frame, matching the "one triple per pixel
// position (organized cloud)" derivation in §3.
func (f ImageFrame) PointAt(px, py int) (x, y, z float32, ok bool) {
	if f.PixelFormat != PixelFormatPoint3DFloat32 {
		return 0, 0, 0, false
	}
	if px < 0 || py < 0 || px >= f.Width || py >= f.Height {
		return 0, 0, 0, false
	}
	off := py*f.Stride + px*12
	if off+12 > len(f.Bytes) {
		return 0, 0, 0, false
	}
	return decodeFloat32LE(f.Bytes[off : off+4]),
		decodeFloat32LE(f.Bytes[off+4 : off+8]),
		decodeFloat32LE(f.Bytes[off+8 : off+12]), true
}

// ToPointCloud converts a Point3DFloat32 organized frame into an rdk
// point cloud, reusing the corpus's point-cloud library (sensors.go,
// postprocess.go) rather than a bespoke container.
func (f ImageFrame) ToPointCloud() (pointcloud.PointCloud, error) {
	if f.PixelFormat != PixelFormatPoint3DFloat32 {
		return nil, errors.New("slamtypes: frame is not Point3DFloat32")
	}
	pc := pointcloud.NewWithPrealloc(f.Width * f.Height)
	for py := 0; py < f.Height; py++ {
		for px := 0; px < f.Width; px++ {
			x, y, z, ok := f.PointAt(px, py)
			if !ok || (x == 0 && y == 0 && z == 0) {
				continue
			}
			if err := pc.Set(pointcloud.NewVector(float64(x), float64(y), float64(z)), nil); err != nil {
				return nil, errors.Wrap(err, "building point cloud from frame")
			}
		}
	}
	return pc, nil
}

func decodeFloat32LE(b []byte) float32 {
	bits := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	return math.Float32frombits(bits)
}

// StereoImagePair is a timestamped pair of images sharing one capture
// time, per invariant "left.timestamp_ns == right.timestamp_ns" (§8).
type StereoImagePair struct {
	Left        ImageFrame
	Right       ImageFrame
	TimestampNs int64
	IsStereo    bool
}

// Keypoint is a tracked 2D feature location within a TrackingFrame.
type Keypoint struct {
	X, Y    float32
	Matched bool
}

// TrackingFrame is a freshest-snapshot of the tracking pipeline: stereo
// imagery, per-eye keypoints, the accompanying pose, and an opaque
// device-defined tracking status (see the open question in §9).
type TrackingFrame struct {
	LeftImage      ImageFrame
	RightImage     ImageFrame
	LeftKeypoints  []Keypoint
	RightKeypoints []Keypoint
	Pose           PoseSE3
	TrackingStatus int32
	TimestampNs    int64
}
