package slamtypes

// CameraType distinguishes a mono from a stereo camera rig.
type CameraType int

// Camera rig types.
const (
	CameraMono CameraType = iota
	CameraStereo
)

// LensType enumerates the supported camera lens models.
type LensType int

// Supported lens types.
const (
	LensPinhole LensType = iota
	LensRectified
	LensKannalaBrandt
)

// ColorMode enumerates per-camera color encodings.
type ColorMode int

// Supported color modes.
const (
	ColorModeRGB ColorMode = iota
	ColorModeMono
)

// PerCameraCalibration is one camera's intrinsics/distortion/frame rate.
type PerCameraCalibration struct {
	LensType   LensType
	ColorMode  ColorMode
	Width      int
	Height     int
	FPS        float64
	Intrinsics [4]float64 // fx, fy, cx, cy
	Distortion []float64  // k1..k4 (at least 4 entries)
}

// Extrinsic4x4 is a row-major 4x4 rigid transform between two cameras.
type Extrinsic4x4 struct {
	T [16]float64
}

// LastRowIsIdentity reports whether the matrix's last row is (0,0,0,1)
// within tol, per the calibration-shape testable property in §8.
func (e Extrinsic4x4) LastRowIsIdentity(tol float64) bool {
	want := [4]float64{0, 0, 0, 1}
	for i, w := range want {
		if absF(e.T[12+i]-w) > tol {
			return false
		}
	}
	return true
}

// CameraCalibration is the full calibration set for up to four cameras.
type CameraCalibration struct {
	CameraType         CameraType
	Cameras            []PerCameraCalibration // up to 4
	ExtCameraTransform []Extrinsic4x4         // up to 4, camera-to-camera (e.g. T_c2_c1)
}

// TransformCalibration carries the fixed device-frame transforms.
type TransformCalibration struct {
	BaseToCamera PoseSE3
	CameraToIMU  PoseSE3
}

// SemanticSegmentationModelType tags the deployed segmentation model.
type SemanticSegmentationModelType int32

// SemanticSegmentationConfig describes the deployed segmentation model.
type SemanticSegmentationConfig struct {
	ModelType   SemanticSegmentationModelType
	ClassCount  int
	ModelName   string
	ModelVersion string
	InputWidth  int
	InputHeight int
	OutputWidth int
	OutputHeight int
}

// SemanticSegmentationLabels is a named label set (up to 256 classes).
type SemanticSegmentationLabels struct {
	LabelSetName string
	ClassNames   []string
}

// DepthCameraConfig describes the depth stream's capture parameters.
type DepthCameraConfig struct {
	FPS        float64
	FrameSkip  int
	ImageW     int
	ImageH     int
	BoundCamID int32
}
