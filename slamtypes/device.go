package slamtypes

import "time"

// Protocol identifies the wire-level transport a connection option uses.
type Protocol string

// Supported protocols. TCP on DefaultPort is the default per §6.
const (
	ProtocolTCP Protocol = "tcp"
)

// DefaultPort is the device's default TCP listening port.
const DefaultPort = 7447

// ConnectionOption is one way to reach a discovered device.
type ConnectionOption struct {
	Protocol Protocol
	Address  string
	Port     uint16
}

// DeviceEndpoint is a discovered device: a human name plus one or more
// connection options. Immutable after discovery, per §3.
type DeviceEndpoint struct {
	Name    string
	Options []ConnectionOption
}

// Feature bitmaps, mirrored from the device's three capability bitmaps.
// Bit assignments are device-defined; only the bits the SDK's
// supports_* queries need are named here.
const (
	HardwareFeatureStereoCamera uint32 = 1 << iota
	HardwareFeatureDepthDenseDisparity
	HardwareFeatureLidar
	HardwareFeatureIMU
)

const (
	SensingFeatureStereoDenseDisparity uint32 = 1 << iota
	SensingFeatureSemanticSegmentation
	SensingFeatureCoMap
)

const (
	SoftwareFeatureVSLAM uint32 = 1 << iota
	SoftwareFeatureCameraPreviewStream
	SoftwareFeatureEnhancedImaging
)

// DeviceBasicInfo carries model/firmware identity and the three
// capability bitmaps. Every supports_* query is a pure function of
// these bitmaps, per invariant 7 (§3).
type DeviceBasicInfo struct {
	ModelNumber      string
	FirmwareVersion  string
	SerialNumber     [16]byte
	UptimeSeconds    uint64
	HardwareFeatures uint32
	SensingFeatures  uint32
	SoftwareFeatures uint32
	CapturedAt       time.Time
}

// SupportsDepthCamera reports stereo dense-disparity support.
func (d DeviceBasicInfo) SupportsDepthCamera() bool {
	return d.SensingFeatures&SensingFeatureStereoDenseDisparity != 0
}

// SupportsSemanticSegmentation reports segmentation model support.
func (d DeviceBasicInfo) SupportsSemanticSegmentation() bool {
	return d.SensingFeatures&SensingFeatureSemanticSegmentation != 0
}

// SupportsComap reports 2D LiDAR occupancy-grid mapping support.
func (d DeviceBasicInfo) SupportsComap() bool {
	return d.SensingFeatures&SensingFeatureCoMap != 0
}

// SupportsLidar reports LiDAR hardware presence.
func (d DeviceBasicInfo) SupportsLidar() bool {
	return d.HardwareFeatures&HardwareFeatureLidar != 0
}

// SupportsIMU reports IMU hardware presence.
func (d DeviceBasicInfo) SupportsIMU() bool {
	return d.HardwareFeatures&HardwareFeatureIMU != 0
}

// SupportsStereoCamera reports stereo camera hardware presence.
func (d DeviceBasicInfo) SupportsStereoCamera() bool {
	return d.HardwareFeatures&HardwareFeatureStereoCamera != 0
}

// SupportsVSLAM reports visual SLAM software support.
func (d DeviceBasicInfo) SupportsVSLAM() bool {
	return d.SoftwareFeatures&SoftwareFeatureVSLAM != 0
}

// SupportsCameraPreviewStream reports stereo preview stream support.
func (d DeviceBasicInfo) SupportsCameraPreviewStream() bool {
	return d.SoftwareFeatures&SoftwareFeatureCameraPreviewStream != 0
}

// SupportsEnhancedImaging reports depth/segmentation stream support.
func (d DeviceBasicInfo) SupportsEnhancedImaging() bool {
	return d.SoftwareFeatures&SoftwareFeatureEnhancedImaging != 0
}

// DeviceStatus is an opaque device-reported health/mode status code.
type DeviceStatus int32

// RelocalizationStatus enumerates the outcome of a relocalization
// request, per §4.1.
type RelocalizationStatus int

// Relocalization outcomes.
const (
	RelocalizationNone RelocalizationStatus = iota
	RelocalizationInProgress
	RelocalizationSucceeded
	RelocalizationFailed
)

// EnhancedImagingType distinguishes depth from segmentation streams.
type EnhancedImagingType int

// Enhanced imaging stream kinds.
const (
	EnhancedImagingDepth EnhancedImagingType = iota
	EnhancedImagingSegmentation
)

// DepthFrameKind selects between a depth map and an organized point
// cloud when peeking the depth stream, per §4.6.
type DepthFrameKind int

// Depth frame kinds.
const (
	DepthFrameDepthMap DepthFrameKind = iota
	DepthFramePoint3D
)
