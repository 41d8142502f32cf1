package slamtypes

import (
	"testing"

	"go.viam.com/test"
)

func TestDeviceBasicInfoSupportsQueriesArePureFunctionsOfBitmaps(t *testing.T) {
	for _, tc := range []struct {
		msg   string
		info  DeviceBasicInfo
		check func(DeviceBasicInfo) bool
		want  bool
	}{
		{msg: "depth camera bit set", info: DeviceBasicInfo{SensingFeatures: SensingFeatureStereoDenseDisparity}, check: DeviceBasicInfo.SupportsDepthCamera, want: true},
		{msg: "depth camera bit unset", info: DeviceBasicInfo{SensingFeatures: SensingFeatureSemanticSegmentation}, check: DeviceBasicInfo.SupportsDepthCamera, want: false},
		{msg: "segmentation bit set", info: DeviceBasicInfo{SensingFeatures: SensingFeatureSemanticSegmentation}, check: DeviceBasicInfo.SupportsSemanticSegmentation, want: true},
		{msg: "comap bit set", info: DeviceBasicInfo{SensingFeatures: SensingFeatureCoMap}, check: DeviceBasicInfo.SupportsComap, want: true},
		{msg: "lidar bit set", info: DeviceBasicInfo{HardwareFeatures: HardwareFeatureLidar}, check: DeviceBasicInfo.SupportsLidar, want: true},
		{msg: "lidar bit unset", info: DeviceBasicInfo{HardwareFeatures: HardwareFeatureIMU}, check: DeviceBasicInfo.SupportsLidar, want: false},
		{msg: "imu bit set", info: DeviceBasicInfo{HardwareFeatures: HardwareFeatureIMU}, check: DeviceBasicInfo.SupportsIMU, want: true},
		{msg: "stereo camera bit set", info: DeviceBasicInfo{HardwareFeatures: HardwareFeatureStereoCamera}, check: DeviceBasicInfo.SupportsStereoCamera, want: true},
		{msg: "vslam bit set", info: DeviceBasicInfo{SoftwareFeatures: SoftwareFeatureVSLAM}, check: DeviceBasicInfo.SupportsVSLAM, want: true},
		{msg: "preview stream bit set", info: DeviceBasicInfo{SoftwareFeatures: SoftwareFeatureCameraPreviewStream}, check: DeviceBasicInfo.SupportsCameraPreviewStream, want: true},
		{msg: "enhanced imaging bit set", info: DeviceBasicInfo{SoftwareFeatures: SoftwareFeatureEnhancedImaging}, check: DeviceBasicInfo.SupportsEnhancedImaging, want: true},
		{msg: "enhanced imaging bit unset", info: DeviceBasicInfo{SoftwareFeatures: SoftwareFeatureVSLAM}, check: DeviceBasicInfo.SupportsEnhancedImaging, want: false},
		{msg: "no bits set at all", info: DeviceBasicInfo{}, check: DeviceBasicInfo.SupportsLidar, want: false},
	} {
		t.Run(tc.msg, func(t *testing.T) {
			test.That(t, tc.check(tc.info), test.ShouldEqual, tc.want)
			// Capability queries must not depend on any field besides the
			// three bitmaps (invariant 7): unrelated fields flip freely.
			tc.info.ModelNumber = "unrelated"
			tc.info.UptimeSeconds = 12345
			test.That(t, tc.check(tc.info), test.ShouldEqual, tc.want)
		})
	}
}
