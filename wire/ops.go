package wire

import "encoding/binary"

// OpCode identifies which device operation a request frame's body
// carries. It is the first two bytes of every KindRequest body,
// followed by the operation's own payload encoding.
type OpCode uint16

// Known operation codes, grouped by owning component.
const (
	OpDiscover OpCode = iota + 1

	OpEnableMapDataSyncing
	OpEnableRawDataSubscription
	OpIsRawDataSubscribed
	OpSetEnhancedImagingSubscription
	OpIsEnhancedImagingSubscribed
	OpRequireMappingMode
	OpRequirePureLocalizationMode
	OpRequireMapReset
	OpRequireRelocalization
	OpCancelRelocalization
	OpRequireLocalRelocalization
	OpRequireLocalMapMerge
	OpGetLastRelocalizationStatus
	OpRequireSemanticSegmentationAltModel
	OpResyncMapData
	OpSetLowRateMode
	OpSetLoopClosure
	OpForceMapGlobalOptimization
	OpSendCustomCommand

	OpCurrentPose
	OpPeekHistoryPose
	OpCameraPreview
	OpTrackingFrame
	OpRecentLidarScan
	OpPeekIMUData
	OpGlobalMappingInfo
	OpMapDataVisit
	OpDeviceBasicInfo
	OpDeviceStatus
	OpRelocalizationStatus
	OpMappingFlags
	OpIMUInfo
	OpAllMapInfo
	OpCameraCalibration
	OpTransformCalibration

	OpStartDownloadSession
	OpStartUploadSession
	OpIsSessionActive
	OpQuerySessionStatus
	OpAbortSession

	OpStartPreviewBackgroundUpdate
	OpStopPreviewBackgroundUpdate
	OpRequirePreviewRedraw
	OpGetAndResetPreviewDirtyRect
	OpSetPreviewAutoFloorDetection
	OpGetPreviewMap
	OpGenerateFullmapOnDemand
	OpReadCellData
	OpGetSupportedGridResolutionRange
	OpGetSupportedMaxGridCellCount

	OpDetectionHistogram
	OpAllDetectionInfo
	OpCurrentDetectionDesc

	OpIsDepthCameraReady
	OpWaitDepthCameraNextFrame
	OpPeekDepthCameraFrame
	OpPeekDepthCameraRelatedRectifiedImage
	OpDepthCameraConfig
	OpIsSemanticSegmentationReady
	OpWaitSemanticSegmentationNextFrame
	OpPeekSemanticSegmentationFrame
	OpSemanticSegmentationConfig
	OpSemanticSegmentationLabels
	OpIsSemanticSegmentationAltModel
	OpCalcDepthCameraAlignedSegmentationMap

	OpStartRecording
	OpStopRecording
	OpIsRecording
	OpSetOptionString
	OpSetOptionInt
	OpSetOptionFloat
	OpSetOptionBool
	OpResetOptions
	OpQueryStatusInt
	OpQueryStatusFloat
)

// EncodeOpRequest prefixes payload with op as a 2-byte little-endian
// header, the convention every component package uses to multiplex
// its calls over the transport's generic request/response frames.
func EncodeOpRequest(op OpCode, payload []byte) []byte {
	buf := make([]byte, 2+len(payload))
	binary.LittleEndian.PutUint16(buf[:2], uint16(op))
	copy(buf[2:], payload)
	return buf
}

// DecodeOpResponse splits a response body into its status code and
// payload, per the transport integer-code error convention (§7):
// the first 4 bytes are a little-endian int32 code, 0 meaning success.
func DecodeOpResponse(body []byte) (code int32, payload []byte) {
	if len(body) < 4 {
		return 0, body
	}
	code = int32(binary.LittleEndian.Uint32(body[:4]))
	return code, body[4:]
}

// EncodeOpResponse is the inverse of DecodeOpResponse.
func EncodeOpResponse(code int32, payload []byte) []byte {
	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(code))
	copy(buf[4:], payload)
	return buf
}
