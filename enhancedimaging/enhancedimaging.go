// Package enhancedimaging reads the depth and semantic-segmentation
// streams, per §4.6. Both streams share the same two-step
// probe/fetch protocol: an empty-buffer call reports the byte count
// the caller must allocate, then a second call fills it.
package enhancedimaging

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// imageFrameHeaderWireSize mirrors wire's unexported imageFrameHeaderSize.
const imageFrameHeaderWireSize = 4 + 4 + 4 + 4 + 4 + 8

// EnhancedImaging reads depth and semantic segmentation frames.
type EnhancedImaging struct {
	transport func() (transport.Interface, error)
}

// New builds an EnhancedImaging accessor.
func New(transportFn func() (transport.Interface, error)) *EnhancedImaging {
	return &EnhancedImaging{transport: transportFn}
}

func (e *EnhancedImaging) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := e.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

// IsDepthCameraSupported reads capability from the device's basic info.
func (e *EnhancedImaging) IsDepthCameraSupported(ctx context.Context, timeout time.Duration) (bool, error) {
	resp, err := e.call(ctx, wire.OpDeviceBasicInfo, nil, timeout)
	if err != nil {
		return false, err
	}
	info, err := wire.DecodeDeviceBasicInfo(resp)
	if err != nil {
		return false, err
	}
	return info.SupportsDepthCamera(), nil
}

// IsSemanticSegmentationSupported reads capability from the device's
// basic info.
func (e *EnhancedImaging) IsSemanticSegmentationSupported(ctx context.Context, timeout time.Duration) (bool, error) {
	resp, err := e.call(ctx, wire.OpDeviceBasicInfo, nil, timeout)
	if err != nil {
		return false, err
	}
	info, err := wire.DecodeDeviceBasicInfo(resp)
	if err != nil {
		return false, err
	}
	return info.SupportsSemanticSegmentation(), nil
}

func decodeBoolResponse(resp []byte) (bool, error) {
	if len(resp) < 1 {
		return false, errors.New("enhancedimaging: short boolean response")
	}
	return resp[0] != 0, nil
}

// IsDepthCameraReady reports whether the depth stream currently has
// frames available.
func (e *EnhancedImaging) IsDepthCameraReady(ctx context.Context, timeout time.Duration) (bool, error) {
	resp, err := e.call(ctx, wire.OpIsDepthCameraReady, nil, timeout)
	if err != nil {
		return false, err
	}
	return decodeBoolResponse(resp)
}

// WaitDepthCameraNextFrame blocks until the depth stream produces a new
// frame or timeoutMs elapses.
func (e *EnhancedImaging) WaitDepthCameraNextFrame(ctx context.Context, timeoutMs int) (bool, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(timeoutMs))
	resp, err := e.call(ctx, wire.OpWaitDepthCameraNextFrame, payload, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		if sdkerrors.IsTimeout(err) {
			return false, nil
		}
		return false, err
	}
	return decodeBoolResponse(resp)
}

// IsSemanticSegmentationReady reports whether the segmentation stream
// currently has frames available.
func (e *EnhancedImaging) IsSemanticSegmentationReady(ctx context.Context, timeout time.Duration) (bool, error) {
	resp, err := e.call(ctx, wire.OpIsSemanticSegmentationReady, nil, timeout)
	if err != nil {
		return false, err
	}
	return decodeBoolResponse(resp)
}

// WaitSemanticSegmentationNextFrame blocks until the segmentation stream
// produces a new frame or timeoutMs elapses.
func (e *EnhancedImaging) WaitSemanticSegmentationNextFrame(ctx context.Context, timeoutMs int) (bool, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(timeoutMs))
	resp, err := e.call(ctx, wire.OpWaitSemanticSegmentationNextFrame, payload, time.Duration(timeoutMs)*time.Millisecond)
	if err != nil {
		if sdkerrors.IsTimeout(err) {
			return false, nil
		}
		return false, err
	}
	return decodeBoolResponse(resp)
}

func encodeProbeRequest(extra []byte, bufferSize uint32) []byte {
	buf := make([]byte, len(extra)+4)
	copy(buf, extra)
	binary.LittleEndian.PutUint32(buf[len(extra):], bufferSize)
	return buf
}

// peekFrame runs the two-step probe/fetch protocol shared by every
// frame-peeking operation in this package: an empty-buffer call learns
// the required byte count, then a second call fills a buffer of that
// size. A zero required size means the stream has no frame ready, and
// is reported to the caller as a nil frame rather than an error.
func (e *EnhancedImaging) peekFrame(ctx context.Context, op wire.OpCode, extra []byte, timeout time.Duration) (*slamtypes.ImageFrame, error) {
	probeResp, err := e.call(ctx, op, encodeProbeRequest(extra, 0), timeout)
	if err != nil {
		return nil, err
	}
	if len(probeResp) < imageFrameHeaderWireSize+4 {
		return nil, errors.New("enhancedimaging: short frame probe response")
	}
	requiredSize := binary.LittleEndian.Uint32(probeResp[imageFrameHeaderWireSize : imageFrameHeaderWireSize+4])
	if requiredSize == 0 {
		return nil, nil
	}

	fetchResp, err := e.call(ctx, op, encodeProbeRequest(extra, requiredSize), timeout)
	if err != nil {
		return nil, err
	}
	if len(fetchResp) < imageFrameHeaderWireSize+4 {
		return nil, errors.New("enhancedimaging: short frame fetch response")
	}
	header, err := wire.DecodeImageFrameHeader(fetchResp[:imageFrameHeaderWireSize])
	if err != nil {
		return nil, err
	}
	data := fetchResp[imageFrameHeaderWireSize+4:]
	if uint32(len(data)) > requiredSize {
		data = data[:requiredSize]
	}
	header.Bytes = append([]byte(nil), data...)
	return &header, nil
}

// PeekDepthCameraFrame peeks the depth stream for a depth map or
// organized point cloud frame. It returns a nil frame, not an error,
// when no frame is currently available.
func (e *EnhancedImaging) PeekDepthCameraFrame(ctx context.Context, kind slamtypes.DepthFrameKind, timeout time.Duration) (*slamtypes.ImageFrame, error) {
	extra := make([]byte, 4)
	binary.LittleEndian.PutUint32(extra, uint32(kind))
	return e.peekFrame(ctx, wire.OpPeekDepthCameraFrame, extra, timeout)
}

// PeekDepthCameraRelatedRectifiedImage peeks the rectified color image
// captured alongside the depth frame at timestampNs.
func (e *EnhancedImaging) PeekDepthCameraRelatedRectifiedImage(ctx context.Context, timestampNs int64, timeout time.Duration) (*slamtypes.ImageFrame, error) {
	extra := make([]byte, 8)
	binary.LittleEndian.PutUint64(extra, uint64(timestampNs))
	return e.peekFrame(ctx, wire.OpPeekDepthCameraRelatedRectifiedImage, extra, timeout)
}

// PeekSemanticSegmentationFrame peeks the segmentation stream; pixel
// bytes are per-pixel class IDs.
func (e *EnhancedImaging) PeekSemanticSegmentationFrame(ctx context.Context, timeout time.Duration) (*slamtypes.ImageFrame, error) {
	return e.peekFrame(ctx, wire.OpPeekSemanticSegmentationFrame, nil, timeout)
}

// DepthCameraConfig fetches the depth stream's capture parameters.
func (e *EnhancedImaging) DepthCameraConfig(ctx context.Context, timeout time.Duration) (slamtypes.DepthCameraConfig, error) {
	resp, err := e.call(ctx, wire.OpDepthCameraConfig, nil, timeout)
	if err != nil {
		return slamtypes.DepthCameraConfig{}, err
	}
	return wire.DecodeDepthCameraConfig(resp)
}

// SemanticSegmentationConfig fetches the deployed segmentation model's
// static configuration.
func (e *EnhancedImaging) SemanticSegmentationConfig(ctx context.Context, timeout time.Duration) (slamtypes.SemanticSegmentationConfig, error) {
	resp, err := e.call(ctx, wire.OpSemanticSegmentationConfig, nil, timeout)
	if err != nil {
		return slamtypes.SemanticSegmentationConfig{}, err
	}
	return decodeSemanticSegmentationConfig(resp)
}

func decodeSemanticSegmentationConfig(data []byte) (slamtypes.SemanticSegmentationConfig, error) {
	const fixedSize = 4 + 4 + 4 + 4 + 4 + 4 // modelType, classCount, inputW, inputH, outputW, outputH
	if len(data) < fixedSize+8 {
		return slamtypes.SemanticSegmentationConfig{}, errors.New("enhancedimaging: short segmentation config response")
	}
	modelType := int32(binary.LittleEndian.Uint32(data[0:4]))
	classCount := int32(binary.LittleEndian.Uint32(data[4:8]))
	inputW := int32(binary.LittleEndian.Uint32(data[8:12]))
	inputH := int32(binary.LittleEndian.Uint32(data[12:16]))
	outputW := int32(binary.LittleEndian.Uint32(data[16:20]))
	outputH := int32(binary.LittleEndian.Uint32(data[20:24]))
	rest := data[fixedSize:]
	nameLen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < nameLen+4 {
		return slamtypes.SemanticSegmentationConfig{}, errors.New("enhancedimaging: malformed segmentation config model name")
	}
	modelName := string(rest[:nameLen])
	rest = rest[nameLen:]
	versionLen := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	if uint32(len(rest)) < versionLen {
		return slamtypes.SemanticSegmentationConfig{}, errors.New("enhancedimaging: malformed segmentation config model version")
	}
	modelVersion := string(rest[:versionLen])
	return slamtypes.SemanticSegmentationConfig{
		ModelType:    slamtypes.SemanticSegmentationModelType(modelType),
		ClassCount:   int(classCount),
		ModelName:    modelName,
		ModelVersion: modelVersion,
		InputWidth:   int(inputW),
		InputHeight:  int(inputH),
		OutputWidth:  int(outputW),
		OutputHeight: int(outputH),
	}, nil
}

// SemanticSegmentationLabels fetches the deployed segmentation model's
// named label set.
func (e *EnhancedImaging) SemanticSegmentationLabels(ctx context.Context, timeout time.Duration) (slamtypes.SemanticSegmentationLabels, error) {
	resp, err := e.call(ctx, wire.OpSemanticSegmentationLabels, nil, timeout)
	if err != nil {
		return slamtypes.SemanticSegmentationLabels{}, err
	}
	return decodeSemanticSegmentationLabels(resp)
}

func decodeSemanticSegmentationLabels(data []byte) (slamtypes.SemanticSegmentationLabels, error) {
	if len(data) < 4 {
		return slamtypes.SemanticSegmentationLabels{}, errors.New("enhancedimaging: short segmentation labels response")
	}
	nameLen := binary.LittleEndian.Uint32(data[:4])
	rest := data[4:]
	if uint32(len(rest)) < nameLen+4 {
		return slamtypes.SemanticSegmentationLabels{}, errors.New("enhancedimaging: malformed segmentation label set name")
	}
	labelSetName := string(rest[:nameLen])
	rest = rest[nameLen:]
	count := binary.LittleEndian.Uint32(rest[:4])
	rest = rest[4:]
	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 4 {
			return slamtypes.SemanticSegmentationLabels{}, errors.New("enhancedimaging: truncated segmentation class name list")
		}
		l := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		if uint32(len(rest)) < l {
			return slamtypes.SemanticSegmentationLabels{}, errors.New("enhancedimaging: truncated segmentation class name")
		}
		names = append(names, string(rest[:l]))
		rest = rest[l:]
	}
	return slamtypes.SemanticSegmentationLabels{LabelSetName: labelSetName, ClassNames: names}, nil
}

// SemanticSegmentationLabelSetName fetches just the name of the
// deployed label set, without the full class list.
func (e *EnhancedImaging) SemanticSegmentationLabelSetName(ctx context.Context, timeout time.Duration) (string, error) {
	labels, err := e.SemanticSegmentationLabels(ctx, timeout)
	if err != nil {
		return "", err
	}
	return labels.LabelSetName, nil
}

// IsSemanticSegmentationAlternativeModel reports whether the device is
// currently running a non-default segmentation model.
func (e *EnhancedImaging) IsSemanticSegmentationAlternativeModel(ctx context.Context, timeout time.Duration) (bool, error) {
	resp, err := e.call(ctx, wire.OpIsSemanticSegmentationAltModel, nil, timeout)
	if err != nil {
		return false, err
	}
	return decodeBoolResponse(resp)
}

// CalcDepthCameraAlignedSegmentationMap projects a segmentation frame's
// class IDs into the depth camera's image plane.
func (e *EnhancedImaging) CalcDepthCameraAlignedSegmentationMap(ctx context.Context, segFrame slamtypes.ImageFrame, timeout time.Duration) ([]byte, int, int, error) {
	header := wire.EncodeImageFrameHeader(segFrame)
	payload := append(append([]byte{}, header...), segFrame.Bytes...)
	resp, err := e.call(ctx, wire.OpCalcDepthCameraAlignedSegmentationMap, payload, timeout)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(resp) < 8 {
		return nil, 0, 0, errors.New("enhancedimaging: short aligned segmentation map response")
	}
	width := int(binary.LittleEndian.Uint32(resp[:4]))
	height := int(binary.LittleEndian.Uint32(resp[4:8]))
	return resp[8:], width, height, nil
}
