package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	floorDescriptorSize   = 4 + 4 /*pad*/ + 8 + 8
	floorHistogramInfoSize = 8 + 8 + 4 + 4 /*pad*/
)

// DecodeFloorDescriptor decodes one detected floor level.
func DecodeFloorDescriptor(data []byte) (slamtypes.FloorDescriptor, error) {
	if len(data) < floorDescriptorSize {
		return slamtypes.FloorDescriptor{}, errors.Errorf("wire: floor descriptor too short: got %d want %d", len(data), floorDescriptorSize)
	}
	r := bytes.NewReader(data)
	var floorID int32
	if err := binary.Read(r, binary.LittleEndian, &floorID); err != nil {
		return slamtypes.FloorDescriptor{}, errors.Wrap(err, "wire: reading floor id")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.FloorDescriptor{}, errors.Wrap(err, "wire: skipping padding")
	}
	var typicalHeight, confidence float64
	if err := binary.Read(r, binary.LittleEndian, &typicalHeight); err != nil {
		return slamtypes.FloorDescriptor{}, errors.Wrap(err, "wire: reading typical height")
	}
	if err := binary.Read(r, binary.LittleEndian, &confidence); err != nil {
		return slamtypes.FloorDescriptor{}, errors.Wrap(err, "wire: reading confidence")
	}
	return slamtypes.FloorDescriptor{FloorID: floorID, TypicalHeightM: typicalHeight, Confidence: confidence}, nil
}

// DecodeFloorHistogramInfo decodes a floor height histogram's binning.
func DecodeFloorHistogramInfo(data []byte) (slamtypes.FloorHistogramInfo, error) {
	if len(data) < floorHistogramInfoSize {
		return slamtypes.FloorHistogramInfo{}, errors.Errorf("wire: floor histogram info too short: got %d want %d", len(data), floorHistogramInfoSize)
	}
	r := bytes.NewReader(data)
	var binWidth, binHeightStart float64
	if err := binary.Read(r, binary.LittleEndian, &binWidth); err != nil {
		return slamtypes.FloorHistogramInfo{}, errors.Wrap(err, "wire: reading bin width")
	}
	if err := binary.Read(r, binary.LittleEndian, &binHeightStart); err != nil {
		return slamtypes.FloorHistogramInfo{}, errors.Wrap(err, "wire: reading bin height start")
	}
	var binTotalCount int32
	if err := binary.Read(r, binary.LittleEndian, &binTotalCount); err != nil {
		return slamtypes.FloorHistogramInfo{}, errors.Wrap(err, "wire: reading bin total count")
	}
	return slamtypes.FloorHistogramInfo{
		BinWidthM:       binWidth,
		BinHeightStartM: binHeightStart,
		BinTotalCount:   int(binTotalCount),
	}, nil
}

// DecodeFloorHistogramValues decodes the per-bin float32 sample counts
// that follow a FloorHistogramInfo header on the wire.
func DecodeFloorHistogramValues(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("wire: floor histogram values length %d not a multiple of 4", len(data))
	}
	count := len(data) / 4
	out := make([]float32, count)
	for i := 0; i < count; i++ {
		out[i] = decodeFloat32LE(data[i*4 : i*4+4])
	}
	return out, nil
}
