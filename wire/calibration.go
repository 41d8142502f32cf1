package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const extrinsic4x4Size = 16 * 8 // row-major 4x4 float64 matrix

// DecodeExtrinsic4x4 decodes one fixed row-major 4x4 extrinsic transform
// record, the camera-to-camera analogue of DecodePoseSE3.
func DecodeExtrinsic4x4(data []byte) (slamtypes.Extrinsic4x4, error) {
	if len(data) < extrinsic4x4Size {
		return slamtypes.Extrinsic4x4{}, errors.Errorf("wire: extrinsic 4x4 record too short: got %d want %d", len(data), extrinsic4x4Size)
	}
	var t [16]float64
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &t); err != nil {
		return slamtypes.Extrinsic4x4{}, errors.Wrap(err, "wire: reading extrinsic 4x4")
	}
	return slamtypes.Extrinsic4x4{T: t}, nil
}

// EncodeExtrinsic4x4 is the inverse of DecodeExtrinsic4x4.
func EncodeExtrinsic4x4(e slamtypes.Extrinsic4x4) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(extrinsic4x4Size)
	_ = binary.Write(buf, binary.LittleEndian, &e.T)
	return buf.Bytes()
}
