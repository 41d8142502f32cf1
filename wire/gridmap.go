package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	gridDimensionSize = 4*8 + 8 + 4 + 4 // Rect(x,y,w,h) + resolutionM + cellW + cellH
	fetchInfoSize     = 2*8 + 4 + 4     // realX, realY, cellW, cellH
)

// DecodeGridDimension decodes a grid map's bounding rect, resolution,
// and cell dimensions.
func DecodeGridDimension(data []byte) (slamtypes.Rect, float64, int, int, error) {
	if len(data) < gridDimensionSize {
		return slamtypes.Rect{}, 0, 0, 0, errors.Errorf("wire: grid dimension too short: got %d want %d", len(data), gridDimensionSize)
	}
	r := bytes.NewReader(data)
	var rectFields [4]float64
	if err := binary.Read(r, binary.LittleEndian, &rectFields); err != nil {
		return slamtypes.Rect{}, 0, 0, 0, errors.Wrap(err, "wire: reading grid rect")
	}
	var resolution float64
	if err := binary.Read(r, binary.LittleEndian, &resolution); err != nil {
		return slamtypes.Rect{}, 0, 0, 0, errors.Wrap(err, "wire: reading grid resolution")
	}
	var cellW, cellH int32
	if err := binary.Read(r, binary.LittleEndian, &cellW); err != nil {
		return slamtypes.Rect{}, 0, 0, 0, errors.Wrap(err, "wire: reading grid cell width")
	}
	if err := binary.Read(r, binary.LittleEndian, &cellH); err != nil {
		return slamtypes.Rect{}, 0, 0, 0, errors.Wrap(err, "wire: reading grid cell height")
	}
	rect := slamtypes.Rect{X: rectFields[0], Y: rectFields[1], W: rectFields[2], H: rectFields[3]}
	return rect, resolution, int(cellW), int(cellH), nil
}

// EncodeGridDimension is the inverse of DecodeGridDimension.
func EncodeGridDimension(rect slamtypes.Rect, resolutionM float64, cellW, cellH int) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(gridDimensionSize)
	rectFields := [4]float64{rect.X, rect.Y, rect.W, rect.H}
	_ = binary.Write(buf, binary.LittleEndian, &rectFields)
	_ = binary.Write(buf, binary.LittleEndian, resolutionM)
	_ = binary.Write(buf, binary.LittleEndian, int32(cellW))
	_ = binary.Write(buf, binary.LittleEndian, int32(cellH))
	return buf.Bytes()
}

// DecodeFetchInfo decodes the result of a read_cell_data call: the
// real-world origin of the fetched window and the cell dimensions
// actually filled.
func DecodeFetchInfo(data []byte) (slamtypes.FetchInfo, error) {
	if len(data) < fetchInfoSize {
		return slamtypes.FetchInfo{}, errors.Errorf("wire: fetch info too short: got %d want %d", len(data), fetchInfoSize)
	}
	r := bytes.NewReader(data)
	var realX, realY float64
	if err := binary.Read(r, binary.LittleEndian, &realX); err != nil {
		return slamtypes.FetchInfo{}, errors.Wrap(err, "wire: reading fetch info real x")
	}
	if err := binary.Read(r, binary.LittleEndian, &realY); err != nil {
		return slamtypes.FetchInfo{}, errors.Wrap(err, "wire: reading fetch info real y")
	}
	var cellW, cellH int32
	if err := binary.Read(r, binary.LittleEndian, &cellW); err != nil {
		return slamtypes.FetchInfo{}, errors.Wrap(err, "wire: reading fetch info cell width")
	}
	if err := binary.Read(r, binary.LittleEndian, &cellH); err != nil {
		return slamtypes.FetchInfo{}, errors.Wrap(err, "wire: reading fetch info cell height")
	}
	return slamtypes.FetchInfo{RealX: realX, RealY: realY, CellW: int(cellW), CellH: int(cellH)}, nil
}
