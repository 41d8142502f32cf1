package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const depthCameraConfigSize = 8 + 4 + 4 + 4 + 4

// DecodeDepthCameraConfig decodes the depth camera's stream configuration.
func DecodeDepthCameraConfig(data []byte) (slamtypes.DepthCameraConfig, error) {
	if len(data) < depthCameraConfigSize {
		return slamtypes.DepthCameraConfig{}, errors.Errorf("wire: depth camera config too short: got %d want %d", len(data), depthCameraConfigSize)
	}
	r := bytes.NewReader(data)
	var fps float64
	if err := binary.Read(r, binary.LittleEndian, &fps); err != nil {
		return slamtypes.DepthCameraConfig{}, errors.Wrap(err, "wire: reading depth camera fps")
	}
	var frameSkip, imageW, imageH, boundCamID int32
	for _, f := range []*int32{&frameSkip, &imageW, &imageH, &boundCamID} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return slamtypes.DepthCameraConfig{}, errors.Wrap(err, "wire: reading depth camera config field")
		}
	}
	return slamtypes.DepthCameraConfig{
		FPS: fps, FrameSkip: int(frameSkip), ImageW: int(imageW), ImageH: int(imageH), BoundCamID: boundCamID,
	}, nil
}

// EncodeDepthCameraConfig is the inverse of DecodeDepthCameraConfig.
func EncodeDepthCameraConfig(c slamtypes.DepthCameraConfig) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(depthCameraConfigSize)
	_ = binary.Write(buf, binary.LittleEndian, c.FPS)
	_ = binary.Write(buf, binary.LittleEndian, int32(c.FrameSkip))
	_ = binary.Write(buf, binary.LittleEndian, int32(c.ImageW))
	_ = binary.Write(buf, binary.LittleEndian, int32(c.ImageH))
	_ = binary.Write(buf, binary.LittleEndian, c.BoundCamID)
	return buf.Bytes()
}
