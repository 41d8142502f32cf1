package wire

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	poseSE3Size   = 7 * 8 // x,y,z,qx,qy,qz,qw float64
	poseEulerSize = 6 * 8 // x,y,z,roll,pitch,yaw float64
)

// DecodePoseSE3 decodes a quaternion-form pose record.
func DecodePoseSE3(data []byte) (slamtypes.PoseSE3, error) {
	if len(data) < poseSE3Size {
		return slamtypes.PoseSE3{}, errors.Errorf("wire: pose SE3 record too short: got %d want %d", len(data), poseSE3Size)
	}
	var fields [7]float64
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &fields); err != nil {
		return slamtypes.PoseSE3{}, errors.Wrap(err, "wire: reading pose SE3")
	}
	return slamtypes.PoseSE3{
		X: fields[0], Y: fields[1], Z: fields[2],
		QX: fields[3], QY: fields[4], QZ: fields[5], QW: fields[6],
	}, nil
}

// EncodePoseSE3 is the inverse of DecodePoseSE3.
func EncodePoseSE3(p slamtypes.PoseSE3) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(poseSE3Size)
	fields := [7]float64{p.X, p.Y, p.Z, p.QX, p.QY, p.QZ, p.QW}
	_ = binary.Write(buf, binary.LittleEndian, &fields)
	return buf.Bytes()
}

// DecodePoseEuler decodes a roll/pitch/yaw pose record.
func DecodePoseEuler(data []byte) (slamtypes.PoseEuler, error) {
	if len(data) < poseEulerSize {
		return slamtypes.PoseEuler{}, errors.Errorf("wire: pose Euler record too short: got %d want %d", len(data), poseEulerSize)
	}
	var fields [6]float64
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &fields); err != nil {
		return slamtypes.PoseEuler{}, errors.Wrap(err, "wire: reading pose Euler")
	}
	return slamtypes.PoseEuler{
		X: fields[0], Y: fields[1], Z: fields[2],
		Roll: fields[3], Pitch: fields[4], Yaw: fields[5],
	}, nil
}

// EncodePoseEuler is the inverse of DecodePoseEuler.
func EncodePoseEuler(p slamtypes.PoseEuler) []byte {
	buf := new(bytes.Buffer)
	buf.Grow(poseEulerSize)
	fields := [6]float64{p.X, p.Y, p.Z, p.Roll, p.Pitch, p.Yaw}
	_ = binary.Write(buf, binary.LittleEndian, &fields)
	return buf.Bytes()
}
