// Package slamtypes holds the data-model entities shared between the SDK
// and the device: poses, frames, scans, map primitives, and calibration
// descriptors. These mirror the binary records in the device's wire
// protocol (see package wire) but are the plain Go values the public
// component APIs traffic in.
package slamtypes

import (
	"github.com/golang/geo/r3"
	"go.viam.com/rdk/spatialmath"
)

// PoseSE3 is a rigid transform: a translation plus a unit quaternion.
// It is the canonical pose representation used across every stream.
type PoseSE3 struct {
	X, Y, Z        float64
	QX, QY, QZ, QW float64
}

// PoseEuler is a rigid transform expressed as a translation plus
// roll/pitch/yaw in radians.
type PoseEuler struct {
	X, Y, Z          float64
	Roll, Pitch, Yaw float64
}

// Pose converts a PoseSE3 to an rdk spatialmath.Pose, reusing the
// corpus's pose/quaternion library instead of hand-rolled rotation math.
func (p PoseSE3) Pose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: p.X, Y: p.Y, Z: p.Z},
		&spatialmath.Quaternion{Real: p.QW, Imag: p.QX, Jmag: p.QY, Kmag: p.QZ},
	)
}

// PoseSE3FromPose builds a PoseSE3 from an rdk spatialmath.Pose.
func PoseSE3FromPose(p spatialmath.Pose) PoseSE3 {
	pt := p.Point()
	q := p.Orientation().Quaternion()
	return PoseSE3{
		X: pt.X, Y: pt.Y, Z: pt.Z,
		QX: q.Imag, QY: q.Jmag, QZ: q.Kmag, QW: q.Real,
	}
}

// ToEuler converts the pose to roll/pitch/yaw form via the rdk
// orientation conversion, preserving translation unchanged.
func (p PoseSE3) ToEuler() PoseEuler {
	ea := p.Pose().Orientation().EulerAngles()
	return PoseEuler{
		X: p.X, Y: p.Y, Z: p.Z,
		Roll:  ea.Roll,
		Pitch: ea.Pitch,
		Yaw:   ea.Yaw,
	}
}

// ToSE3 converts roll/pitch/yaw back to a unit-quaternion pose.
func (e PoseEuler) ToSE3() PoseSE3 {
	orient := &spatialmath.EulerAngles{Roll: e.Roll, Pitch: e.Pitch, Yaw: e.Yaw}
	pose := spatialmath.NewPose(r3.Vector{X: e.X, Y: e.Y, Z: e.Z}, orient)
	return PoseSE3FromPose(pose)
}
