package slamtypes

import (
	"testing"

	"go.viam.com/test"
)

func TestExtrinsic4x4LastRowIsIdentity(t *testing.T) {
	identity := Extrinsic4x4{T: [16]float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}}
	test.That(t, identity.LastRowIsIdentity(1e-9), test.ShouldBeTrue)

	withinTolerance := identity
	withinTolerance.T[15] = 1 + 1e-10
	test.That(t, withinTolerance.LastRowIsIdentity(1e-9), test.ShouldBeTrue)

	for _, tc := range []struct {
		msg  string
		idx  int
		want float64
	}{
		{msg: "last row x nonzero", idx: 12, want: 0.1},
		{msg: "last row y nonzero", idx: 13, want: 0.1},
		{msg: "last row z nonzero", idx: 14, want: 0.1},
		{msg: "last row w not one", idx: 15, want: 0.5},
	} {
		t.Run(tc.msg, func(t *testing.T) {
			bad := identity
			bad.T[tc.idx] = tc.want
			test.That(t, bad.LastRowIsIdentity(1e-9), test.ShouldBeFalse)
		})
	}
}
