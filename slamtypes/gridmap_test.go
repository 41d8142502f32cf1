package slamtypes

import (
	"testing"

	"go.viam.com/test"
)

func TestComputeFetchBufferSizeBoundaries(t *testing.T) {
	for _, tc := range []struct {
		msg  string
		rect Rect
		res  float64
		want int
	}{
		{msg: "zero-width rect yields zero", rect: Rect{W: 0, H: 5}, res: 0.1, want: 0},
		{msg: "zero-height rect yields zero", rect: Rect{W: 5, H: 0}, res: 0.1, want: 0},
		{msg: "zero resolution yields zero", rect: Rect{W: 5, H: 5}, res: 0, want: 0},
		{msg: "negative resolution yields zero", rect: Rect{W: 5, H: 5}, res: -1, want: 0},
		{msg: "exact division still adds one and doubles", rect: Rect{W: 1, H: 1}, res: 1, want: (1 + 1) * (1 + 1) * 2},
		{msg: "negative extents use absolute value", rect: Rect{W: -2, H: -2}, res: 1, want: (2 + 1) * (2 + 1) * 2},
		{msg: "huge rect caps at 50M cells", rect: Rect{W: 1_000_000, H: 1_000_000}, res: 0.01, want: maxGridCellCount},
	} {
		t.Run(tc.msg, func(t *testing.T) {
			test.That(t, ComputeFetchBufferSize(tc.rect, tc.res), test.ShouldEqual, tc.want)
		})
	}
}

func TestClassifyRawCellThresholds(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		want CellState
	}{
		{b: 0, want: CellFree},
		{b: RawFreeThreshold - 1, want: CellFree},
		{b: RawFreeThreshold, want: CellUnknown},
		{b: 127, want: CellUnknown},
		{b: RawOccupiedThreshold, want: CellUnknown},
		{b: RawOccupiedThreshold + 1, want: CellOccupied},
		{b: 255, want: CellOccupied},
	} {
		test.That(t, ClassifyRawCell(tc.b), test.ShouldEqual, tc.want)
	}
}

func TestGridMap2DReleaseIsIdempotent(t *testing.T) {
	g := NewOwnedGridMap(GridMap2D{CellW: 2, CellH: 2, Cells: []byte{1, 2, 3, 4}})
	test.That(t, g.Owned(), test.ShouldBeTrue)

	test.That(t, g.Release(), test.ShouldBeNil)
	test.That(t, g.Cells, test.ShouldBeNil)
	test.That(t, g.Release(), test.ShouldBeNil)
}

func TestGridMap2DReleaseIsNoOpOnPreviewHandle(t *testing.T) {
	g := NewPreviewGridMap(GridMap2D{CellW: 2, CellH: 2, Cells: []byte{1, 2, 3, 4}})
	test.That(t, g.Owned(), test.ShouldBeFalse)

	test.That(t, g.Release(), test.ShouldBeNil)
	test.That(t, g.Cells, test.ShouldNotBeNil)
}

func TestCellCountMatchesDimensions(t *testing.T) {
	g := GridMap2D{CellW: 10, CellH: 7}
	test.That(t, g.CellCount(), test.ShouldEqual, 70)
}
