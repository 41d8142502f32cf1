package slamtypes

// Rect is a fetch window in meters, device-frame.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rect has zero area.
func (r Rect) Empty() bool { return r.W == 0 || r.H == 0 }

// GridMapGenerationOptions controls on-demand and preview grid synthesis.
type GridMapGenerationOptions struct {
	ResolutionM          float64
	CanvasWM             float64
	CanvasHM             float64
	ActiveMapOnly        bool
	HeightRangeSpecified bool
	MinHeightM           float64
	MaxHeightM           float64
}

// GridMap2D is a 2D occupancy grid: a physical extent, a resolution, and
// a cell buffer. Cell bytes are either raw log-odds or, when requested,
// a linear 0-255 mapping (see the grid read contract in §4.4).
type GridMap2D struct {
	MinX, MinY, MaxX, MaxY float64
	ResolutionM            float64
	CellW, CellH           int
	Cells                  []byte
	// owned reports whether this handle must be released by the caller
	// (true for on-demand generation) or is a non-owning preview view
	// (false), per the ownership rules in §3.
	owned    bool
	released bool
}

// NewOwnedGridMap wraps a grid map produced by on-demand generation. The
// returned handle must be released via Release once the caller is done
// with it (idempotent, per §3/§8).
func NewOwnedGridMap(g GridMap2D) *GridMap2D {
	g.owned = true
	return &g
}

// NewPreviewGridMap wraps a grid map that is a non-owning view into a
// Session-managed buffer; Release is a no-op for these.
func NewPreviewGridMap(g GridMap2D) *GridMap2D {
	g.owned = false
	return &g
}

// Owned reports whether this handle must be released by the caller.
func (g *GridMap2D) Owned() bool { return g.owned }

// Release marks an owned handle released and drops its cell buffer; it
// sends nothing to the device. It is idempotent and a no-op on non-owning (preview) handles, per the
// ownership rules in §3.
func (g *GridMap2D) Release() error {
	if !g.owned || g.released {
		return nil
	}
	g.released = true
	g.Cells = nil
	return nil
}

// CellCount returns CellW*CellH, which invariant 4 (§3) requires to
// equal len(Cells).
func (g GridMap2D) CellCount() int { return g.CellW * g.CellH }

// FetchInfo is returned alongside a raw cell buffer from ReadCellData.
type FetchInfo struct {
	RealX, RealY float64
	CellW, CellH int
}

// Grid cell classification thresholds for raw (non-L2P) log-odds bytes,
// per the grid read contract in §4.4.
const (
	RawOccupiedThreshold = 180
	RawFreeThreshold     = 75
)

// Linear (L2P-mapped) cell values, per the grid read contract in §4.4.
const (
	L2POccupied byte = 255
	L2PFree     byte = 127
	L2PUnknown  byte = 0
)

// CellState classifies a single raw log-odds byte using the thresholds
// above.
type CellState int

// Grid cell states.
const (
	CellUnknown CellState = iota
	CellFree
	CellOccupied
)

// ClassifyRawCell applies the raw threshold rule from the grid read
// contract: >180 occupied, <75 free, else unknown.
func ClassifyRawCell(b byte) CellState {
	switch {
	case b > RawOccupiedThreshold:
		return CellOccupied
	case b < RawFreeThreshold:
		return CellFree
	default:
		return CellUnknown
	}
}

// maxGridCellCount is the safety cap referenced by the buffer sizing
// rule in §4.4 ("caps at 50M cells").
const maxGridCellCount = 50_000_000

// ComputeFetchBufferSize applies the client-side buffer sizing rule from
// the grid read contract: ceil(|w|/res)+1 by ceil(|h|/res)+1, doubled as
// a safety margin, capped at 50M cells.
func ComputeFetchBufferSize(rect Rect, resolutionM float64) int {
	if rect.Empty() || resolutionM <= 0 {
		return 0
	}
	w := ceilDiv(absF(rect.W), resolutionM) + 1
	h := ceilDiv(absF(rect.H), resolutionM) + 1
	count := w * h * 2
	if count > maxGridCellCount {
		count = maxGridCellCount
	}
	return count
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func ceilDiv(v, res float64) int {
	n := v / res
	i := int(n)
	if float64(i) < n {
		i++
	}
	return i
}
