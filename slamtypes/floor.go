package slamtypes

// FloorDescriptor summarizes one detected floor level.
type FloorDescriptor struct {
	FloorID        int32
	TypicalHeightM float64
	Confidence     float64
}

// FloorHistogramInfo describes the binning used for FloorDetector's
// height histogram.
type FloorHistogramInfo struct {
	BinWidthM      float64
	BinHeightStartM float64
	BinTotalCount  int
}

// FloorHistogram pairs the bin layout with per-bin sample counts.
type FloorHistogram struct {
	Info   FloorHistogramInfo
	Values []float32
}
