package slamtypes

// MapPoint is a 3D landmark observed across keyframes. Immutable after
// observation, per §3.
type MapPoint struct {
	ID        uint64
	MapID     uint32
	Timestamp int64
	X, Y, Z   float64
	Flags     uint32
}

// KeyframeFlags are bit flags carried on a Keyframe.
type KeyframeFlags uint32

// Known keyframe flag bits.
const (
	KeyframeFlagBad   KeyframeFlags = 1 << 0
	KeyframeFlagFixed KeyframeFlags = 1 << 1
)

// Keyframe is a selected pose+image sample acting as a SLAM graph node.
// LoopedFrameIDs references keyframe IDs that have been, or still are,
// present in the same map; an ID no longer present implies that
// keyframe was pruned, and per invariant 5 (§3) the loop pair is skipped
// by renderers rather than treated as an error.
type Keyframe struct {
	ID               uint64
	ParentID         uint64
	MapID            uint32
	Timestamp        int64
	Pose             PoseSE3
	PoseEuler        PoseEuler
	LoopedFrameIDs   []uint64
	ConnectedFrameIDs []uint64
	Flags            KeyframeFlags
}

// IsBad reports whether the keyframe is flagged bad.
func (k Keyframe) IsBad() bool { return k.Flags&KeyframeFlagBad != 0 }

// IsFixed reports whether the keyframe is flagged fixed.
func (k Keyframe) IsFixed() bool { return k.Flags&KeyframeFlagFixed != 0 }

// MapDescriptor is a per-map aggregate of counts and ID ranges.
type MapDescriptor struct {
	MapID          uint32
	MapPointCount  uint32
	KeyframeCount  uint32
	MinMapPointID  uint64
	MaxMapPointID  uint64
	MinKeyframeID  uint64
	MaxKeyframeID  uint64
}

// GlobalMapDesc aggregates sync progress across all maps.
type GlobalMapDesc struct {
	TotalKeyframeCount        uint32
	TotalMapPointCount        uint32
	TotalMapCount             uint32
	TotalKeyframeCountFetched uint32
	TotalMapPointCountFetched uint32
	ActiveKeyframeID          uint64
	ActiveMapPointID          uint64
	ActiveMapID               uint32
	MappingFlags              uint32
	SlidingWindowStartKFID    uint64
}

// SyncRatio returns fetched/total keyframes, with total=0 yielding 0 per
// invariant 6 (§3).
func (g GlobalMapDesc) SyncRatio() float64 {
	if g.TotalKeyframeCount == 0 {
		return 0
	}
	return float64(g.TotalKeyframeCountFetched) / float64(g.TotalKeyframeCount)
}

// MapVisitorCallbacks lets DataProvider.MapData drive traversal without
// materializing every record up front. Any panic/error raised from a
// callback is swallowed by the driver (§4.2, §7) so a misbehaving host
// callback cannot kill the transport's read loop.
type MapVisitorCallbacks struct {
	OnMapPoint func(MapPoint)
	OnKeyframe func(Keyframe)
	OnMapDesc  func(MapDescriptor)
}

// MapDataResult is the materialized result of a MapData call. It is
// filled whether or not the caller supplied visitor callbacks.
type MapDataResult struct {
	MapPoints     []MapPoint
	Keyframes     []Keyframe
	LoopClosures  []LoopClosure
	MapInfo       []MapDescriptor
}

// LoopClosure connects two keyframes that represent a detected revisit.
type LoopClosure struct {
	FromKeyframeID uint64
	ToKeyframeID   uint64
}
