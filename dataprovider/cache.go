package dataprovider

import (
	"sync"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	maxHistoryPoses   = 512
	maxIMUBurst       = 4096
	maxPreviewHistory = 32
)

type historyPose struct {
	timestampNs int64
	pose        slamtypes.PoseSE3
}

// cache holds the freshest value observed on each live stream, updated
// from the transport's stream-event handler and read without blocking
// by every DataProvider accessor. This generalizes sensorprocess's
// currentData (currentLidarData/currentIMUData) from a single cached
// reading per sensor to one cache entry per stream kind.
type cache struct {
	mu sync.Mutex

	pose        slamtypes.PoseSE3
	poseTs      int64
	havePose    bool
	poseHistory []historyPose

	preview        slamtypes.StereoImagePair
	havePreview    bool
	previewHistory []slamtypes.StereoImagePair

	tracking     slamtypes.TrackingFrame
	haveTracking bool

	lidarScan     slamtypes.LidarScan
	haveLidarScan bool

	imuBurst []slamtypes.IMUSample
}

func newCache() *cache {
	return &cache{}
}

// setPose records a new pose sample, deduplicating on timestamp: a
// repeated timestamp means the same frame resent, not a new one, per
// the stream ordering invariant (§5).
func (c *cache) setPose(p slamtypes.PoseSE3, timestampNs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.havePose && c.poseTs == timestampNs {
		return
	}
	c.pose = p
	c.poseTs = timestampNs
	c.havePose = true

	c.poseHistory = append(c.poseHistory, historyPose{timestampNs: timestampNs, pose: p})
	if len(c.poseHistory) > maxHistoryPoses {
		c.poseHistory = c.poseHistory[len(c.poseHistory)-maxHistoryPoses:]
	}
}

func (c *cache) getPose() (slamtypes.PoseSE3, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pose, c.poseTs, c.havePose
}

func (c *cache) historySnapshot() []historyPose {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]historyPose, len(c.poseHistory))
	copy(out, c.poseHistory)
	return out
}

func (c *cache) setPreview(p slamtypes.StereoImagePair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.havePreview && c.preview.TimestampNs == p.TimestampNs {
		return
	}
	c.preview = p
	c.havePreview = true

	c.previewHistory = append(c.previewHistory, p)
	if len(c.previewHistory) > maxPreviewHistory {
		c.previewHistory = c.previewHistory[len(c.previewHistory)-maxPreviewHistory:]
	}
}

func (c *cache) getPreview() (slamtypes.StereoImagePair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview, c.havePreview
}

// nearestPreview returns the cached preview pair whose timestamp is
// closest to timestampNs.
func (c *cache) nearestPreview(timestampNs int64) (slamtypes.StereoImagePair, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.previewHistory) == 0 {
		return slamtypes.StereoImagePair{}, false
	}
	best := c.previewHistory[0]
	bestDiff := absInt64(best.TimestampNs - timestampNs)
	for _, p := range c.previewHistory[1:] {
		if diff := absInt64(p.TimestampNs - timestampNs); diff < bestDiff {
			best, bestDiff = p, diff
		}
	}
	return best, true
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func (c *cache) setTracking(f slamtypes.TrackingFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveTracking && c.tracking.TimestampNs == f.TimestampNs {
		return
	}
	c.tracking = f
	c.haveTracking = true
}

func (c *cache) getTracking() (slamtypes.TrackingFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracking, c.haveTracking
}

func (c *cache) setLidarScan(s slamtypes.LidarScan, maxPoints int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveLidarScan && c.lidarScan.TimestampNs == s.TimestampNs {
		return
	}
	if len(s.Points) > maxPoints {
		s.Points = s.Points[:maxPoints]
	}
	c.lidarScan = s
	c.haveLidarScan = true
}

func (c *cache) getLidarScan() (slamtypes.LidarScan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lidarScan, c.haveLidarScan
}

func (c *cache) pushIMUSample(s slamtypes.IMUSample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.imuBurst = append(c.imuBurst, s)
	if len(c.imuBurst) > maxIMUBurst {
		c.imuBurst = c.imuBurst[len(c.imuBurst)-maxIMUBurst:]
	}
}

// peekIMUBurst returns up to maxCount of the most recently cached
// samples without clearing them, per peek_imu_data's "returns
// immediately, even if empty" contract — a peek, not a drain.
func (c *cache) peekIMUBurst(maxCount int) []slamtypes.IMUSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.imuBurst) == 0 {
		return nil
	}
	n := len(c.imuBurst)
	if n > maxCount {
		n = maxCount
	}
	out := make([]slamtypes.IMUSample, n)
	copy(out, c.imuBurst[len(c.imuBurst)-n:])
	return out
}
