// Package lidarmap builds and reads 2D occupancy grids from LiDAR scan
// data, per §4.4: a continuously rasterized preview grid and an
// on-demand, single-shot full map synthesis, sharing one grid read
// contract for pulling cell bytes out of either.
package lidarmap

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// LidarMapBuilder drives the device's preview and on-demand grid map
// synthesis and reads cell data out of either.
type LidarMapBuilder struct {
	transport func() (transport.Interface, error)

	mu                 sync.Mutex
	updating           bool
	autoFloorDetection bool
}

// New builds a LidarMapBuilder.
func New(transportFn func() (transport.Interface, error)) *LidarMapBuilder {
	return &LidarMapBuilder{transport: transportFn}
}

func (l *LidarMapBuilder) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := l.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

func encodeGridMapOptions(o slamtypes.GridMapGenerationOptions) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, o.ResolutionM)
	_ = binary.Write(buf, binary.LittleEndian, o.CanvasWM)
	_ = binary.Write(buf, binary.LittleEndian, o.CanvasHM)
	flags := byte(0)
	if o.ActiveMapOnly {
		flags |= 1
	}
	if o.HeightRangeSpecified {
		flags |= 2
	}
	buf.WriteByte(flags)
	_ = binary.Write(buf, binary.LittleEndian, o.MinHeightM)
	_ = binary.Write(buf, binary.LittleEndian, o.MaxHeightM)
	return buf.Bytes()
}

// StartPreviewBackgroundUpdate begins continuously rasterizing LiDAR
// scans into the device's preview grid.
func (l *LidarMapBuilder) StartPreviewBackgroundUpdate(ctx context.Context, opts slamtypes.GridMapGenerationOptions, timeout time.Duration) error {
	_, err := l.call(ctx, wire.OpStartPreviewBackgroundUpdate, encodeGridMapOptions(opts), timeout)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.updating = true
	l.mu.Unlock()
	return nil
}

// IsPreviewBackgroundUpdating reports whether a background preview
// update is active.
func (l *LidarMapBuilder) IsPreviewBackgroundUpdating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.updating
}

// StopPreviewBackgroundUpdate halts the continuous preview rasterizer.
func (l *LidarMapBuilder) StopPreviewBackgroundUpdate(ctx context.Context, timeout time.Duration) error {
	_, err := l.call(ctx, wire.OpStopPreviewBackgroundUpdate, nil, timeout)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.updating = false
	l.mu.Unlock()
	return nil
}

// RequirePreviewRedraw hints the backend to redraw the preview grid
// fully on its next update cycle.
func (l *LidarMapBuilder) RequirePreviewRedraw(ctx context.Context, timeout time.Duration) error {
	_, err := l.call(ctx, wire.OpRequirePreviewRedraw, nil, timeout)
	return err
}

// GetAndResetPreviewDirtyRect atomically reads and clears the preview
// grid's accumulated dirty region since the previous call.
func (l *LidarMapBuilder) GetAndResetPreviewDirtyRect(ctx context.Context, timeout time.Duration) (slamtypes.Rect, bool, error) {
	resp, err := l.call(ctx, wire.OpGetAndResetPreviewDirtyRect, nil, timeout)
	if err != nil {
		return slamtypes.Rect{}, false, err
	}
	if len(resp) < 4*8+1 {
		return slamtypes.Rect{}, false, errors.New("lidarmap: short dirty rect response")
	}
	r := bytes.NewReader(resp)
	var fields [4]float64
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return slamtypes.Rect{}, false, errors.Wrap(err, "lidarmap: reading dirty rect")
	}
	bigChange := resp[4*8] != 0
	return slamtypes.Rect{X: fields[0], Y: fields[1], W: fields[2], H: fields[3]}, bigChange, nil
}

// SetPreviewAutoFloorDetection toggles whether the preview rasterizer
// automatically switches floors as the device moves between them.
func (l *LidarMapBuilder) SetPreviewAutoFloorDetection(ctx context.Context, on bool, timeout time.Duration) error {
	payload := []byte{0}
	if on {
		payload[0] = 1
	}
	_, err := l.call(ctx, wire.OpSetPreviewAutoFloorDetection, payload, timeout)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.autoFloorDetection = on
	l.mu.Unlock()
	return nil
}

// IsPreviewAutoFloorDetection reports the last-set auto-floor-detection
// intent, tracked locally the way Controller tracks enhanced-imaging
// subscriptions.
func (l *LidarMapBuilder) IsPreviewAutoFloorDetection() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.autoFloorDetection
}

// GetPreviewMap returns a non-owning view of the Session-owned preview
// grid's current dimensions. The caller pulls cell bytes separately via
// ReadCellData.
func (l *LidarMapBuilder) GetPreviewMap(ctx context.Context, timeout time.Duration) (*slamtypes.GridMap2D, error) {
	resp, err := l.call(ctx, wire.OpGetPreviewMap, nil, timeout)
	if err != nil {
		return nil, err
	}
	rect, resolution, cellW, cellH, err := wire.DecodeGridDimension(resp)
	if err != nil {
		return nil, err
	}
	g := slamtypes.NewPreviewGridMap(slamtypes.GridMap2D{
		MinX: rect.X, MinY: rect.Y, MaxX: rect.X + rect.W, MaxY: rect.Y + rect.H,
		ResolutionM: resolution, CellW: cellW, CellH: cellH,
	})
	return g, nil
}

// GenerateFullmapOnDemand synthesizes a single owning grid map snapshot.
// Map data syncing must already be enabled for this to yield useful
// data; it blocks until synthesis completes or timeoutMs elapses.
func (l *LidarMapBuilder) GenerateFullmapOnDemand(ctx context.Context, opts slamtypes.GridMapGenerationOptions, waitForDataSync bool, timeoutMs int) (*slamtypes.GridMap2D, error) {
	payload := encodeGridMapOptions(opts)
	waitByte := byte(0)
	if waitForDataSync {
		waitByte = 1
	}
	payload = append(payload, waitByte)
	timeout := time.Duration(timeoutMs) * time.Millisecond
	resp, err := l.call(ctx, wire.OpGenerateFullmapOnDemand, payload, timeout)
	if err != nil {
		return nil, err
	}
	rect, resolution, cellW, cellH, err := wire.DecodeGridDimension(resp)
	if err != nil {
		return nil, err
	}
	g := slamtypes.NewOwnedGridMap(slamtypes.GridMap2D{
		MinX: rect.X, MinY: rect.Y, MaxX: rect.X + rect.W, MaxY: rect.Y + rect.H,
		ResolutionM: resolution, CellW: cellW, CellH: cellH,
	})
	return g, nil
}

func encodeReadCellDataRequest(fetchRect slamtypes.Rect, resolutionM float64, l2pMapping bool, bufferSize int) []byte {
	buf := new(bytes.Buffer)
	fields := [4]float64{fetchRect.X, fetchRect.Y, fetchRect.W, fetchRect.H}
	_ = binary.Write(buf, binary.LittleEndian, &fields)
	_ = binary.Write(buf, binary.LittleEndian, resolutionM)
	flag := byte(0)
	if l2pMapping {
		flag = 1
	}
	buf.WriteByte(flag)
	_ = binary.Write(buf, binary.LittleEndian, uint32(bufferSize))
	return buf.Bytes()
}

// ReadCellData pulls a window of grid cells at resolutionM. The client
// computes the fetch buffer size per the sizing rule in
// slamtypes.ComputeFetchBufferSize; the device fills as many cells as
// it actually has and reports the real dimensions in the returned
// FetchInfo. When l2pMapping is true, cell bytes are the mapped linear
// space (slamtypes.L2POccupied/L2PFree/L2PUnknown); otherwise they are
// raw log-odds bytes classified with slamtypes.ClassifyRawCell.
func (l *LidarMapBuilder) ReadCellData(ctx context.Context, fetchRect slamtypes.Rect, resolutionM float64, l2pMapping bool, timeout time.Duration) ([]byte, slamtypes.FetchInfo, error) {
	bufferSize := slamtypes.ComputeFetchBufferSize(fetchRect, resolutionM)
	req := encodeReadCellDataRequest(fetchRect, resolutionM, l2pMapping, bufferSize)
	resp, err := l.call(ctx, wire.OpReadCellData, req, timeout)
	if err != nil {
		return nil, slamtypes.FetchInfo{}, err
	}
	const fetchInfoWireSize = 2*8 + 4 + 4
	if len(resp) < fetchInfoWireSize {
		return nil, slamtypes.FetchInfo{}, errors.New("lidarmap: short read_cell_data response")
	}
	info, err := wire.DecodeFetchInfo(resp[:fetchInfoWireSize])
	if err != nil {
		return nil, slamtypes.FetchInfo{}, err
	}
	cells := resp[fetchInfoWireSize:]
	want := info.CellW * info.CellH
	if want >= 0 && want <= len(cells) {
		cells = cells[:want]
	}
	return cells, info, nil
}

// GetSupportedGridResolutionRange fetches the device's supported
// min/max grid resolution, in meters.
func (l *LidarMapBuilder) GetSupportedGridResolutionRange(ctx context.Context, timeout time.Duration) (min, max float64, err error) {
	resp, err := l.call(ctx, wire.OpGetSupportedGridResolutionRange, nil, timeout)
	if err != nil {
		return 0, 0, err
	}
	if len(resp) < 16 {
		return 0, 0, errors.New("lidarmap: short grid resolution range response")
	}
	min = decodeFloat64(resp[:8])
	max = decodeFloat64(resp[8:16])
	return min, max, nil
}

// GetSupportedMaxGridCellCount fetches the device's maximum supported
// grid cell count.
func (l *LidarMapBuilder) GetSupportedMaxGridCellCount(ctx context.Context, timeout time.Duration) (int, error) {
	resp, err := l.call(ctx, wire.OpGetSupportedMaxGridCellCount, nil, timeout)
	if err != nil {
		return 0, err
	}
	if len(resp) < 4 {
		return 0, errors.New("lidarmap: short max grid cell count response")
	}
	return int(binary.LittleEndian.Uint32(resp)), nil
}

func decodeFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
