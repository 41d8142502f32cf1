// Package recorder drives the on-device dataset recorder, per §4.7. A
// recorder instance is addressed by slamtypes.RecorderKind (raw sensor
// dump or COLMAP-format dataset) and carries its own typed option map
// and status counters, independent of the other kind's state.
package recorder

import (
	"context"
	"encoding/binary"
	"math"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// Recorder starts, stops, and configures on-device dataset recording.
type Recorder struct {
	transport func() (transport.Interface, error)
}

// New builds a Recorder.
func New(transportFn func() (transport.Interface, error)) *Recorder {
	return &Recorder{transport: transportFn}
}

func (r *Recorder) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := r.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

func encodeKindAndString(kind slamtypes.RecorderKind, s string) []byte {
	buf := make([]byte, 4+4+len(s))
	binary.LittleEndian.PutUint32(buf[:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(s)))
	copy(buf[8:], s)
	return buf
}

func encodeKind(kind slamtypes.RecorderKind) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(kind))
	return buf
}

// StartRecording begins recording a dataset of kind to folderPath. It
// fails if the device's preconditions for kind are unmet; for
// RecorderColmapDataset, map data syncing must already be enabled.
func (r *Recorder) StartRecording(ctx context.Context, kind slamtypes.RecorderKind, folderPath string, timeout time.Duration) error {
	_, err := r.call(ctx, wire.OpStartRecording, encodeKindAndString(kind, folderPath), timeout)
	return err
}

// StopRecording ends recording for kind.
func (r *Recorder) StopRecording(ctx context.Context, kind slamtypes.RecorderKind, timeout time.Duration) error {
	_, err := r.call(ctx, wire.OpStopRecording, encodeKind(kind), timeout)
	return err
}

// IsRecording reports whether kind is currently recording.
func (r *Recorder) IsRecording(ctx context.Context, kind slamtypes.RecorderKind, timeout time.Duration) (bool, error) {
	resp, err := r.call(ctx, wire.OpIsRecording, encodeKind(kind), timeout)
	if err != nil {
		return false, err
	}
	if len(resp) < 1 {
		return false, errors.New("recorder: short is_recording response")
	}
	return resp[0] != 0, nil
}

func encodeKindAndKey(kind slamtypes.RecorderKind, key slamtypes.RecorderOptionKey) []byte {
	name := string(key)
	buf := make([]byte, 4+4+len(name))
	binary.LittleEndian.PutUint32(buf[:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(name)))
	copy(buf[8:], name)
	return buf
}

// SetOptionString sets a string-valued recorder option.
func (r *Recorder) SetOptionString(ctx context.Context, kind slamtypes.RecorderKind, key slamtypes.RecorderOptionKey, value string, timeout time.Duration) error {
	head := encodeKindAndKey(kind, key)
	buf := make([]byte, len(head)+4+len(value))
	copy(buf, head)
	binary.LittleEndian.PutUint32(buf[len(head):], uint32(len(value)))
	copy(buf[len(head)+4:], value)
	_, err := r.call(ctx, wire.OpSetOptionString, buf, timeout)
	return err
}

// SetOptionInt sets an int-valued recorder option.
func (r *Recorder) SetOptionInt(ctx context.Context, kind slamtypes.RecorderKind, key slamtypes.RecorderOptionKey, value int64, timeout time.Duration) error {
	head := encodeKindAndKey(kind, key)
	buf := make([]byte, len(head)+8)
	copy(buf, head)
	binary.LittleEndian.PutUint64(buf[len(head):], uint64(value))
	_, err := r.call(ctx, wire.OpSetOptionInt, buf, timeout)
	return err
}

// SetOptionFloat sets a float-valued recorder option.
func (r *Recorder) SetOptionFloat(ctx context.Context, kind slamtypes.RecorderKind, key slamtypes.RecorderOptionKey, value float64, timeout time.Duration) error {
	head := encodeKindAndKey(kind, key)
	buf := make([]byte, len(head)+8)
	copy(buf, head)
	binary.LittleEndian.PutUint64(buf[len(head):], math.Float64bits(value))
	_, err := r.call(ctx, wire.OpSetOptionFloat, buf, timeout)
	return err
}

// SetOptionBool sets a bool-valued recorder option.
func (r *Recorder) SetOptionBool(ctx context.Context, kind slamtypes.RecorderKind, key slamtypes.RecorderOptionKey, value bool, timeout time.Duration) error {
	head := encodeKindAndKey(kind, key)
	buf := make([]byte, len(head)+1)
	copy(buf, head)
	if value {
		buf[len(head)] = 1
	}
	_, err := r.call(ctx, wire.OpSetOptionBool, buf, timeout)
	return err
}

// ResetOptions restores kind's option map to device defaults.
func (r *Recorder) ResetOptions(ctx context.Context, kind slamtypes.RecorderKind, timeout time.Duration) error {
	_, err := r.call(ctx, wire.OpResetOptions, encodeKind(kind), timeout)
	return err
}

func encodeStatusQuery(kind slamtypes.RecorderKind, key string, useCached bool) []byte {
	buf := make([]byte, 4+4+len(key)+1)
	binary.LittleEndian.PutUint32(buf[:4], uint32(kind))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(key)))
	copy(buf[8:8+len(key)], key)
	if useCached {
		buf[8+len(key)] = 1
	}
	return buf
}

// QueryStatusInt fetches an integer status counter (e.g. "kf_count",
// "frame_count") for kind. When useCached is true, the device returns
// its last computed value instead of recomputing it.
func (r *Recorder) QueryStatusInt(ctx context.Context, kind slamtypes.RecorderKind, key string, useCached bool, timeout time.Duration) (int64, error) {
	resp, err := r.call(ctx, wire.OpQueryStatusInt, encodeStatusQuery(kind, key, useCached), timeout)
	if err != nil {
		return 0, err
	}
	if len(resp) < 8 {
		return 0, errors.New("recorder: short query_status_int response")
	}
	return int64(binary.LittleEndian.Uint64(resp[:8])), nil
}

// QueryStatusFloat fetches a float status counter (e.g. "progress") for
// kind.
func (r *Recorder) QueryStatusFloat(ctx context.Context, kind slamtypes.RecorderKind, key string, useCached bool, timeout time.Duration) (float64, error) {
	resp, err := r.call(ctx, wire.OpQueryStatusFloat, encodeStatusQuery(kind, key, useCached), timeout)
	if err != nil {
		return 0, err
	}
	if len(resp) < 8 {
		return 0, errors.New("recorder: short query_status_float response")
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(resp[:8])), nil
}
