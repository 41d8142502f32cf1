// Package mapmanager drives the map upload/download session state
// machine over a transport connection, per §4.3. It follows the
// device's own session lifecycle (Idle/Working/Finished/.../Timeout)
// rather than exposing the underlying request/response pairs directly.
package mapmanager

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// pollInterval is how often wait_for_completion polls session status,
// per the "~2Hz" contract in §4.3.
const pollInterval = 500 * time.Millisecond

// MapManager owns exactly one map storage session at a time.
type MapManager struct {
	transport func() (transport.Interface, error)

	mu         sync.Mutex
	info       slamtypes.MapStorageSessionInfo
	active     bool
	resultSet  bool
	result     bool
	onComplete func(ok bool)
}

// New builds a MapManager. transportFn resolves the active transport
// the same way Controller and DataProvider do.
func New(transportFn func() (transport.Interface, error)) *MapManager {
	return &MapManager{transport: transportFn}
}

func (m *MapManager) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := m.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

func encodeSessionStart(path string) []byte {
	buf := make([]byte, 4+len(path))
	binary.LittleEndian.PutUint32(buf, uint32(len(path)))
	copy(buf[4:], path)
	return buf
}

// startSession issues the start request and, on acceptance, marks the
// session Working and stashes the completion callback for
// HandleStreamEvent / query_session_status to fire exactly once.
func (m *MapManager) startSession(ctx context.Context, op wire.OpCode, kind slamtypes.MapStorageKind, path string, onComplete func(ok bool), timeout time.Duration) (bool, error) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return false, sdkerrors.ErrAlreadyInSession
	}
	m.mu.Unlock()

	resp, err := m.call(ctx, op, encodeSessionStart(path), timeout)
	if err != nil {
		return false, err
	}
	if len(resp) < 1 || resp[0] == 0 {
		return false, nil
	}

	m.mu.Lock()
	m.active = true
	m.resultSet = false
	m.onComplete = onComplete
	m.info = slamtypes.MapStorageSessionInfo{Kind: kind, FilePath: path, Status: slamtypes.MapStorageWorking}
	m.mu.Unlock()
	return true, nil
}

// StartDownloadSession begins an asynchronous map download. on_complete
// fires exactly once, from HandleStreamEvent or from a later
// query_session_status call that observes a terminal status.
func (m *MapManager) StartDownloadSession(ctx context.Context, path string, onComplete func(ok bool), timeout time.Duration) (bool, error) {
	return m.startSession(ctx, wire.OpStartDownloadSession, slamtypes.MapStorageDownload, path, onComplete, timeout)
}

// StartUploadSession begins an asynchronous map upload.
func (m *MapManager) StartUploadSession(ctx context.Context, path string, onComplete func(ok bool), timeout time.Duration) (bool, error) {
	return m.startSession(ctx, wire.OpStartUploadSession, slamtypes.MapStorageUpload, path, onComplete, timeout)
}

// IsSessionActive reports whether a map storage session is currently
// Working.
func (m *MapManager) IsSessionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// QuerySessionStatus fetches the session's current progress and status
// from the device and folds it into local state, firing the completion
// callback if this is the first observation of a terminal status.
func (m *MapManager) QuerySessionStatus(ctx context.Context, timeout time.Duration) (slamtypes.MapStorageSessionInfo, error) {
	resp, err := m.call(ctx, wire.OpQuerySessionStatus, nil, timeout)
	if err != nil {
		return slamtypes.MapStorageSessionInfo{}, err
	}
	if len(resp) < 8 {
		return slamtypes.MapStorageSessionInfo{}, errors.New("mapmanager: short session status response")
	}
	progress := int(binary.LittleEndian.Uint32(resp[:4]))
	status := slamtypes.MapStorageStatus(binary.LittleEndian.Uint32(resp[4:8]))
	m.applyStatus(progress, status)

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, nil
}

// applyStatus folds a freshly observed progress/status pair into local
// state and fires the completion callback exactly once when the status
// first becomes terminal.
func (m *MapManager) applyStatus(progress int, status slamtypes.MapStorageStatus) {
	m.mu.Lock()
	m.info.Progress = progress
	m.info.Status = status

	var fire func(ok bool)
	if status.Terminal() {
		m.active = false
		if !m.resultSet {
			m.resultSet = true
			m.result = status == slamtypes.MapStorageFinished
			if m.onComplete != nil {
				fire = m.onComplete
				m.onComplete = nil
			}
		}
	}
	result := m.result
	m.mu.Unlock()

	if fire != nil {
		fire(result)
	}
}

// HandleStreamEvent folds an unsolicited map-storage-progress push into
// local state. Installed by the owning Session alongside
// DataProvider.HandleStreamEvent.
func (m *MapManager) HandleStreamEvent(body []byte) {
	tag, payload := wire.SplitStreamEvent(body)
	if tag != wire.StreamMapStorageProgress || len(payload) < 8 {
		return
	}
	progress := int(binary.LittleEndian.Uint32(payload[:4]))
	status := slamtypes.MapStorageStatus(binary.LittleEndian.Uint32(payload[4:8]))
	m.applyStatus(progress, status)
}

// AbortSession requests cancellation of the active session. It is
// idempotent: aborting an already-inactive session is a no-op success.
func (m *MapManager) AbortSession(ctx context.Context, timeout time.Duration) error {
	if !m.IsSessionActive() {
		return nil
	}
	_, err := m.call(ctx, wire.OpAbortSession, nil, timeout)
	return err
}

// WaitForCompletion polls session status at roughly 2 Hz until the
// session reaches a terminal state or timeoutS elapses, invoking
// progressCb (if non-nil) after every poll. It returns the latched
// completion result once available, deriving it from the last observed
// status if the session went inactive before a result latched.
func (m *MapManager) WaitForCompletion(ctx context.Context, timeoutS float64, progressCb func(progress int)) (bool, error) {
	deadline := time.Now().Add(time.Duration(timeoutS * float64(time.Second)))
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		info, err := m.QuerySessionStatus(ctx, pollInterval)
		if err != nil && !sdkerrors.IsTimeout(err) {
			return false, err
		}
		if progressCb != nil {
			progressCb(info.Progress)
		}

		m.mu.Lock()
		active := m.active
		resultSet := m.resultSet
		result := m.result
		m.mu.Unlock()

		if !active {
			if resultSet {
				return result, nil
			}
			return info.Status == slamtypes.MapStorageFinished, nil
		}

		if time.Now().After(deadline) {
			return false, sdkerrors.ErrTimeout
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadMap is a blocking convenience wrapper composing
// StartDownloadSession and WaitForCompletion.
func (m *MapManager) DownloadMap(ctx context.Context, path string, timeoutS float64, progressCb func(progress int)) (bool, error) {
	return m.runBlocking(ctx, m.StartDownloadSession, path, timeoutS, progressCb)
}

// UploadMap is a blocking convenience wrapper composing
// StartUploadSession and WaitForCompletion.
func (m *MapManager) UploadMap(ctx context.Context, path string, timeoutS float64, progressCb func(progress int)) (bool, error) {
	return m.runBlocking(ctx, m.StartUploadSession, path, timeoutS, progressCb)
}

type starter func(ctx context.Context, path string, onComplete func(ok bool), timeout time.Duration) (bool, error)

func (m *MapManager) runBlocking(ctx context.Context, start starter, path string, timeoutS float64, progressCb func(progress int)) (bool, error) {
	accepted, err := start(ctx, path, nil, pollInterval)
	if err != nil {
		return false, err
	}
	if !accepted {
		return false, nil
	}
	return m.WaitForCompletion(ctx, timeoutS, progressCb)
}
