package slamtypes

// MapStorageKind distinguishes an upload session from a download session.
type MapStorageKind int

// Map storage session kinds.
const (
	MapStorageUpload MapStorageKind = iota
	MapStorageDownload
)

// MapStorageStatus is the current state of a MapStorageSession, per the
// state machine in §4.3.
type MapStorageStatus int

// Map storage session states.
const (
	MapStorageIdle MapStorageStatus = iota
	MapStorageWorking
	MapStorageFinished
	MapStorageFailed
	MapStorageAborted
	MapStorageRejected
	MapStorageTimeout
)

// String renders the status for logs.
func (s MapStorageStatus) String() string {
	switch s {
	case MapStorageIdle:
		return "idle"
	case MapStorageWorking:
		return "working"
	case MapStorageFinished:
		return "finished"
	case MapStorageFailed:
		return "failed"
	case MapStorageAborted:
		return "aborted"
	case MapStorageRejected:
		return "rejected"
	case MapStorageTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state the state
// machine will not transition out of on its own.
func (s MapStorageStatus) Terminal() bool {
	switch s {
	case MapStorageFinished, MapStorageFailed, MapStorageAborted, MapStorageRejected, MapStorageTimeout:
		return true
	default:
		return false
	}
}

// MapStorageSessionInfo is the current state of the active map storage
// session, as reported to the host.
type MapStorageSessionInfo struct {
	Kind     MapStorageKind
	FilePath string
	Status   MapStorageStatus
	Progress int // 0-100, valid only while Status == Working
}
