package wire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	mapPointSize        = 8 + 4 + 4 /*pad*/ + 8 + 3*8 + 4 + 4 /*pad*/
	keyframeHeaderSize  = 8 + 8 + 4 + 4 /*pad*/ + 8 + poseSE3Size + poseEulerSize + 4 + 4 /*pad*/
	mapDescriptorSize   = 4 + 4 + 4 + 4 /*pad*/ + 8 + 8 + 8 + 8
	globalMapDescSize   = 4*5 + 4 /*pad*/ + 8 + 8 + 4 + 4 + 8
	idArrayTerminator   = uint64(0)
)

// DecodeMapPoint decodes a single map-point record.
func DecodeMapPoint(data []byte) (slamtypes.MapPoint, error) {
	if len(data) < mapPointSize {
		return slamtypes.MapPoint{}, errors.Errorf("wire: map point too short: got %d want %d", len(data), mapPointSize)
	}
	r := bytes.NewReader(data)
	var id uint64
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: reading map point id")
	}
	var mapID uint32
	if err := binary.Read(r, binary.LittleEndian, &mapID); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: reading map point map id")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: skipping padding")
	}
	var timestamp int64
	if err := binary.Read(r, binary.LittleEndian, &timestamp); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: reading map point timestamp")
	}
	var xyz [3]float64
	if err := binary.Read(r, binary.LittleEndian, &xyz); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: reading map point coordinates")
	}
	var flags uint32
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return slamtypes.MapPoint{}, errors.Wrap(err, "wire: reading map point flags")
	}
	return slamtypes.MapPoint{
		ID: id, MapID: mapID, Timestamp: timestamp,
		X: xyz[0], Y: xyz[1], Z: xyz[2], Flags: flags,
	}, nil
}

// DecodeKeyframeHeader decodes the fixed portion of a keyframe record.
// The looped_ids and connected_ids arrays follow on the wire as
// null-terminated uint64 lists and are decoded separately with
// DecodeIDArray, per the device's null-terminated array convention.
func DecodeKeyframeHeader(data []byte) (slamtypes.Keyframe, error) {
	if len(data) < keyframeHeaderSize {
		return slamtypes.Keyframe{}, errors.Errorf("wire: keyframe header too short: got %d want %d", len(data), keyframeHeaderSize)
	}
	r := bytes.NewReader(data)
	var id, parentID uint64
	if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe id")
	}
	if err := binary.Read(r, binary.LittleEndian, &parentID); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe parent id")
	}
	var mapID uint32
	if err := binary.Read(r, binary.LittleEndian, &mapID); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe map id")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: skipping padding")
	}
	var timestamp int64
	if err := binary.Read(r, binary.LittleEndian, &timestamp); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe timestamp")
	}
	poseBytes := make([]byte, poseSE3Size)
	if _, err := io.ReadFull(r, poseBytes); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe pose")
	}
	pose, err := DecodePoseSE3(poseBytes)
	if err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: decoding keyframe pose")
	}
	eulerBytes := make([]byte, poseEulerSize)
	if _, err := io.ReadFull(r, eulerBytes); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe pose euler")
	}
	euler, err := DecodePoseEuler(eulerBytes)
	if err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: decoding keyframe pose euler")
	}
	var flags uint32
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return slamtypes.Keyframe{}, errors.Wrap(err, "wire: reading keyframe flags")
	}
	return slamtypes.Keyframe{
		ID: id, ParentID: parentID, MapID: mapID, Timestamp: timestamp,
		Pose: pose, PoseEuler: euler, Flags: slamtypes.KeyframeFlags(flags),
	}, nil
}

// DecodeIDArray decodes a null-terminated uint64 array, stopping at the
// first zero ID or the end of data, per the device's convention for
// variable-length looped/connected keyframe ID lists.
func DecodeIDArray(r io.Reader) ([]uint64, error) {
	var ids []uint64
	for {
		var id uint64
		err := binary.Read(r, binary.LittleEndian, &id)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return ids, nil
		}
		if err != nil {
			return nil, errors.Wrap(err, "wire: reading id array entry")
		}
		if id == idArrayTerminator {
			return ids, nil
		}
		ids = append(ids, id)
	}
}

// EncodeIDArray is the inverse of DecodeIDArray: it writes each ID
// followed by a zero terminator.
func EncodeIDArray(ids []uint64) []byte {
	buf := new(bytes.Buffer)
	buf.Grow((len(ids) + 1) * 8)
	for _, id := range ids {
		_ = binary.Write(buf, binary.LittleEndian, id)
	}
	_ = binary.Write(buf, binary.LittleEndian, idArrayTerminator)
	return buf.Bytes()
}

// DecodeMapDescriptor decodes a per-map summary record.
func DecodeMapDescriptor(data []byte) (slamtypes.MapDescriptor, error) {
	if len(data) < mapDescriptorSize {
		return slamtypes.MapDescriptor{}, errors.Errorf("wire: map descriptor too short: got %d want %d", len(data), mapDescriptorSize)
	}
	r := bytes.NewReader(data)
	var mapID, mapPointCount, keyframeCount uint32
	if err := binary.Read(r, binary.LittleEndian, &mapID); err != nil {
		return slamtypes.MapDescriptor{}, errors.Wrap(err, "wire: reading map descriptor map id")
	}
	if err := binary.Read(r, binary.LittleEndian, &mapPointCount); err != nil {
		return slamtypes.MapDescriptor{}, errors.Wrap(err, "wire: reading map point count")
	}
	if err := binary.Read(r, binary.LittleEndian, &keyframeCount); err != nil {
		return slamtypes.MapDescriptor{}, errors.Wrap(err, "wire: reading keyframe count")
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.MapDescriptor{}, errors.Wrap(err, "wire: skipping padding")
	}
	var minMP, maxMP, minKF, maxKF uint64
	for _, f := range []*uint64{&minMP, &maxMP, &minKF, &maxKF} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return slamtypes.MapDescriptor{}, errors.Wrap(err, "wire: reading map descriptor id range")
		}
	}
	return slamtypes.MapDescriptor{
		MapID: mapID, MapPointCount: mapPointCount, KeyframeCount: keyframeCount,
		MinMapPointID: minMP, MaxMapPointID: maxMP, MinKeyframeID: minKF, MaxKeyframeID: maxKF,
	}, nil
}

// DecodeGlobalMapDesc decodes the global mapping summary record.
func DecodeGlobalMapDesc(data []byte) (slamtypes.GlobalMapDesc, error) {
	if len(data) < globalMapDescSize {
		return slamtypes.GlobalMapDesc{}, errors.Errorf("wire: global map desc too short: got %d want %d", len(data), globalMapDescSize)
	}
	r := bytes.NewReader(data)
	var totalKF, totalMP, totalMaps, totalKFFetched, totalMPFetched uint32
	for _, f := range []*uint32{&totalKF, &totalMP, &totalMaps, &totalKFFetched, &totalMPFetched} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading global map desc counts")
		}
	}
	if _, err := r.Seek(4, 1); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: skipping padding")
	}
	var activeKeyframeID, activeMapPointID uint64
	if err := binary.Read(r, binary.LittleEndian, &activeKeyframeID); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading active keyframe id")
	}
	if err := binary.Read(r, binary.LittleEndian, &activeMapPointID); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading active map point id")
	}
	var activeMapID, mappingFlags uint32
	if err := binary.Read(r, binary.LittleEndian, &activeMapID); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading active map id")
	}
	if err := binary.Read(r, binary.LittleEndian, &mappingFlags); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading mapping flags")
	}
	var slidingWindowStartKFID uint64
	if err := binary.Read(r, binary.LittleEndian, &slidingWindowStartKFID); err != nil {
		return slamtypes.GlobalMapDesc{}, errors.Wrap(err, "wire: reading sliding window start keyframe id")
	}
	return slamtypes.GlobalMapDesc{
		TotalKeyframeCount: totalKF, TotalMapPointCount: totalMP, TotalMapCount: totalMaps,
		TotalKeyframeCountFetched: totalKFFetched, TotalMapPointCountFetched: totalMPFetched,
		ActiveKeyframeID: activeKeyframeID, ActiveMapPointID: activeMapPointID,
		ActiveMapID: activeMapID, MappingFlags: mappingFlags,
		SlidingWindowStartKFID: slidingWindowStartKFID,
	}, nil
}
