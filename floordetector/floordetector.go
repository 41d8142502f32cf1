// Package floordetector reports per-height-bin LiDAR point histograms
// and the device's detected floor levels, per §4.5.
package floordetector

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/internal/opcall"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// FloorDetector reads the device's floor-height histogram and detected
// floor levels.
type FloorDetector struct {
	transport func() (transport.Interface, error)
}

// New builds a FloorDetector.
func New(transportFn func() (transport.Interface, error)) *FloorDetector {
	return &FloorDetector{transport: transportFn}
}

func (f *FloorDetector) call(ctx context.Context, op wire.OpCode, payload []byte, timeout time.Duration) ([]byte, error) {
	t, err := f.transport()
	if err != nil {
		return nil, err
	}
	return opcall.Do(ctx, t, op, payload, timeout)
}

const floorHistogramInfoWireSize = 8 + 8 + 4 + 4

// DetectionHistogram fetches the current per-height-bin point count
// histogram used for floor detection.
func (f *FloorDetector) DetectionHistogram(ctx context.Context, timeout time.Duration) (slamtypes.FloorHistogram, error) {
	resp, err := f.call(ctx, wire.OpDetectionHistogram, nil, timeout)
	if err != nil {
		return slamtypes.FloorHistogram{}, err
	}
	if len(resp) < floorHistogramInfoWireSize {
		return slamtypes.FloorHistogram{}, errors.New("floordetector: short detection histogram response")
	}
	info, err := wire.DecodeFloorHistogramInfo(resp[:floorHistogramInfoWireSize])
	if err != nil {
		return slamtypes.FloorHistogram{}, err
	}
	values, err := wire.DecodeFloorHistogramValues(resp[floorHistogramInfoWireSize:])
	if err != nil {
		return slamtypes.FloorHistogram{}, err
	}
	return slamtypes.FloorHistogram{Info: info, Values: values}, nil
}

const floorDescriptorWireSize = 4 + 4 + 8 + 8

// AllDetectionInfo fetches up to maxFloors detected floor descriptors
// and the ID of the currently active floor.
func (f *FloorDetector) AllDetectionInfo(ctx context.Context, maxFloors int, timeout time.Duration) ([]slamtypes.FloorDescriptor, int32, error) {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, uint32(maxFloors))
	resp, err := f.call(ctx, wire.OpAllDetectionInfo, payload, timeout)
	if err != nil {
		return nil, 0, err
	}
	if len(resp) < 4 {
		return nil, 0, errors.New("floordetector: short all_detection_info response")
	}
	currentFloorID := int32(binary.LittleEndian.Uint32(resp[:4]))
	rest := resp[4:]
	if len(rest)%floorDescriptorWireSize != 0 {
		return nil, 0, errors.New("floordetector: malformed floor descriptor list")
	}
	count := len(rest) / floorDescriptorWireSize
	out := make([]slamtypes.FloorDescriptor, 0, count)
	for i := 0; i < count; i++ {
		desc, err := wire.DecodeFloorDescriptor(rest[i*floorDescriptorWireSize : (i+1)*floorDescriptorWireSize])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "floordetector: decoding floor descriptor %d", i)
		}
		out = append(out, desc)
	}
	return out, currentFloorID, nil
}

// CurrentDetectionDesc fetches the descriptor of the floor the device
// currently believes it is on.
func (f *FloorDetector) CurrentDetectionDesc(ctx context.Context, timeout time.Duration) (slamtypes.FloorDescriptor, error) {
	resp, err := f.call(ctx, wire.OpCurrentDetectionDesc, nil, timeout)
	if err != nil {
		return slamtypes.FloorDescriptor{}, err
	}
	return wire.DecodeFloorDescriptor(resp)
}
