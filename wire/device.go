package wire

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
)

const (
	protocolFieldWidth = 16
	addressFieldWidth  = 64
	maxConnectionCount = 8

	connectionOptionSize   = protocolFieldWidth + addressFieldWidth + 2
	serverConnectionInfoSize = connectionOptionSize*maxConnectionCount + 4

	modelNumberFieldWidth     = 32
	firmwareVersionFieldWidth = 32
	deviceBasicInfoSize       = modelNumberFieldWidth + firmwareVersionFieldWidth + 16 + 4 /*pad*/ + 8 + 4 + 4 + 4 + 4 /*pad*/ + 8
)

// DecodeServerConnectionInfo decodes the device discovery record: up to
// 8 (protocol, address, port) tuples plus a count.
func DecodeServerConnectionInfo(data []byte) ([]slamtypes.DeviceEndpoint, error) {
	if len(data) < serverConnectionInfoSize {
		return nil, errors.Errorf("wire: server connection info too short: got %d want %d", len(data), serverConnectionInfoSize)
	}
	entries := data[:connectionOptionSize*maxConnectionCount]
	count := binary.LittleEndian.Uint32(data[connectionOptionSize*maxConnectionCount:])
	if count > maxConnectionCount {
		return nil, errors.Errorf("wire: server connection info count %d exceeds max %d", count, maxConnectionCount)
	}

	endpoints := make([]slamtypes.DeviceEndpoint, 0, count)
	for i := uint32(0); i < count; i++ {
		entry := entries[i*connectionOptionSize : (i+1)*connectionOptionSize]
		protocol := readString(entry[:protocolFieldWidth])
		address := readString(entry[protocolFieldWidth : protocolFieldWidth+addressFieldWidth])
		port := binary.LittleEndian.Uint16(entry[protocolFieldWidth+addressFieldWidth:])
		endpoints = append(endpoints, slamtypes.DeviceEndpoint{
			Name: address,
			Options: []slamtypes.ConnectionOption{{
				Protocol: slamtypes.Protocol(protocol),
				Address:  address,
				Port:     port,
			}},
		})
	}
	return endpoints, nil
}

// EncodeServerConnectionInfo is the inverse of DecodeServerConnectionInfo,
// used by the transport's test fakes to script discovery responses.
func EncodeServerConnectionInfo(endpoints []slamtypes.DeviceEndpoint) ([]byte, error) {
	if len(endpoints) > maxConnectionCount {
		return nil, errors.Errorf("wire: %d endpoints exceeds max %d", len(endpoints), maxConnectionCount)
	}
	buf := make([]byte, serverConnectionInfoSize)
	for i, ep := range endpoints {
		if len(ep.Options) == 0 {
			return nil, errors.Errorf("wire: endpoint %q has no connection options", ep.Name)
		}
		opt := ep.Options[0]
		entry := buf[i*connectionOptionSize : (i+1)*connectionOptionSize]
		putString(entry[:protocolFieldWidth], string(opt.Protocol))
		putString(entry[protocolFieldWidth:protocolFieldWidth+addressFieldWidth], opt.Address)
		binary.LittleEndian.PutUint16(entry[protocolFieldWidth+addressFieldWidth:], opt.Port)
	}
	binary.LittleEndian.PutUint32(buf[connectionOptionSize*maxConnectionCount:], uint32(len(endpoints)))
	return buf, nil
}

// DecodeDeviceBasicInfo decodes the device identity/capability record.
func DecodeDeviceBasicInfo(data []byte) (slamtypes.DeviceBasicInfo, error) {
	if len(data) < deviceBasicInfoSize {
		return slamtypes.DeviceBasicInfo{}, errors.Errorf("wire: device basic info too short: got %d want %d", len(data), deviceBasicInfoSize)
	}
	r := bytes.NewReader(data)

	modelBytes := make([]byte, modelNumberFieldWidth)
	if _, err := io.ReadFull(r, modelBytes); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading model number")
	}
	fwBytes := make([]byte, firmwareVersionFieldWidth)
	if _, err := io.ReadFull(r, fwBytes); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading firmware version")
	}
	var serial [16]byte
	if _, err := io.ReadFull(r, serial[:]); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading serial number")
	}
	if _, err := r.Seek(4, 1); err != nil { // padding before the 8-byte-aligned uptime field
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: skipping padding")
	}

	var uptime uint64
	if err := binary.Read(r, binary.LittleEndian, &uptime); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading uptime")
	}
	var hw, sensing, software uint32
	if err := binary.Read(r, binary.LittleEndian, &hw); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading hardware features")
	}
	if err := binary.Read(r, binary.LittleEndian, &sensing); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading sensing features")
	}
	if err := binary.Read(r, binary.LittleEndian, &software); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading software features")
	}
	if _, err := r.Seek(4, 1); err != nil { // padding before the 8-byte-aligned timestamp field
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: skipping padding")
	}
	var capturedUnixNanos int64
	if err := binary.Read(r, binary.LittleEndian, &capturedUnixNanos); err != nil {
		return slamtypes.DeviceBasicInfo{}, errors.Wrap(err, "wire: reading captured timestamp")
	}

	return slamtypes.DeviceBasicInfo{
		ModelNumber:      readString(modelBytes),
		FirmwareVersion:  readString(fwBytes),
		SerialNumber:     serial,
		UptimeSeconds:    uptime,
		HardwareFeatures: hw,
		SensingFeatures:  sensing,
		SoftwareFeatures: software,
		CapturedAt:       time.Unix(0, capturedUnixNanos).UTC(),
	}, nil
}

// EncodeDeviceBasicInfo is the inverse of DecodeDeviceBasicInfo.
func EncodeDeviceBasicInfo(info slamtypes.DeviceBasicInfo) []byte {
	buf := make([]byte, deviceBasicInfoSize)
	off := 0
	putString(buf[off:off+modelNumberFieldWidth], info.ModelNumber)
	off += modelNumberFieldWidth
	putString(buf[off:off+firmwareVersionFieldWidth], info.FirmwareVersion)
	off += firmwareVersionFieldWidth
	copy(buf[off:off+16], info.SerialNumber[:])
	off += 16
	off += 4 // padding
	binary.LittleEndian.PutUint64(buf[off:], info.UptimeSeconds)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], info.HardwareFeatures)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], info.SensingFeatures)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], info.SoftwareFeatures)
	off += 4
	off += 4 // padding
	binary.LittleEndian.PutUint64(buf[off:], uint64(info.CapturedAt.UnixNano()))
	return buf
}
