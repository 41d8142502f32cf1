package slamtypes

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ConnectTarget is a sum type over the two ways a caller may address a
// device: a previously-discovered DeviceEndpoint, or a raw connection
// string. This recasts the source's keyword-dispatched "connect"
// duck typing into an explicit sum type, per the Design Notes (§9).
type ConnectTarget struct {
	Endpoint *DeviceEndpoint
	String   string
}

// TargetFromEndpoint builds a ConnectTarget from a discovered endpoint.
func TargetFromEndpoint(e DeviceEndpoint) ConnectTarget { return ConnectTarget{Endpoint: &e} }

// TargetFromString builds a ConnectTarget from a connection string.
func TargetFromString(s string) ConnectTarget { return ConnectTarget{String: s} }

// ResolveOption resolves the target into one concrete connection option,
// accepting either "<ip>" (defaults applied) or
// "<protocol>://<ip>:<port>", per the connection-string grammar in §6.
func (t ConnectTarget) ResolveOption() (ConnectionOption, error) {
	if t.Endpoint != nil {
		if len(t.Endpoint.Options) == 0 {
			return ConnectionOption{}, errors.New("slamtypes: endpoint has no connection options")
		}
		return t.Endpoint.Options[0], nil
	}
	return ParseConnectionString(t.String)
}

// ParseConnectionString parses "<ip>" or "<protocol>://<ip>:<port>" into
// a ConnectionOption, defaulting to TCP on DefaultPort.
func ParseConnectionString(s string) (ConnectionOption, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ConnectionOption{}, errors.New("slamtypes: empty connection string")
	}

	protocol := ProtocolTCP
	rest := s
	if idx := strings.Index(s, "://"); idx >= 0 {
		protocol = Protocol(s[:idx])
		rest = s[idx+3:]
	}

	host := rest
	port := uint16(DefaultPort)
	if idx := strings.LastIndex(rest, ":"); idx >= 0 {
		host = rest[:idx]
		parsed, err := strconv.ParseUint(rest[idx+1:], 10, 16)
		if err != nil {
			return ConnectionOption{}, errors.Wrapf(err, "slamtypes: invalid port in %q", s)
		}
		port = uint16(parsed)
	}
	if host == "" {
		return ConnectionOption{}, errors.Errorf("slamtypes: missing address in %q", s)
	}

	return ConnectionOption{Protocol: protocol, Address: host, Port: port}, nil
}
