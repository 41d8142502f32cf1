package transport_test

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/transport"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// fakeDevice echoes every request frame back as a response frame of the
// same kind, and optionally pushes one stream-event frame on start.
func fakeDevice(t *testing.T, conn net.Conn, streamBody []byte) {
	t.Helper()
	go func() {
		defer conn.Close()
		if streamBody != nil {
			_ = wire.WriteFrame(conn, wire.KindStreamEvent, streamBody)
		}
		for {
			kind, body, err := wire.ReadFrame(conn)
			if err != nil {
				return
			}
			if err := wire.WriteFrame(conn, kind, body); err != nil {
				return
			}
		}
	}()
}

func listenAndDial(t *testing.T, streamBody []byte, onStream transport.StreamHandler) (*transport.Conn, func()) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		test.That(t, err, test.ShouldBeNil)
		accepted <- conn
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	test.That(t, err, test.ShouldBeNil)
	port, err := strconv.Atoi(portStr)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := transport.Dial(ctx, slamtypes.ConnectionOption{
		Protocol: slamtypes.ProtocolTCP,
		Address:  host,
		Port:     uint16(port),
	}, onStream)
	test.That(t, err, test.ShouldBeNil)

	serverConn := <-accepted
	fakeDevice(t, serverConn, streamBody)

	return conn, func() {
		conn.Close()
		listener.Close()
	}
}

func TestConnCallRoundTrip(t *testing.T) {
	conn, cleanup := listenAndDial(t, nil, nil)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	body, err := conn.Call(ctx, wire.KindRequest, []byte("ping"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(body), test.ShouldEqual, "ping")
}

func TestConnCallTimesOut(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	test.That(t, err, test.ShouldBeNil)
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		test.That(t, err, test.ShouldBeNil)
		accepted <- conn
	}()

	host, portStr, err := net.SplitHostPort(listener.Addr().String())
	test.That(t, err, test.ShouldBeNil)
	port, err := strconv.Atoi(portStr)
	test.That(t, err, test.ShouldBeNil)

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	conn, err := transport.Dial(dialCtx, slamtypes.ConnectionOption{
		Protocol: slamtypes.ProtocolTCP, Address: host, Port: uint16(port),
	}, nil)
	test.That(t, err, test.ShouldBeNil)
	defer conn.Close()

	serverConn := <-accepted
	defer serverConn.Close() // never replies

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = conn.Call(ctx, wire.KindRequest, []byte("ping"))
	test.That(t, err, test.ShouldBeError)
}

func TestConnStreamHandler(t *testing.T) {
	var mu sync.Mutex
	var received []byte
	gotStream := make(chan struct{})

	conn, cleanup := listenAndDial(t, []byte("pose-update"), func(body []byte) {
		mu.Lock()
		received = body
		mu.Unlock()
		close(gotStream)
	})
	defer cleanup()

	select {
	case <-gotStream:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for stream event")
	}

	mu.Lock()
	defer mu.Unlock()
	test.That(t, string(received), test.ShouldEqual, "pose-update")
}

func TestConnIsAliveAfterClose(t *testing.T) {
	conn, cleanup := listenAndDial(t, nil, nil)
	test.That(t, conn.IsAlive(), test.ShouldBeTrue)
	conn.Close()
	cleanup()

	// give the read loop a moment to observe the closed socket
	time.Sleep(50 * time.Millisecond)
	test.That(t, conn.IsAlive(), test.ShouldBeFalse)
}
