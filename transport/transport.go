// Package transport owns the single TCP connection to a device and
// serializes every request through one goroutine, so no two goroutines
// ever write to the connection concurrently. This mirrors the
// cartofacade package's single-goroutine serialization of calls into a
// shared resource, generalized from a CGo boundary to a socket.
package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/viam-modules/slam-device-sdk/sdkerrors"
	"github.com/viam-modules/slam-device-sdk/slamtypes"
	"github.com/viam-modules/slam-device-sdk/wire"
)

// DefaultDiscoveryTimeout bounds a passive discovery listen.
const DefaultDiscoveryTimeout = 5 * time.Second

// Interface is the surface every component package depends on, so
// tests can substitute a scripted fake instead of a live device
// connection, mirroring cartofacade.Interface's role for CartoFacade.
type Interface interface {
	Call(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error)
	Close() error
	IsAlive() bool
}

// StreamHandler is invoked, off the request goroutine, for every
// unsolicited stream-event frame the device pushes (pose updates, lidar
// scans, IMU samples, camera preview frames). The read loop calls the
// handler synchronously and drops no frames, so a slow handler delays
// every later frame, responses included.
type StreamHandler func(body []byte)

// request is one queued unit of work for the connection goroutine, in
// the shape of cartofacade.Request: a response channel plus the inputs
// needed to perform the call.
type request struct {
	kind         wire.MessageKind
	body         []byte
	responseChan chan response
}

type response struct {
	kind wire.MessageKind
	body []byte
	err  error
}

// Conn is a live connection to one device. All exported methods are
// safe for concurrent use; Call requests are serialized through a
// single background goroutine so the underlying net.Conn never sees
// concurrent writes.
type Conn struct {
	conn        net.Conn
	requestChan chan request
	streamCh    StreamHandler
	pending     pendingQueue

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// pendingQueue is a FIFO of response channels awaiting a reply frame.
// The device answers requests in the order it received them, so the
// oldest pending request always matches the next response frame.
type pendingQueue struct {
	mu    sync.Mutex
	chans []chan response
}

func (q *pendingQueue) add(ch chan response) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.chans = append(q.chans, ch)
}

func (q *pendingQueue) takeOldest() (chan response, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.chans) == 0 {
		return nil, false
	}
	ch := q.chans[0]
	q.chans = q.chans[1:]
	return ch, true
}

func (q *pendingQueue) failAll(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, ch := range q.chans {
		ch <- response{err: err}
	}
	q.chans = nil
}

// Dial opens a TCP connection to the given connection option and starts
// the serialized request loop. onStreamEvent may be nil if the caller
// does not need unsolicited stream frames.
func Dial(ctx context.Context, opt slamtypes.ConnectionOption, onStreamEvent StreamHandler) (*Conn, error) {
	if opt.Protocol != slamtypes.ProtocolTCP {
		return nil, errors.Errorf("transport: unsupported protocol %q", opt.Protocol)
	}
	addr := net.JoinHostPort(opt.Address, itoa(opt.Port))

	var d net.Dialer
	rawConn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dialing %s", addr)
	}

	c := &Conn{
		conn:        rawConn,
		requestChan: make(chan request),
		streamCh:    onStreamEvent,
		done:        make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Discover listens for the device's broadcast connection-info record
// and returns the endpoints it advertises. Discovery is passive: it
// waits for the device to announce itself rather than actively probing
// addresses.
func Discover(ctx context.Context, listener net.Listener) ([]slamtypes.DeviceEndpoint, error) {
	type acceptResult struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan acceptResult, 1)
	go func() {
		conn, err := listener.Accept()
		acceptCh <- acceptResult{conn, err}
	}()

	select {
	case <-ctx.Done():
		return nil, multierr.Combine(errors.New("transport: discovery cancelled"), ctx.Err())
	case res := <-acceptCh:
		if res.err != nil {
			return nil, errors.Wrap(res.err, "transport: accepting discovery connection")
		}
		defer res.conn.Close()
		_, body, err := wire.ReadFrame(res.conn)
		if err != nil {
			return nil, errors.Wrap(err, "transport: reading discovery frame")
		}
		endpoints, err := wire.DecodeServerConnectionInfo(body)
		if err != nil {
			return nil, errors.Wrap(err, "transport: decoding discovery frame")
		}
		return endpoints, nil
	}
}

// Call sends a request frame and blocks for the matching response
// frame, honoring ctx's deadline the way cartofacade.request races the
// response channel against ctx.Done.
func (c *Conn) Call(ctx context.Context, kind wire.MessageKind, body []byte) ([]byte, error) {
	req := request{
		kind:         kind,
		body:         body,
		responseChan: make(chan response, 1),
	}

	select {
	case c.requestChan <- req:
		select {
		case res := <-req.responseChan:
			return res.body, res.err
		case <-ctx.Done():
			return nil, multierr.Combine(errors.New("transport: timeout awaiting response"), ctx.Err())
		}
	case <-ctx.Done():
		return nil, multierr.Combine(errors.New("transport: timeout sending request"), ctx.Err())
	case <-c.done:
		return nil, sdkerrors.ErrNotConnected
	}
}

// writeLoop is the single goroutine permitted to write requests onto
// the connection, started by readLoop. All writes funnel through this
// one goroutine so the connection never sees concurrent writers.
func (c *Conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case req := <-c.requestChan:
			err := wire.WriteFrame(c.conn, req.kind, req.body)
			if err != nil {
				req.responseChan <- response{err: errors.Wrap(err, "transport: writing request frame")}
				continue
			}
			c.pending.add(req.responseChan)
		}
	}
}

// readLoop owns the socket read side: it demultiplexes response frames
// to the oldest pending request and forwards stream-event frames to
// the stream handler, then exits when the connection closes.
func (c *Conn) readLoop() {
	go c.writeLoop()
	defer close(c.done)
	for {
		kind, body, err := wire.ReadFrame(c.conn)
		if err != nil {
			c.pending.failAll(errors.Wrap(err, "transport: connection closed"))
			return
		}
		switch kind {
		case wire.KindStreamEvent:
			if c.streamCh != nil {
				c.streamCh(body)
			}
		default:
			ch, ok := c.pending.takeOldest()
			if !ok {
				continue
			}
			ch <- response{kind: kind, body: body}
		}
	}
}

// Close shuts down the connection and unblocks any in-flight Call.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// IsAlive reports whether the connection's read loop is still running.
func (c *Conn) IsAlive() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func itoa(port uint16) string {
	return strconv.Itoa(int(port))
}
