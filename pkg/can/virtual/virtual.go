package virtual

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	r48 "github.com/samsamfire/gor48"
	can "github.com/samsamfire/gor48/pkg/can"
	log "github.com/sirupsen/logrus"
)

// Virtual CAN bus over TCP, used for bench testing against a simulated
// rectifier. A broker relays every frame to all connected clients.
// More information : https://github.com/windelbouwman/virtualcan

const (
	frameSize           = 14 // ID, flags, DLC, data
	maxFrameLength      = 64
	DefaultWriteTimeout = 10 * time.Millisecond
)

var ErrFrameLength = errors.New("invalid virtual frame length")

func init() {
	can.RegisterInterface("virtual", NewVirtualCanBus)
	can.RegisterInterface("virtualcan", NewVirtualCanBus)
}

type Bus struct {
	logger       *log.Entry
	mu           sync.Mutex
	channel      string
	conn         net.Conn
	receiveOwn   bool
	listener     r48.FrameListener
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	writeTimeout time.Duration
}

func NewVirtualCanBus(channel string) (r48.Bus, error) {
	return &Bus{
		channel:      channel,
		logger:       log.WithFields(log.Fields{"service": "[VCAN]", "channel": channel}),
		writeTimeout: DefaultWriteTimeout,
	}, nil
}

// Length prefixed big endian frame
func serializeFrame(frame r48.Frame) ([]byte, error) {
	buffer := new(bytes.Buffer)
	buffer.Grow(4 + frameSize)
	if err := binary.Write(buffer, binary.BigEndian, uint32(frameSize)); err != nil {
		return nil, err
	}
	if err := binary.Write(buffer, binary.BigEndian, frame); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func deserializeFrame(buffer []byte) (*r48.Frame, error) {
	var frame r48.Frame
	err := binary.Read(bytes.NewReader(buffer), binary.BigEndian, &frame)
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// Read one frame, blocks until it is complete whatever the TCP segmentation
func readFrame(r io.Reader) (*r48.Frame, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length < frameSize || length > maxFrameLength {
		return nil, fmt.Errorf("%w : %d", ErrFrameLength, length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return deserializeFrame(body[:frameSize])
}

// "Connect" to the broker e.g. localhost:18888
func (b *Bus) Connect(...any) error {
	conn, err := net.Dial("tcp", b.channel)
	if err != nil {
		return err
	}
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			conn.Close()
			return err
		}
	}
	b.start(conn)
	return nil
}

// Start receiving on an established connection
func (b *Bus) start(conn net.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	b.mu.Lock()
	b.conn = conn
	b.cancel = cancel
	b.mu.Unlock()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.handleReception(ctx, conn)
	}()
}

// "Disconnect" from the broker, closing the connection unblocks reception
func (b *Bus) Disconnect() error {
	b.mu.Lock()
	conn, cancel := b.conn, b.cancel
	b.conn, b.cancel = nil, nil
	b.mu.Unlock()
	if conn == nil {
		return nil
	}
	cancel()
	err := conn.Close()
	b.wg.Wait()
	return err
}

// "Send" implementation of Bus interface
func (b *Bus) Send(frame r48.Frame) error {
	b.mu.Lock()
	conn, listener, receiveOwn := b.conn, b.listener, b.receiveOwn
	b.mu.Unlock()

	// Local loopback
	if receiveOwn && listener != nil {
		listener.Handle(frame)
	}
	if conn == nil {
		if receiveOwn {
			return nil
		}
		return r48.ErrNoBus
	}
	raw, err := serializeFrame(frame)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
	_, err = conn.Write(raw)
	return err
}

// "Subscribe" implementation of Bus interface
func (b *Bus) Subscribe(listener r48.FrameListener) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listener = listener
	return nil
}

func (b *Bus) handleReception(ctx context.Context, conn net.Conn) {
	for {
		frame, err := readFrame(conn)
		if err != nil {
			if ctx.Err() == nil {
				b.logger.Errorf("reception stopped : %v", err)
			}
			return
		}
		b.mu.Lock()
		listener := b.listener
		b.mu.Unlock()
		if listener != nil {
			listener.Handle(*frame)
		}
	}
}

func (b *Bus) SetReceiveOwn(receiveOwn bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.receiveOwn = receiveOwn
}
