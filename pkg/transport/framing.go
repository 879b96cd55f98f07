package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/airspeed-wireless/airspeed-go/pkg/log"
	"github.com/airspeed-wireless/airspeed-go/pkg/wire"
)

// Framing constants.
const (
	// DefaultMaxFramePayload is the largest frame payload accepted by
	// default. Far above any ATT PDU the MTU cap allows, it only
	// guards against garbage lengths.
	DefaultMaxFramePayload = 4096

	// MaxLogFrameDataSize caps frame data copied into log events.
	// Larger payloads are truncated in the event, never on the wire.
	MaxLogFrameDataSize = 512
)

// Framing errors.
var (
	// ErrFrameTooLarge indicates a frame payload above the limit.
	ErrFrameTooLarge = errors.New("transport: frame too large")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("transport: frame truncated")
)

// FrameWriter writes L2CAP frames to an underlying writer.
type FrameWriter struct {
	w          io.Writer
	maxPayload int
	mu         sync.Mutex
	sealer     *Sealer

	logger log.Logger
	connID string
}

// NewFrameWriter creates a frame writer with the default payload
// limit.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, maxPayload: DefaultMaxFramePayload}
}

// SetLogger configures frame logging. Pass nil to disable.
func (fw *FrameWriter) SetLogger(logger log.Logger, connID string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.logger = logger
	fw.connID = connID
}

// SetSealer switches the writer into sealed mode. Takes effect for
// the next frame.
func (fw *FrameWriter) SetSealer(s *Sealer) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.sealer = s
}

// WriteFrame writes one frame. Safe for concurrent use.
func (fw *FrameWriter) WriteFrame(f wire.Frame) error {
	if len(f.Payload) > fw.maxPayload {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(f.Payload), fw.maxPayload)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	payload := f.Payload
	if fw.sealer != nil {
		var err error
		payload, err = fw.sealer.seal(f.Channel, payload)
		if err != nil {
			return err
		}
	}

	buf, err := wire.EncodeFrame(wire.Frame{Channel: f.Channel, Payload: payload})
	if err != nil {
		return err
	}
	if _, err := fw.w.Write(buf); err != nil {
		return fmt.Errorf("transport: write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.connID, log.DirectionOut, f))
	}
	return nil
}

// FrameReader reads L2CAP frames from an underlying reader.
type FrameReader struct {
	r          io.Reader
	maxPayload int
	headerBuf  [wire.L2CAPHeaderSize]byte

	mu     sync.Mutex
	sealer *Sealer

	logger log.Logger
	connID string
}

// NewFrameReader creates a frame reader with the default payload
// limit.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, maxPayload: DefaultMaxFramePayload}
}

// SetLogger configures frame logging. Pass nil to disable.
func (fr *FrameReader) SetLogger(logger log.Logger, connID string) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.logger = logger
	fr.connID = connID
}

// SetSealer switches the reader into sealed mode. Takes effect for
// the next frame.
func (fr *FrameReader) SetSealer(s *Sealer) {
	fr.mu.Lock()
	defer fr.mu.Unlock()
	fr.sealer = s
}

// ReadFrame reads one frame. io.EOF between frames means a clean
// stream end; inside a frame it becomes ErrFrameTruncated.
func (fr *FrameReader) ReadFrame() (wire.Frame, error) {
	if _, err := io.ReadFull(fr.r, fr.headerBuf[:]); err != nil {
		if err == io.EOF {
			return wire.Frame{}, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return wire.Frame{}, ErrFrameTruncated
		}
		return wire.Frame{}, fmt.Errorf("transport: read frame header: %w", err)
	}

	length := int(binary.LittleEndian.Uint16(fr.headerBuf[0:2]))
	channel := wire.ChannelID(binary.LittleEndian.Uint16(fr.headerBuf[2:4]))
	if length > fr.maxPayload {
		return wire.Frame{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, fr.maxPayload)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return wire.Frame{}, ErrFrameTruncated
		}
		return wire.Frame{}, fmt.Errorf("transport: read frame payload: %w", err)
	}

	fr.mu.Lock()
	sealer := fr.sealer
	logger, connID := fr.logger, fr.connID
	fr.mu.Unlock()

	if sealer != nil {
		var err error
		payload, err = sealer.open(channel, payload)
		if err != nil {
			return wire.Frame{}, err
		}
	}

	f := wire.Frame{Channel: channel, Payload: payload}
	if logger != nil {
		logger.Log(makeFrameEvent(connID, log.DirectionIn, f))
	}
	return f, nil
}

// Framer combines frame reading and writing over one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

// NewFramer creates a framer for bidirectional traffic.
func NewFramer(rw io.ReadWriter) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw),
		FrameWriter: NewFrameWriter(rw),
	}
}

// SetLogger configures logging for both directions.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.SetLogger(logger, connID)
	f.FrameWriter.SetLogger(logger, connID)
}

// SetSealer switches both directions into sealed mode.
func (f *Framer) SetSealer(s *Sealer) {
	f.FrameReader.SetSealer(s)
	f.FrameWriter.SetSealer(s)
}

func makeFrameEvent(connID string, direction log.Direction, f wire.Frame) log.Event {
	data := f.Payload
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		data = data[:MaxLogFrameDataSize]
		truncated = true
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    direction,
		Layer:        log.LayerLink,
		Category:     log.CategoryPacket,
		Frame: &log.FrameEvent{
			Size:      wire.L2CAPHeaderSize + len(f.Payload),
			Channel:   uint16(f.Channel),
			Data:      cp,
			Truncated: truncated,
		},
	}
}
