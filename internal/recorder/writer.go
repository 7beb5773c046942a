package recorder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"main/internal/schema"
)

var ErrClosed = errors.New("journal writer closed")

const (
	defaultSegmentMaxBytes int64 = 256 << 20
	defaultBufferSize            = 64 * 1024
	defaultFilePrefix            = "journal"
	segmentSuffix                = ".tkj"
)

// Config controls journal writer behavior.
type Config struct {
	Dir             string
	FilePrefix      string
	SegmentMaxBytes int64
	BufferSize      int
	SyncOnAppend    bool
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = defaultSegmentMaxBytes
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	return c
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("invalid journal config: Dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return fmt.Errorf("invalid journal config: SegmentMaxBytes must be > 0")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("invalid journal config: BufferSize must be > 0")
	}
	return nil
}

// Writer appends framed events to journal segments. Appends are
// serialized by an internal mutex; rotation happens on segment size.
type Writer struct {
	cfg Config

	mu          sync.Mutex
	file        *os.File
	buf         *bufio.Writer
	written     int64
	segID       uint64
	headerBuf   []byte
	checksumBuf [recordChecksumSize]byte
	closed      bool
}

// NewWriter creates a journal writer and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	return &Writer{
		cfg:       cfg,
		headerBuf: make([]byte, recordHeaderSize),
	}, nil
}

// Append frames the event and writes it to the current segment.
func (w *Writer) Append(header schema.EventHeader, payload []byte) error {
	if uint64(len(payload)) > maxPayloadLen {
		return ErrPayloadTooLarge
	}
	if header.Version == 0 {
		header.Version = schema.SchemaVersion
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}

	recordSize := int64(recordHeaderSize + len(payload) + recordChecksumSize)
	if w.file == nil || w.written+recordSize > w.cfg.SegmentMaxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	encodeHeader(w.headerBuf, header, len(payload))
	putChecksum(w.checksumBuf[:], checksum(w.headerBuf, payload))

	if _, err := w.buf.Write(w.headerBuf); err != nil {
		return err
	}
	if len(payload) > 0 {
		if _, err := w.buf.Write(payload); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(w.checksumBuf[:]); err != nil {
		return err
	}
	w.written += recordSize

	if w.cfg.SyncOnAppend {
		if err := w.buf.Flush(); err != nil {
			return err
		}
		return w.file.Sync()
	}
	return nil
}

// Flush pushes buffered records to the OS.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.buf == nil {
		return nil
	}
	return w.buf.Flush()
}

// Close flushes and closes the current segment.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.closeSegment()
}

func (w *Writer) rotate() error {
	if err := w.closeSegment(); err != nil {
		return err
	}
	w.segID++
	name := fmt.Sprintf("%s-%06d-%s%s",
		w.cfg.FilePrefix, w.segID, time.Now().UTC().Format("20060102T150405"), segmentSuffix)
	file, err := os.OpenFile(filepath.Join(w.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	w.file = file
	w.buf = bufio.NewWriterSize(file, w.cfg.BufferSize)
	w.written = 0
	return nil
}

func (w *Writer) closeSegment() error {
	if w.file == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	err := w.file.Close()
	w.file = nil
	w.buf = nil
	return err
}
