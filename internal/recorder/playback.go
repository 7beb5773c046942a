package recorder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"main/internal/model"
	"main/internal/schema"
)

// PlaybackConfig controls journal playback behavior. Speed 0 replays as
// fast as the handlers allow; 1 paces at recorded time, 2 at twice it.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	UseRecvTime     bool
	DisableChecksum bool
	MaxPayloadSize  int
}

func (c PlaybackConfig) normalize() (PlaybackConfig, error) {
	if c.Dir == "" {
		return c, fmt.Errorf("invalid playback config: Dir is empty")
	}
	if c.Speed < 0 {
		return c, fmt.Errorf("invalid playback config: Speed must be >= 0")
	}
	if c.MaxPayloadSize < 0 {
		return c, fmt.Errorf("invalid playback config: MaxPayloadSize must be >= 0")
	}
	if c.FilePrefix == "" {
		c.FilePrefix = defaultFilePrefix
	}
	return c, nil
}

// Dispatch routes decoded journal records. Nil callbacks skip their
// record type; Raw, when set, sees every record before typed decoding.
type Dispatch struct {
	Tick  func(ctx context.Context, header schema.EventHeader, tick model.Tick) error
	Order func(ctx context.Context, header schema.EventHeader, account string, order model.Order) error
	Raw   func(header schema.EventHeader, payload []byte) error
}

// Clock allows deterministic playback control.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays journal segments in name order, decoding each record
// and pacing by the recorded timestamps.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
	prev  int64
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the clock implementation.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run replays every journal record through the dispatch table.
func (p *Playback) Run(ctx context.Context, d Dispatch) error {
	if d.Tick == nil && d.Order == nil && d.Raw == nil {
		return fmt.Errorf("playback dispatch has no callbacks")
	}
	files, err := p.segments()
	if err != nil {
		return err
	}

	p.prev = 0
	for _, path := range files {
		if err := p.replayFile(ctx, path, d); err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) segments() ([]string, error) {
	if _, err := os.Stat(p.cfg.Dir); err != nil {
		return nil, err
	}
	pattern := filepath.Join(p.cfg.Dir, p.cfg.FilePrefix+"-*"+segmentSuffix)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) replayFile(ctx context.Context, path string, d Dispatch) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, payload, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		if err := p.wait(ctx, header); err != nil {
			return err
		}
		if err := p.dispatch(ctx, d, header, payload); err != nil {
			return err
		}
	}
}

func (p *Playback) dispatch(ctx context.Context, d Dispatch, header schema.EventHeader, payload []byte) error {
	if d.Raw != nil {
		if err := d.Raw(header, payload); err != nil {
			return err
		}
	}

	switch header.Type {
	case schema.EventTick:
		if d.Tick == nil {
			return nil
		}
		tick, err := DecodeTick(payload)
		if err != nil {
			return fmt.Errorf("decode tick seq %d: %w", header.Seq, err)
		}
		return d.Tick(ctx, header, tick)
	case schema.EventOrderRequest:
		if d.Order == nil {
			return nil
		}
		account, order, err := DecodeOrder(payload)
		if err != nil {
			return fmt.Errorf("decode order seq %d: %w", header.Seq, err)
		}
		return d.Order(ctx, header, account, order)
	default:
		return nil
	}
}

// wait paces the next record against the previous one's timestamp,
// scaled by Speed.
func (p *Playback) wait(ctx context.Context, header schema.EventHeader) error {
	if p.cfg.Speed <= 0 {
		return nil
	}
	ts := header.TsEvent
	if p.cfg.UseRecvTime {
		ts = header.TsRecv
	}
	if ts <= 0 {
		return nil
	}

	prev := p.prev
	p.prev = ts
	if prev <= 0 {
		// First timestamped record; nothing to pace against.
		return nil
	}
	gap := ts - prev
	if gap <= 0 {
		return nil
	}
	return p.clock.Sleep(ctx, time.Duration(float64(gap)/p.cfg.Speed))
}
