// Command replay inspects tick journal files: it prints every record
// header and optionally decodes known payload types.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"main/internal/model"
	"main/internal/recorder"
	"main/internal/schema"
)

func main() {
	dir := flag.String("dir", "testdata/journal", "Journal directory")
	prefix := flag.String("prefix", "", "Journal file prefix (default: journal)")
	speed := flag.Float64("speed", 0, "Playback speed (1=real-time, 0=no pacing)")
	useRecv := flag.Bool("use-recv-time", false, "Use receive timestamp for pacing")
	noChecksum := flag.Bool("no-checksum", false, "Disable checksum validation")
	maxPayload := flag.Int("max-payload", 0, "Max payload size in bytes (0=unlimited)")
	decode := flag.Bool("decode", false, "Decode known payload types")
	flag.Parse()

	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:             *dir,
		FilePrefix:      *prefix,
		Speed:           *speed,
		UseRecvTime:     *useRecv,
		DisableChecksum: *noChecksum,
		MaxPayloadSize:  *maxPayload,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	var index int
	dispatch := recorder.Dispatch{
		Raw: func(header schema.EventHeader, payload []byte) error {
			index++
			fmt.Printf("%06d seq=%d type=%s ts_event=%d ts_recv=%d len=%d\n",
				index, header.Seq, header.Type, header.TsEvent, header.TsRecv, len(payload))
			return nil
		},
	}
	if *decode {
		dispatch.Tick = func(_ context.Context, _ schema.EventHeader, tick model.Tick) error {
			last := "-"
			if tick.Last != nil {
				last = tick.Last.String()
			}
			fmt.Printf("       tick name=%s last=%s time=%s\n", tick.Name, last, tick.Time)
			return nil
		}
		dispatch.Order = func(_ context.Context, _ schema.EventHeader, account string, order model.Order) error {
			fmt.Printf("       order account=%s instrument=%s side=%s type=%s amount=%s\n",
				account, order.Instrument, order.Side, order.Type, order.Amount)
			return nil
		}
	}

	if err := playback.Run(context.Background(), dispatch); err != nil {
		log.Fatalf("playback run failed: %v", err)
	}
}
