// Command mdg generates synthetic tick journals: a random walk per
// instrument, with a configurable spread, suitable for replaying into
// the engine.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/model"
	"main/internal/recorder"
)

func main() {
	dir := flag.String("dir", "testdata/journal", "Output journal directory")
	prefix := flag.String("prefix", "", "Journal file prefix (default: journal)")
	instruments := flag.String("instruments", "AAPL:180,TSLA:550", "Comma-separated name:startPrice pairs")
	count := flag.Int("count", 1000, "Ticks per instrument")
	interval := flag.Duration("interval", time.Second, "Simulated time between ticks")
	spread := flag.Float64("spread", 0.02, "Bid/ask spread")
	step := flag.Float64("step", 0.05, "Max random walk step per tick")
	seed := flag.Int64("seed", 0, "Random seed (0=time-based)")
	flag.Parse()

	walks, err := parseInstruments(*instruments)
	if err != nil {
		log.Fatalf("invalid instruments: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	writer, err := recorder.NewWriter(recorder.Config{Dir: *dir, FilePrefix: *prefix})
	if err != nil {
		log.Fatalf("journal writer init failed: %v", err)
	}
	defer writer.Close()

	halfSpread := decimal.NewFromFloat(*spread / 2)
	now := time.Now().UTC().Truncate(time.Second)
	var seq uint64
	for i := 0; i < *count; i++ {
		at := now.Add(time.Duration(i) * *interval)
		for name, price := range walks {
			delta := decimal.NewFromFloat((rng.Float64()*2 - 1) * *step)
			price = price.Add(delta)
			if price.LessThanOrEqual(decimal.Zero) {
				price = decimal.NewFromFloat(*step)
			}
			walks[name] = price

			last := price
			bid := price.Sub(halfSpread)
			ask := price.Add(halfSpread)
			seq++
			tick := model.Tick{
				Name: name,
				Bid:  &bid,
				Ask:  &ask,
				Last: &last,
				Time: at,
			}
			if err := writer.RecordTick(tick, seq); err != nil {
				log.Fatalf("journal write failed: %v", err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		log.Fatalf("journal close failed: %v", err)
	}
	log.Printf("wrote %d ticks to %s (seed=%d)", seq, *dir, *seed)
}

func parseInstruments(s string) (map[string]decimal.Decimal, error) {
	walks := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		name, start, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("malformed pair: %q", pair)
		}
		price, err := decimal.NewFromString(start)
		if err != nil {
			return nil, err
		}
		walks[name] = price
	}
	return walks, nil
}
