package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"main/internal/core"
	"main/internal/model"
	"main/internal/model/enum"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Accounts    []AccountConfig    `json:"accounts"`
	Instruments []InstrumentConfig `json:"instruments"`
	Engine      EngineConfig       `json:"engine"`
	Storage     StorageConfig      `json:"storage"`
	Replay      ReplayConfig       `json:"replay"`
}

// AccountConfig declares one trading account.
type AccountConfig struct {
	ID         string          `json:"id"`
	Leverage   decimal.Decimal `json:"leverage"`
	Commission decimal.Decimal `json:"commission"`
}

// InstrumentConfig declares one tradable instrument.
type InstrumentConfig struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Basis     string `json:"basis"`
	Timeframe string `json:"timeframe"`
}

// EngineConfig captures runtime sizing knobs.
type EngineConfig struct {
	BusCapacity     int `json:"busCapacity"`
	MailboxCapacity int `json:"mailboxCapacity"`
}

// StorageConfig describes the optional Postgres write-through.
type StorageConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

// ReplayConfig describes the tick journal replay source.
type ReplayConfig struct {
	Dir        string  `json:"dir"`
	FilePrefix string  `json:"filePrefix"`
	Speed      float64 `json:"speed"`
}

// Instrument describes a resolved instrument and its bar timeframe.
type Instrument struct {
	Meta      model.Instrument
	Timeframe time.Duration
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Accounts    []core.AccountSpec
	Instruments []Instrument
	Engine      EngineConfig
	Storage     StorageConfig
	Replay      ReplayConfig
}

const (
	defaultBusCapacity     = 1024
	defaultMailboxCapacity = 256
	defaultTimeframe       = time.Minute
)

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return resolve(cfg)
}

func resolve(cfg FileConfig) (Loaded, error) {
	loaded := Loaded{
		Engine:  cfg.Engine,
		Storage: cfg.Storage,
		Replay:  cfg.Replay,
	}
	if loaded.Engine.BusCapacity <= 0 {
		loaded.Engine.BusCapacity = defaultBusCapacity
	}
	if loaded.Engine.MailboxCapacity <= 0 {
		loaded.Engine.MailboxCapacity = defaultMailboxCapacity
	}

	seen := make(map[string]struct{}, len(cfg.Accounts))
	for _, acc := range cfg.Accounts {
		if acc.ID == "" {
			return Loaded{}, fmt.Errorf("account id is empty")
		}
		if _, ok := seen[acc.ID]; ok {
			return Loaded{}, fmt.Errorf("duplicate account: %s", acc.ID)
		}
		seen[acc.ID] = struct{}{}
		if acc.Leverage.IsNegative() {
			return Loaded{}, fmt.Errorf("account %s: leverage must be >= 0", acc.ID)
		}
		loaded.Accounts = append(loaded.Accounts, core.AccountSpec{
			ID:         acc.ID,
			Leverage:   acc.Leverage,
			Commission: acc.Commission,
		})
	}

	names := make(map[string]struct{}, len(cfg.Instruments))
	for _, inst := range cfg.Instruments {
		resolved, err := resolveInstrument(inst)
		if err != nil {
			return Loaded{}, err
		}
		if _, ok := names[resolved.Meta.Name]; ok {
			return Loaded{}, fmt.Errorf("duplicate instrument: %s", resolved.Meta.Name)
		}
		names[resolved.Meta.Name] = struct{}{}
		loaded.Instruments = append(loaded.Instruments, resolved)
	}

	if cfg.Storage.Enabled && cfg.Storage.Database == "" {
		return Loaded{}, fmt.Errorf("storage enabled without a database name")
	}
	return loaded, nil
}

func resolveInstrument(cfg InstrumentConfig) (Instrument, error) {
	if cfg.Name == "" {
		return Instrument{}, fmt.Errorf("instrument name is empty")
	}
	instrumentType, err := parseInstrumentType(cfg.Type)
	if err != nil {
		return Instrument{}, fmt.Errorf("instrument %s: %w", cfg.Name, err)
	}
	timeframe := defaultTimeframe
	if cfg.Timeframe != "" {
		timeframe, err = time.ParseDuration(cfg.Timeframe)
		if err != nil {
			return Instrument{}, fmt.Errorf("instrument %s: invalid timeframe: %w", cfg.Name, err)
		}
		if timeframe <= 0 {
			return Instrument{}, fmt.Errorf("instrument %s: timeframe must be > 0", cfg.Name)
		}
	}
	return Instrument{
		Meta: model.Instrument{
			Name:  cfg.Name,
			Type:  instrumentType,
			Basis: cfg.Basis,
		},
		Timeframe: timeframe,
	}, nil
}

func parseInstrumentType(s string) (enum.InstrumentType, error) {
	switch s {
	case "", "share":
		return enum.InstrumentShare, nil
	case "future":
		return enum.InstrumentFuture, nil
	case "option":
		return enum.InstrumentOption, nil
	case "coin":
		return enum.InstrumentCoin, nil
	default:
		return 0, fmt.Errorf("unknown instrument type: %s", s)
	}
}
