package contractmsg

import (
	"bufio"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/chain/txvm/errors"
	"github.com/naoina/toml"
)

var ErrConfig = errors.New("invalid configuration")

// Config holds the relayer's settings. Every field has a default;
// a TOML file may override any of them.
type Config struct {
	// Interval is the time between the starts of relay cycles.
	Interval Duration

	// Concurrency bounds the number of messages relayed at once.
	Concurrency int

	GasPrice uint64
	Maturity uint64

	// MaxRetryDelay caps the backoff before a message whose relay
	// reverted or failed is tried again.
	MaxRetryDelay Duration

	// SubmitRate limits submissions per second. Zero means no limit.
	SubmitRate  float64
	SubmitBurst int

	// SubmitTimeout bounds a single build-sign-submit sequence.
	SubmitTimeout Duration

	// CacheSize is the number of messages whose retry backoff is
	// remembered between cycles. An evicted message is due at once.
	CacheSize int

	// RecordTTL is how long relay records are kept in the ledger.
	RecordTTL Duration
}

// DefaultConfig returns the settings used when no file overrides them.
func DefaultConfig() *Config {
	return &Config{
		Interval:      Duration(5 * time.Second),
		Concurrency:   4,
		GasPrice:      0,
		MaxRetryDelay: Duration(5 * time.Minute),
		SubmitBurst:   1,
		SubmitTimeout: Duration(30 * time.Second),
		CacheSize:     4096,
		RecordTTL:     Duration(7 * 24 * time.Hour),
	}
}

// Validate checks that cfg can drive a Relayer.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Interval < Duration(time.Millisecond):
		return errors.WithDetailf(ErrConfig, "interval %s is below 1ms", cfg.Interval)
	case cfg.Concurrency < 1:
		return errors.WithDetailf(ErrConfig, "concurrency %d", cfg.Concurrency)
	case cfg.MaxRetryDelay < cfg.Interval:
		return errors.WithDetailf(ErrConfig, "max retry delay %s is below the interval %s", cfg.MaxRetryDelay, cfg.Interval)
	case cfg.SubmitRate < 0:
		return errors.WithDetailf(ErrConfig, "submit rate %g", cfg.SubmitRate)
	case cfg.SubmitRate > 0 && cfg.SubmitBurst < 1:
		return errors.WithDetailf(ErrConfig, "submit burst %d", cfg.SubmitBurst)
	case cfg.SubmitTimeout <= 0:
		return errors.WithDetailf(ErrConfig, "submit timeout %s", cfg.SubmitTimeout)
	case cfg.CacheSize < 1:
		return errors.WithDetailf(ErrConfig, "cache size %d", cfg.CacheSize)
	}
	return nil
}

// Duration is a time.Duration written in TOML as a string like "5s".
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Config file keys are the Go field names.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = " (see " + rt.PkgPath() + "#" + rt.Name() + ")"
		}
		return errors.WithDetailf(ErrConfig, "field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(file string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "opening config")
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.Wrap(err, file)
	}
	if err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
