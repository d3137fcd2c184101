// Package config loads the construction-time configuration record for an
// sdp.Node (debug, io_debug, retransmit_limit, and the four durations) from
// a YAML document, rather than wiring each field directly as a flag.Var call.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/librescoot/simple-data-protocol/pkg/sdp"
)

// Config is the construction-time configuration record.
type Config struct {
	Debug           bool          `yaml:"debug"`
	IODebug         bool          `yaml:"io_debug"`
	MaxPayload      int           `yaml:"max_payload"`
	RetransmitLimit int           `yaml:"retransmit_limit"`
	RxFrameTimeout  time.Duration `yaml:"rx_frame_timeout"`
	TxFrameTimeout  time.Duration `yaml:"tx_frame_timeout"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	RetransmitDelay time.Duration `yaml:"retransmit_delay"`
}

// Default returns the configuration record seeded with the §4.9 defaults.
func Default() Config {
	return Config{
		MaxPayload:      255,
		RetransmitLimit: sdp.DefaultRetransmitLimit,
		RxFrameTimeout:  sdp.DefaultRxFrameTimeout,
		TxFrameTimeout:  sdp.DefaultTxFrameTimeout,
		ResponseTimeout: sdp.DefaultResponseTimeout,
		RetransmitDelay: sdp.DefaultRetransmitDelay,
	}
}

// Load reads a YAML configuration document from path, starting from
// Default() so a partial document only overrides the fields it sets.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the fields that have a hard requirement. max_payload
// above the firmware ceiling is deliberately not rejected here -- the Node
// constructor logs a warning and proceeds, since a host-to-host link has
// no firmware counterpart to be bound by that ceiling.
func (c Config) Validate() error {
	if c.MaxPayload < 0 {
		return fmt.Errorf("config: max_payload must be >= 0, got %d", c.MaxPayload)
	}
	if c.RetransmitLimit < 1 {
		return fmt.Errorf("config: retransmit_limit must be >= 1, got %d", c.RetransmitLimit)
	}
	if c.RxFrameTimeout <= 0 || c.TxFrameTimeout <= 0 || c.ResponseTimeout <= 0 || c.RetransmitDelay < 0 {
		return fmt.Errorf("config: timeouts must be positive durations")
	}
	return nil
}
