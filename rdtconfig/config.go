// Package rdtconfig loads a SessionConfig from the process environment
// (github.com/sethvargo/go-envconfig), the way the teacher repo's
// standalone/config loads a MachineConfig from JSON, then fills in
// defaults for whatever the environment left unset.
package rdtconfig

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"

	"github.com/amken3d/serialrdt/protocol"
	"github.com/amken3d/serialrdt/rdt"
)

// SessionConfig holds everything needed to open a physical channel and
// drive one rdt.Session over it (§6 "Configuration parameters").
type SessionConfig struct {
	Device    string `env:"RDT_DEVICE"`
	Baud      int    `env:"RDT_BAUD,default=115200"`
	TimeoutMS int64  `env:"RDT_TIMEOUT_MS,default=500"`
	PktSize   int    `env:"RDT_PKT_SIZE,default=4"`
	MaxSeq    uint8  `env:"RDT_MAX_SEQ,default=7"`
	Mode      string `env:"RDT_MODE,default=selective_repeat"`
}

// Load reads a SessionConfig from the process environment, applying
// defaults for anything left unset.
func Load(ctx context.Context) (*SessionConfig, error) {
	var cfg SessionConfig
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("rdtconfig: load: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults re-applies the per-field defaults to any field that is still
// zero, negative or empty after envconfig has run.
func applyDefaults(cfg *SessionConfig) {
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	if cfg.TimeoutMS <= 0 {
		cfg.TimeoutMS = 500
	}
	if cfg.PktSize <= 0 {
		cfg.PktSize = 4
	}
	if cfg.MaxSeq == 0 {
		cfg.MaxSeq = 7
	}
	if cfg.Mode == "" {
		cfg.Mode = string(rdt.ModeSelectiveRepeat)
	}
}

// Validate reports whether cfg describes a usable session: MaxSeq must be
// 2^n-1 and Mode must be a recognised rdt.Mode (§6 "MAX_SEQ must be 2^n-1").
func (cfg *SessionConfig) Validate() error {
	if cfg.Device == "" {
		return fmt.Errorf("rdtconfig: device is required")
	}
	if cfg.PktSize <= 0 {
		return fmt.Errorf("rdtconfig: pkt size must be positive, got %d", cfg.PktSize)
	}
	if (uint16(cfg.MaxSeq)+1)&uint16(cfg.MaxSeq) != 0 {
		return fmt.Errorf("rdtconfig: max seq %d+1 must be a power of two", cfg.MaxSeq)
	}
	if !rdt.Mode(cfg.Mode).Valid() {
		return fmt.Errorf("rdtconfig: unknown mode %q", cfg.Mode)
	}
	return nil
}

// SeqSpace derives the protocol.SeqSpace this configuration implies.
func (cfg *SessionConfig) SeqSpace() protocol.SeqSpace {
	return protocol.NewSeqSpace(cfg.MaxSeq)
}

// RdtMode returns the configured algorithm as an rdt.Mode.
func (cfg *SessionConfig) RdtMode() rdt.Mode {
	return rdt.Mode(cfg.Mode)
}
