// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dumpconfig parses and validates the optional YAML configuration
// file accepted by the perfdump CLI tool via --config.
package dumpconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-perf/perfdata/perffile"
	"gopkg.in/yaml.v3"
)

// Order names a record iteration order, mirroring perffile.RecordsOrder
// in a form that can be written in YAML.
type Order string

const (
	OrderFile   Order = "file"
	OrderTime   Order = "time"
	OrderCausal Order = "causal"
)

var validOrders = map[Order]perffile.RecordsOrder{
	OrderFile:   perffile.RecordsFileOrder,
	OrderTime:   perffile.RecordsTimeOrder,
	OrderCausal: perffile.RecordsCausalOrder,
}

// Perffile returns the perffile.RecordsOrder this Order denotes. It
// panics if the Order has not been validated; callers should only call
// it on a Config that has passed Validate.
func (o Order) Perffile() perffile.RecordsOrder {
	order, ok := validOrders[o]
	if !ok {
		panic(fmt.Sprintf("dumpconfig: invalid order %q", o))
	}
	return order
}

// Config is the root configuration accepted by --config.
type Config struct {
	// Order controls the iteration order used when dumping records.
	// Defaults to "time".
	Order Order `yaml:"order"`
	// Verbose is parsed and stored; no command in this module reads it.
	Verbose bool `yaml:"verbose"`
	// JitdumpBufferSize is a jitdump reader chunk size in bytes.
	// Defaults to 4096 and must be at least 40; no command in this
	// module passes it to jitdump.NewReaderSize.
	JitdumpBufferSize int `yaml:"jitdump_buffer_size"`
}

// applyDefaults fills in omitted fields with their zero-value-safe
// defaults. It runs before Validate so Validate can assume they are set.
func (c *Config) applyDefaults() {
	if c.Order == "" {
		c.Order = OrderTime
	}
	if c.JitdumpBufferSize == 0 {
		c.JitdumpBufferSize = 4096
	}
}

// Validate checks c for semantic errors, returning the first one found.
func (c *Config) Validate() error {
	if _, ok := validOrders[c.Order]; !ok {
		return fmt.Errorf("order %q is invalid; must be one of: file, time, causal", c.Order)
	}
	if c.JitdumpBufferSize < 40 {
		return fmt.Errorf("jitdump_buffer_size %d is too small; must be at least 40 (the jitdump file header size)", c.JitdumpBufferSize)
	}
	return nil
}

// Parse decodes YAML bytes, applies defaults, and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Load reads and parses the YAML configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}
	return Parse(data)
}

// Default returns a Config populated with default values, as used when
// no --config flag is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
