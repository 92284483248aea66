package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cosanlab/go-trgen/capability"
	"github.com/cosanlab/go-trgen/logger"
	"github.com/cosanlab/go-trgen/trgen"
)

// fileConfig is the YAML configuration file of trgenctl.
//
//	host: 192.168.1.10
//	port: 4242
//	timeout: 1s
//	connect_timeout: 1s
//	close_timeout: 3s
//	pulse_duration_us: 10000
//	memory_length_encoding: direct # or pow2
//	log:
//	  backend: slog # or zap
//	  level: info
type fileConfig struct {
	Host                 string        `yaml:"host"`
	Port                 int           `yaml:"port"`
	Timeout              time.Duration `yaml:"timeout"`
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	CloseTimeout         time.Duration `yaml:"close_timeout"`
	PulseDurationUs      uint32        `yaml:"pulse_duration_us"`
	MemoryLengthEncoding string        `yaml:"memory_length_encoding"`
	Log                  logConfig     `yaml:"log"`
}

type logConfig struct {
	Backend string `yaml:"backend"`
	Level   string `yaml:"level"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Host:                 "127.0.0.1",
		Port:                 trgen.DefaultPort,
		Timeout:              trgen.DefaultTimeout,
		ConnectTimeout:       trgen.DefaultConnectTimeout,
		CloseTimeout:         trgen.DefaultCloseTimeout,
		PulseDurationUs:      trgen.DefaultPulseDuration,
		MemoryLengthEncoding: capability.Direct.Name(),
		Log:                  logConfig{Backend: "slog", Level: "info"},
	}
}

// loadConfig reads path over the defaults. An empty path returns the defaults.
func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// newLogger builds the logger selected by the log section.
func (c fileConfig) newLogger() (logger.Logger, error) {
	level := logger.ParseLevel(c.Log.Level)

	switch c.Log.Backend {
	case "", "slog":
		return logger.NewSlog(level, false), nil
	case "zap":
		return logger.NewZapConsole(level)
	default:
		return nil, fmt.Errorf("unknown log backend %q", c.Log.Backend)
	}
}

// connectionConfig converts the file configuration to connection options.
func (c fileConfig) connectionConfig(l logger.Logger) (*trgen.ConnectionConfig, error) {
	dec, err := capability.DecoderByName(c.MemoryLengthEncoding)
	if err != nil {
		return nil, err
	}

	return trgen.NewConnectionConfig(c.Host, c.Port,
		trgen.WithTimeout(c.Timeout),
		trgen.WithConnectTimeout(c.ConnectTimeout),
		trgen.WithCloseTimeout(c.CloseTimeout),
		trgen.WithPulseDuration(c.PulseDurationUs),
		trgen.WithMemoryLengthDecoder(dec),
		trgen.WithLogger(l),
	)
}
