// Package config loads the bridge configuration.
//
// Values come from a YAML file, then SHIPBOT_* environment variables, and
// the result is validated against an embedded CUE schema. Any failure is a
// setup error.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// DefaultPath is the config file read when no path is given.
const DefaultPath = "ship_config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHIPBOT_"

// Config is the bridge configuration.
type Config struct {
	// ShipURL is the base URL of the ship's web interface.
	ShipURL string `yaml:"ship_url" json:"ship_url" env:"SHIP_URL"`

	// ShipCode is the +code used to log in.
	ShipCode string `yaml:"ship_code" json:"ship_code" env:"SHIP_CODE"`

	// PollInterval is the pause between dispatch cycles.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval" env:"POLL_INTERVAL"`

	// Journal is the SQLite journal path. Empty disables the journal.
	Journal string `yaml:"journal" json:"journal" env:"JOURNAL"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`
	Responder string `yaml:"responder" json:"responder" env:"RESPONDER"`
}

// Default returns the configuration used for unset fields.
func Default() Config {
	return Config{
		ShipURL:      "http://localhost:8080",
		PollInterval: 500 * time.Millisecond,
		LogLevel:     "info",
		Responder:    "chart",
	}
}

// Load reads path (DefaultPath when empty), applies environment overrides,
// and validates the result.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, &Error{Code: ErrCodeNotFound, Path: path, Message: "config file not found (run 'shipbot init')"}
	}
	if err != nil {
		return Config{}, &Error{Code: ErrCodeParse, Path: path, Message: "reading config", Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, &Error{Code: ErrCodeParse, Path: path, Message: "decoding yaml", Err: err}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, &Error{Code: ErrCodeEnv, Path: path, Message: "applying environment", Err: err}
	}

	if err := Validate(cfg); err != nil {
		var ce *Error
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded schema.
func Validate(cfg Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return &Error{Code: ErrCodeInvalid, Message: "compiling schema", Err: err}
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(cfg))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		ce := &Error{Code: ErrCodeInvalid, Message: "invalid configuration", Err: err}
		if errs := cueerrors.Errors(err); len(errs) > 0 {
			ce.Message = cueerrors.Details(errs[0], nil)
			ce.Message = strings.TrimSpace(strings.SplitN(ce.Message, "\n", 2)[0])
			ce.Pos = errs[0].Position()
			ce.Err = nil
		}
		return ce
	}
	return nil
}

// Level returns the slog level named by LogLevel, info when unknown.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.ShipCode != "" {
		c.ShipCode = "<redacted>"
	}
	return c
}

// templateComments annotates each key of the generated config file.
var templateComments = map[string]string{
	"ship_url":      "Base URL of the ship's web interface.",
	"ship_code":     "+code of the ship (run +code in the dojo).",
	"poll_interval": "Pause between dispatch cycles, 100ms to 10s.",
	"journal":       "SQLite side-effect journal. Empty disables it.",
	"log_level":     "debug, info, warn or error.",
	"responder":     "chart, echo or none.",
}

// WriteTemplate writes a config file with defaults and an empty ship code.
// It refuses to overwrite an existing file.
func WriteTemplate(path string) error {
	if path == "" {
		path = DefaultPath
	}

	var doc yaml.Node
	if err := doc.Encode(Default()); err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		key.HeadComment = templateComments[key.Value]
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding template: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return &Error{Code: ErrCodeExists, Path: path, Message: "config file already exists"}
	}
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
