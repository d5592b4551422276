// Package config loads engine configuration from CUE or YAML files.
//
// CUE files are unified with an embedded schema that supplies defaults and
// rejects unknown fields. YAML (and JSON) files are decoded strictly over
// the same defaults. Both paths finish with Validate, so a Config returned by
// Load is always usable.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/remember/internal/codec"
	"github.com/roach88/remember/internal/remember"
)

//go:embed schema.cue
var schemaCUE string

// Config is the file form of the engine options.
type Config struct {
	Prefix            string   `json:"prefix" yaml:"prefix"`
	Keys              []string `json:"keys" yaml:"keys"`
	PersistThrottleMs int      `json:"persistThrottleMs" yaml:"persistThrottleMs"`
	PersistDebounceMs int      `json:"persistDebounceMs" yaml:"persistDebounceMs"`
	PersistWholeStore bool     `json:"persistWholeStore" yaml:"persistWholeStore"`
	InitActionType    string   `json:"initActionType" yaml:"initActionType"`
	Serializer        string   `json:"serializer" yaml:"serializer"`
}

// Error codes reported by Load and Validate.
const (
	ErrCodeRead      = "C001" // File unreadable
	ErrCodeFormat    = "C002" // Unsupported extension
	ErrCodeParse     = "C003" // Syntax or schema error
	ErrCodeInvalid   = "C004" // Semantic validation failed
	ErrCodeUnknownKV = "C005" // Unknown field
)

// LoadError describes why a configuration file was rejected.
type LoadError struct {
	Code    string
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsLoadError returns true if err is or wraps a *LoadError with code.
func IsLoadError(err error, code string) bool {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code == code
	}
	return false
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Prefix:            remember.DefaultPrefix,
		Keys:              []string{},
		PersistThrottleMs: int(remember.DefaultPersistThrottle / time.Millisecond),
		Serializer:        codec.FormatJSON,
	}
}

// Load reads path and returns a validated Config. The extension selects the
// format: .cue, or .yaml/.yml/.json.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, &LoadError{Code: ErrCodeRead, Path: path, Message: err.Error()}
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cue":
		cfg, err = parseCUE(path, data)
	case ".yaml", ".yml", ".json":
		cfg, err = parseYAML(path, data)
	default:
		return Config{}, &LoadError{Code: ErrCodeFormat, Path: path, Message: fmt.Sprintf("unsupported config format %q", ext)}
	}
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return Config{}, err
	}
	return cfg, nil
}

func parseCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Config{}, fmt.Errorf("compile embedded schema: %w", err)
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return Config{}, &LoadError{Code: ErrCodeParse, Path: path, Message: cueMessage(err)}
	}

	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Config{}, &LoadError{Code: ErrCodeParse, Path: path, Message: cueMessage(err)}
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return Config{}, &LoadError{Code: ErrCodeParse, Path: path, Message: cueMessage(err)}
	}
	if cfg.Keys == nil {
		cfg.Keys = []string{}
	}
	return cfg, nil
}

func parseYAML(path string, data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		code := ErrCodeParse
		if strings.Contains(err.Error(), "not found in type") {
			code = ErrCodeUnknownKV
		}
		return Config{}, &LoadError{Code: code, Path: path, Message: err.Error()}
	}
	if cfg.Keys == nil {
		cfg.Keys = []string{}
	}
	return cfg, nil
}

// cueMessage flattens a CUE error list into one line per error.
func cueMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, strings.TrimSpace(cueerrors.Details(e, nil)))
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the rules both file formats share.
func (c Config) Validate() error {
	if c.PersistThrottleMs < 0 {
		return &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("persistThrottleMs must be >= 0, got %d", c.PersistThrottleMs)}
	}
	if c.PersistDebounceMs < 0 {
		return &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("persistDebounceMs must be >= 0, got %d", c.PersistDebounceMs)}
	}
	if _, err := codec.ByName(c.Serializer); err != nil {
		return &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	}

	seen := make(map[string]bool, len(c.Keys))
	for _, k := range c.Keys {
		if k == "" {
			return &LoadError{Code: ErrCodeInvalid, Message: "keys must not contain empty names"}
		}
		if seen[k] {
			return &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("duplicate key %q", k)}
		}
		seen[k] = true
	}
	return nil
}

// Options converts c into engine options. An unknown serializer is reported
// as a *LoadError with ErrCodeInvalid.
func (c Config) Options() ([]remember.Option, error) {
	cd, err := codec.ByName(c.Serializer)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error()}
	}

	opts := []remember.Option{
		remember.WithPrefix(c.Prefix),
		remember.WithPersistThrottle(time.Duration(c.PersistThrottleMs) * time.Millisecond),
		remember.WithPersistWholeStore(c.PersistWholeStore),
	}
	if c.PersistDebounceMs > 0 {
		opts = append(opts, remember.WithPersistDebounce(time.Duration(c.PersistDebounceMs)*time.Millisecond))
	}
	if c.InitActionType != "" {
		opts = append(opts, remember.WithInitActionType(c.InitActionType))
	}
	opts = append(opts,
		remember.WithSerialize(cd.Serialize),
		remember.WithUnserialize(cd.Unserialize),
	)
	return opts, nil
}

// Summary renders c as sorted "name=value" pairs for logs and CLI output.
func (c Config) Summary() []string {
	pairs := []string{
		"prefix=" + c.Prefix,
		"keys=" + strings.Join(c.Keys, ","),
		fmt.Sprintf("persistThrottleMs=%d", c.PersistThrottleMs),
		fmt.Sprintf("persistDebounceMs=%d", c.PersistDebounceMs),
		fmt.Sprintf("persistWholeStore=%t", c.PersistWholeStore),
		"initActionType=" + c.InitActionType,
		"serializer=" + c.Serializer,
	}
	slices.Sort(pairs)
	return pairs
}
