package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// MaxIncludeDepth limits nested @include directives.
const MaxIncludeDepth = 8

// Load reads the file at path, merges it over Default and validates the
// result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	raw, err := loadWithIncludes(path, MaxIncludeDepth)
	if err != nil {
		return nil, err
	}
	return build(path, raw)
}

// Parse is Load for in-memory data. source names the data in errors.
func Parse(source string, data []byte) (*Config, error) {
	raw, err := parse(source, data)
	if err != nil {
		return nil, err
	}
	return build(source, raw)
}

func build(source string, raw map[string]any) (*Config, error) {
	base, err := toMap(Default())
	if err != nil {
		return nil, err
	}
	merged := DeepMerge(base, raw)

	data, err := toml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, parseError(source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return &cfg, nil
}

func toMap(cfg *Config) (map[string]any, error) {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding defaults: %w", err)
	}
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding defaults: %w", err)
	}
	return m, nil
}

func loadFrom(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // File doesn't exist, not an error
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, data)
}

// document is the shape of a single config file. Decoding it strictly
// reports unknown keys at their position in that file.
type document struct {
	Include any           `toml:"@include"`
	Model   ModelConfig   `toml:"model"`
	Surface SurfaceConfig `toml:"surface"`
	Theme   ThemeConfig   `toml:"theme"`
	Log     LogConfig     `toml:"log"`
}

func parse(source string, data []byte) (map[string]any, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, parseError(source, err)
	}
	var doc document
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, parseError(source, err)
	}
	return m, nil
}

func parseError(source string, err error) error {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}
	var derr *toml.DecodeError
	if errors.As(err, &derr) {
		pe.Line, pe.Column = derr.Position()
	}
	var serr *toml.StrictMissingError
	if errors.As(err, &serr) {
		pe.Message = serr.String()
		if len(serr.Errors) > 0 {
			pe.Line, pe.Column = serr.Errors[0].Position()
		}
	}
	return pe
}

// loadWithIncludes loads a TOML file and processes @include directives.
func loadWithIncludes(path string, maxDepth int) (map[string]any, error) {
	if maxDepth <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrIncludeDepthExceeded, path)
	}

	cfg, err := loadFrom(path)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	includes, ok := cfg["@include"]
	if !ok {
		return cfg, nil
	}
	delete(cfg, "@include")

	var list []string
	switch v := includes.(type) {
	case string:
		list = []string{v}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: @include must be string or array of strings", path)
			}
			list = append(list, s)
		}
	default:
		return nil, fmt.Errorf("%s: @include must be string or array of strings, got %T", path, includes)
	}

	baseDir := filepath.Dir(path)
	for _, inc := range list {
		incPath := inc
		if !filepath.IsAbs(inc) {
			incPath = filepath.Join(baseDir, inc)
		}
		incCfg, err := loadWithIncludes(incPath, maxDepth-1)
		if err != nil {
			return nil, fmt.Errorf("loading include %s: %w", incPath, err)
		}
		// the including file wins
		cfg = DeepMerge(incCfg, cfg)
	}
	return cfg, nil
}

// DeepMerge recursively merges src into dst.
// Values in src override values in dst.
// Maps are merged recursively; other types are replaced.
func DeepMerge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any)
	}
	for key, srcVal := range src {
		dstVal, exists := dst[key]
		if !exists {
			dst[key] = srcVal
			continue
		}
		srcMap, srcIsMap := srcVal.(map[string]any)
		dstMap, dstIsMap := dstVal.(map[string]any)
		if srcIsMap && dstIsMap {
			dst[key] = DeepMerge(dstMap, srcMap)
		} else {
			dst[key] = srcVal
		}
	}
	return dst
}
