package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/fairway/internal/domain/category"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if FAIRWAY_CONFIG is set
//  3. env (prefix FAIRWAY_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("FAIRWAY_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// FAIRWAY_QUEUE_SIZE -> queue_size. Underscores are kept to match the
	// flat koanf tags.
	envProvider := env.Provider("FAIRWAY_", ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), "fairway_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadCategoryTable reads a YAML category table from path. An empty path
// returns the built-in table. The table is validated before it is returned.
func LoadCategoryTable(_ context.Context, path string) (category.Table, error) {
	if path == "" {
		return category.DefaultTable(), nil
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return category.Table{}, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
	}
	var t category.Table
	if err := k.UnmarshalWithConf("", &t, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return category.Table{}, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
	}
	if err := t.Validate(); err != nil {
		return category.Table{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return t, nil
}
