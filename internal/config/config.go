// Package config holds the settings shared by the variant generator and the
// hero re-compressor. Every field has a compiled-in default; environment
// variables (optionally loaded from .env) may override them.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Defaults for a zero-argument run.
const (
	DefaultDir              = "public/images"
	DefaultQuality          = 82
	DefaultHeroQuality      = 65
	DefaultHeroUltraQuality = 25
	DefaultHeroMarker       = "hero-conservation"
	DefaultHeroPrefix       = "hero-conservation-"
	DefaultLedgerDSN        = ".cache/hero-ledger.db"
)

// DefaultSizeTiers returns the responsive widths generated for every source image.
func DefaultSizeTiers() []int {
	return []int{320, 480, 768, 1024, 1600}
}

// Config configures both pipeline tools.
type Config struct {
	// SourceDir holds the JPEG originals
	SourceDir string `env:"IMAGES_SOURCE_DIR" envDefault:"public/images"`

	// OutputDir receives generated variants; the hero re-compressor works here too.
	// May equal SourceDir.
	OutputDir string `env:"IMAGES_OUTPUT_DIR" envDefault:"public/images"`

	// SizeTiers are target widths in ascending order
	SizeTiers []int `env:"IMAGES_SIZE_TIERS" envDefault:"320,480,768,1024,1600" envSeparator:","`

	// Quality is the standard encoder quality (1-100)
	Quality int `env:"IMAGES_QUALITY" envDefault:"82"`

	// HeroQuality is used by the generator for sources whose base name contains HeroMarker
	HeroQuality int `env:"IMAGES_HERO_QUALITY" envDefault:"65"`

	// HeroUltraQuality is used by the hero re-compressor
	HeroUltraQuality int `env:"IMAGES_HERO_ULTRA_QUALITY" envDefault:"25"`

	HeroMarker string `env:"IMAGES_HERO_MARKER" envDefault:"hero-conservation"`
	HeroPrefix string `env:"IMAGES_HERO_PREFIX" envDefault:"hero-conservation-"`

	// LedgerDSN locates the hero pass ledger. A postgres:// URL selects
	// PostgreSQL, anything else is a SQLite file path. Empty disables the
	// already-optimized guard.
	LedgerDSN string `env:"IMAGES_LEDGER_DSN" envDefault:".cache/hero-ledger.db"`

	// MetricsTextfile, when set, receives a Prometheus text exposition after each run
	MetricsTextfile string `env:"IMAGES_METRICS_TEXTFILE"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		SourceDir:        DefaultDir,
		OutputDir:        DefaultDir,
		SizeTiers:        DefaultSizeTiers(),
		Quality:          DefaultQuality,
		HeroQuality:      DefaultHeroQuality,
		HeroUltraQuality: DefaultHeroUltraQuality,
		HeroMarker:       DefaultHeroMarker,
		HeroPrefix:       DefaultHeroPrefix,
		LedgerDSN:        DefaultLedgerDSN,
	}
}

// Load reads an optional .env file, applies environment overrides on top of
// the defaults, and validates the result.
func Load() (Config, error) {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	cfg := Default()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	log.Printf("Config: source=%s output=%s tiers=%v quality=%d hero=%d ultra=%d",
		cfg.SourceDir, cfg.OutputDir, cfg.SizeTiers, cfg.Quality, cfg.HeroQuality, cfg.HeroUltraQuality)
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SourceDir) == "" {
		errs = append(errs, errors.New("source dir is required"))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	for i, t := range c.SizeTiers {
		if t <= 0 {
			errs = append(errs, fmt.Errorf("size tier %d must be positive", t))
			continue
		}
		if i > 0 && t <= c.SizeTiers[i-1] {
			errs = append(errs, fmt.Errorf("size tiers must be strictly ascending: %v", c.SizeTiers))
			break
		}
	}
	for name, q := range map[string]int{
		"quality":            c.Quality,
		"hero quality":       c.HeroQuality,
		"hero ultra quality": c.HeroUltraQuality,
	} {
		if q < 1 || q > 100 {
			errs = append(errs, fmt.Errorf("%s %d out of range 1-100", name, q))
		}
	}
	if c.HeroMarker == "" {
		errs = append(errs, errors.New("hero marker is required"))
	}
	if c.HeroPrefix == "" {
		errs = append(errs, errors.New("hero prefix is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// QualityFor returns the encoder quality for a source image with the given
// base name (extension stripped).
func (c Config) QualityFor(base string) int {
	if strings.Contains(base, c.HeroMarker) {
		return c.HeroQuality
	}
	return c.Quality
}

// IsHeroOutput reports whether a generated file is subject to hero re-compression.
func (c Config) IsHeroOutput(name, ext string) bool {
	return strings.HasPrefix(name, c.HeroPrefix) && strings.HasSuffix(name, "."+ext)
}
