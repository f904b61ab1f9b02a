package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// FileName is the name of the site configuration file at the project root.
const FileName = "weaving.toml"

// SiteConfig is the validated site configuration. It is created by Load and
// never mutated afterwards.
type SiteConfig struct {
	Version            int         `toml:"version"`
	ContentDir         string      `toml:"content_dir"`
	BaseURL            string      `toml:"base_url"`
	PartialsDir        string      `toml:"partials_dir"`
	PublicDir          string      `toml:"public_dir"`
	BuildDir           string      `toml:"build_dir"`
	TemplateDir        string      `toml:"template_dir"`
	TemplatingLanguage string      `toml:"templating_language"`
	SyntaxTheme        string      `toml:"syntax_theme"`
	ImageConfig        ImageConfig `toml:"image_config"`
	ServeConfig        ServeConfig `toml:"serve_config"`

	// BaseDir is the absolute project root that every directory above is
	// resolved against.
	BaseDir string `toml:"-"`
}

// ImageConfig controls image processing.
type ImageConfig struct {
	Quality int `toml:"quality"`
}

// ServeConfig controls the development server.
type ServeConfig struct {
	WatchExcludes []string `toml:"watch_excludes"`
	NpmBuild      bool     `toml:"npm_build"`
	Address       string   `toml:"address"`
}

// Load reads <baseDir>/weaving.toml, applies defaults and validates the
// result. A missing file yields the default configuration.
func Load(baseDir string) (*SiteConfig, error) {
	if baseDir == "" {
		baseDir = "."
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve base path").Fatal().Build()
	}

	cfg := &SiteConfig{}
	var meta toml.MetaData
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		meta, err = toml.Decode(os.ExpandEnv(string(data)), cfg)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse "+FileName).
				Fatal().WithPath(path).Build()
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read "+FileName).
			Fatal().WithPath(path).Build()
	}

	cfg.BaseDir = abs
	applyDefaults(cfg, meta)
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "configuration validation failed").
			Fatal().WithPath(path).Build()
	}
	return cfg, nil
}

// Default returns the default configuration rooted at baseDir.
func Default(baseDir string) *SiteConfig {
	cfg := &SiteConfig{BaseDir: baseDir}
	applyDefaults(cfg, toml.MetaData{})
	return cfg
}

func (c *SiteConfig) resolve(dir string) string {
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(c.BaseDir, dir)
}

func (c *SiteConfig) ContentPath() string  { return c.resolve(c.ContentDir) }
func (c *SiteConfig) TemplatePath() string { return c.resolve(c.TemplateDir) }
func (c *SiteConfig) PartialsPath() string { return c.resolve(c.PartialsDir) }
func (c *SiteConfig) PublicPath() string   { return c.resolve(c.PublicDir) }
func (c *SiteConfig) BuildPath() string    { return c.resolve(c.BuildDir) }
