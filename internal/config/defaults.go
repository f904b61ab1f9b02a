package config

import "github.com/BurntSushi/toml"

const (
	DefaultVersion            = 1
	DefaultContentDir         = "content"
	DefaultBaseURL            = "localhost:8080"
	DefaultPartialsDir        = "partials"
	DefaultPublicDir          = "public"
	DefaultBuildDir           = "site"
	DefaultTemplateDir        = "templates"
	DefaultTemplatingLanguage = "liquid"
	DefaultSyntaxTheme        = "monokai"
	DefaultImageQuality       = 83
	DefaultAddress            = "localhost:8080"
)

// DefaultWatchExcludes returns the directories the watcher ignores unless
// serve_config.watch_excludes says otherwise.
func DefaultWatchExcludes() []string {
	return []string{".git", "node_modules", DefaultBuildDir}
}

// applyDefaults fills every unset key. watch_excludes is only defaulted when
// the key is absent, so an explicit empty list disables exclusions.
func applyDefaults(cfg *SiteConfig, meta toml.MetaData) {
	if cfg.Version == 0 {
		cfg.Version = DefaultVersion
	}
	setDefault(&cfg.ContentDir, DefaultContentDir)
	setDefault(&cfg.BaseURL, DefaultBaseURL)
	setDefault(&cfg.PartialsDir, DefaultPartialsDir)
	setDefault(&cfg.PublicDir, DefaultPublicDir)
	setDefault(&cfg.BuildDir, DefaultBuildDir)
	setDefault(&cfg.TemplateDir, DefaultTemplateDir)
	setDefault(&cfg.TemplatingLanguage, DefaultTemplatingLanguage)
	setDefault(&cfg.SyntaxTheme, DefaultSyntaxTheme)
	setDefault(&cfg.ServeConfig.Address, DefaultAddress)

	if cfg.ImageConfig.Quality == 0 {
		cfg.ImageConfig.Quality = DefaultImageQuality
	}
	if !meta.IsDefined("serve_config", "watch_excludes") {
		cfg.ServeConfig.WatchExcludes = DefaultWatchExcludes()
	}
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
