package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gobwas/glob"
)

// Validate checks the configuration after defaults have been applied.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Version, validation.Required, validation.In(DefaultVersion).Error("unsupported configuration version")),
		validation.Field(&c.ContentDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.TemplateDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.PartialsDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.PublicDir, validation.Required, validation.By(relativeDir)),
		validation.Field(&c.BuildDir, validation.Required, validation.By(relativeDir), validation.By(c.distinctBuildDir)),
		validation.Field(&c.TemplatingLanguage, validation.Required, validation.In(DefaultTemplatingLanguage).Error("only liquid templates are supported")),
		validation.Field(&c.ImageConfig),
		validation.Field(&c.ServeConfig),
	)
}

// Validate checks image settings.
func (i ImageConfig) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Quality, validation.Min(1), validation.Max(100)),
	)
}

// Validate checks dev server settings.
func (s ServeConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
		validation.Field(&s.WatchExcludes, validation.Each(validation.By(compilesAsGlob))),
	)
}

func relativeDir(value any) error {
	dir, _ := value.(string)
	clean := filepath.ToSlash(filepath.Clean(dir))
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.New("must stay inside the project directory")
	}
	return nil
}

func (c SiteConfig) distinctBuildDir(value any) error {
	build := filepath.Clean(value.(string))
	if build == "." {
		return errors.New("must not be the project root")
	}
	for _, other := range []string{c.ContentDir, c.TemplateDir, c.PartialsDir, c.PublicDir} {
		if build == filepath.Clean(other) {
			return fmt.Errorf("must not be the same directory as %q", other)
		}
	}
	return nil
}

func compilesAsGlob(value any) error {
	pattern, _ := value.(string)
	if _, err := glob.Compile(pattern, '/'); err != nil {
		return fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	return nil
}
