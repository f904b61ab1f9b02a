package config

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/weaving/internal/foundation/errors"
)

// DefaultTOML is the configuration written by `weaving config`.
const DefaultTOML = `version = 1
content_dir = "content"
base_url = "localhost:8080"
partials_dir = "partials"
public_dir = "public"
build_dir = "site"
template_dir = "templates"
templating_language = "liquid"

[image_config]
quality = 83

[serve_config]
watch_excludes = [".git", "node_modules", "site"]
npm_build = false
address = "localhost:8080"
`

// Init writes the default configuration file into baseDir. An existing file
// is only replaced when force is set.
func Init(baseDir string, force bool) (string, error) {
	path := filepath.Join(baseDir, FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return path, errors.ValidationError("configuration file already exists (use -f to overwrite)").
			WithPath(path).Build()
	}
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return path, errors.WrapError(err, errors.CategoryIO, "create project directory").WithPath(baseDir).Build()
	}
	if err := os.WriteFile(path, []byte(DefaultTOML), 0o600); err != nil {
		return path, errors.WrapError(err, errors.CategoryIO, "write configuration").WithPath(path).Build()
	}
	return path, nil
}
