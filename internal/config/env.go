package config

import (
	"errors"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
)

// EnvBasePath names the variable that selects the project root when no path
// flag is given.
const EnvBasePath = "WEAVING_BASE_PATH"

// LoadEnvFiles loads .env and .env.local from dir into the process
// environment. Variables that are already set are never overridden; missing
// files are skipped. It returns the files that were loaded.
func LoadEnvFiles(dir string) ([]string, error) {
	var loaded []string
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, err
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}
