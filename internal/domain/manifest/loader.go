package manifest

import (
	"os"
	"strings"
)

// Loader loads manifests from the filesystem.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads and parses the manifest at path.
func (l *Loader) Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewManifestNotFoundError(path)
		}
		return nil, err
	}

	m, err := Parse(data)
	if err != nil {
		if strings.Contains(err.Error(), "yaml:") || strings.Contains(err.Error(), "unmarshal") {
			return nil, NewYAMLParseError(path, err)
		}
		return nil, err
	}
	return m, nil
}
