// Package manifest reads and writes the project file that sits next to a
// program's sources.
package manifest

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

const Filename = "kaleido.yaml"

type Manifest struct {
	Package string `yaml:"package"`
	// Libraries are searched, in order, for extern symbols when interpreting.
	Libraries []string `yaml:"libraries,omitempty"`
	// Prelude files are run before the main input.
	Prelude []string `yaml:"prelude,omitempty"`

	dir string
}

// Load reads the manifest in dir. A missing file yields a manifest named
// after the directory.
func Load(dir string) (Manifest, error) {
	data, err := ioutil.ReadFile(filepath.Join(dir, Filename))
	if os.IsNotExist(err) {
		abs, _ := filepath.Abs(dir)
		return Manifest{Package: filepath.Base(abs), dir: dir}, nil
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("error reading %s: %w", Filename, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("error reading %s: %w", Filename, err)
	}
	if m.Package == "" {
		return Manifest{}, fmt.Errorf("error reading %s: no package name", Filename)
	}
	m.dir = dir
	return m, nil
}

func Write(dir string, m Manifest) error {
	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", Filename, err)
	}
	if err := ioutil.WriteFile(filepath.Join(dir, Filename), out, 0o644); err != nil {
		return fmt.Errorf("error creating %s: %w", Filename, err)
	}
	return nil
}

// PreludePaths resolves the prelude files relative to the manifest.
func (m Manifest) PreludePaths() []string {
	paths := make([]string, len(m.Prelude))
	for i, p := range m.Prelude {
		if filepath.IsAbs(p) {
			paths[i] = p
		} else {
			paths[i] = filepath.Join(m.dir, p)
		}
	}
	return paths
}
