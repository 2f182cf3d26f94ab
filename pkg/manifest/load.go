// Package manifest loads and validates the supervisor configuration.
package manifest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads the manifest at path. Files ending in .toml are decoded as
// TOML, anything else as YAML. A missing file yields an error matching
// fs.ErrNotExist; callers fall back to Default.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m *Manifest
	if isTOML(path) {
		m, err = ParseTOML(data)
	} else {
		m, err = Parse(data)
	}
	if err != nil {
		return nil, err
	}
	m.FilePath = path
	return m, nil
}

// Parse decodes YAML over the defaults and interpolates ${root}.
func Parse(data []byte) (*Manifest, error) {
	m := Default()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.interpolate()
	return m, nil
}

// ParseTOML decodes TOML over the defaults and interpolates ${root}.
func ParseTOML(data []byte) (*Manifest, error) {
	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.interpolate()
	return m, nil
}

// Save writes m to path in the format implied by its extension.
func Save(m *Manifest, path string) error {
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(m)
	} else {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err = enc.Encode(m); err == nil {
			err = enc.Close()
		}
		data = buf.Bytes()
	}
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// interpolate replaces ${root} in every path-like field.
func (m *Manifest) interpolate() {
	r := strings.NewReplacer("${root}", m.Root)
	m.Dir = r.Replace(m.Dir)
	m.Logs.Root = r.Replace(m.Logs.Root)
	m.Hooks.Root = r.Replace(m.Hooks.Root)
	m.ControlSocket = r.Replace(m.ControlSocket)
	for i, arg := range m.Command {
		m.Command[i] = r.Replace(arg)
	}
	for k, v := range m.Env {
		m.Env[k] = r.Replace(v)
	}
}
