// Package settings exposes configuration by slash path, such as
// "Slicing/LayerThickness".
//
// Store is backed by viper: defaults registered in code, an optional TOML
// or YAML file, and LAMINA_ environment overrides (LAMINA_SLICING_SKINS).
// The pipeline reads typed snapshots decoded once per run.
package settings

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// ErrInvalid reports settings that cannot drive a run.
var ErrInvalid = errors.New("settings: invalid")

// Settings is read-only access by slash path.
type Settings interface {
	GetFloat(path string) float64
	GetInt(path string) int
	GetBool(path string) bool
	GetString(path string) string
}

// Store is the viper-backed Settings.
type Store struct {
	v *viper.Viper
}

var _ Settings = (*Store)(nil)

// New returns a store holding the defaults and environment overrides.
func New() *Store {
	v := viper.NewWithOptions(viper.KeyDelimiter("/"))
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix("LAMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer("/", "_"))
	v.AutomaticEnv()
	return &Store{v: v}
}

// Load returns a store reading path on top of the defaults. The format
// follows the extension.
func Load(path string) (*Store, error) {
	s := New()
	if err := s.Read(path); err != nil {
		return nil, err
	}
	return s, nil
}

// Read merges the file at path into s.
func (s *Store) Read(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".yaml", ".yml":
	default:
		return fmt.Errorf("%w: config %s: unsupported format", ErrInvalid, path)
	}
	s.v.SetConfigFile(path)
	if err := s.v.MergeInConfig(); err != nil {
		return fmt.Errorf("settings: read %s: %w", path, err)
	}
	return nil
}

// ConfigFile returns the file last read, or "".
func (s *Store) ConfigFile() string { return s.v.ConfigFileUsed() }

// Set overrides one value.
func (s *Store) Set(path string, value any) { s.v.Set(path, value) }

func (s *Store) GetFloat(path string) float64 { return s.v.GetFloat64(path) }
func (s *Store) GetInt(path string) int       { return s.v.GetInt(path) }
func (s *Store) GetBool(path string) bool     { return s.v.GetBool(path) }
func (s *Store) GetString(path string) string { return s.v.GetString(path) }

// WriteTOML writes the effective settings of s.
func WriteTOML(w io.Writer, s *Store) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(s.v.AllSettings()); err != nil {
		return fmt.Errorf("settings: write toml: %w", err)
	}
	return nil
}
