// Package modes reads and switches the embedded application's active mode.
//
// The mode lives in a JSON configuration record that is copied once from a
// read-only template into a writable location. Mode definitions are files
// named <mode>.json below a modes directory; a mode such as
// "group6/superexplorers_racing" is valid only when its definition exists.
package modes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkwak13/winter-sports/internal/util"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultKey is the JSON path of the mode selector in the configuration.
	DefaultKey = "mode"

	definitionExt = ".json"

	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644
)

// ErrModeNotSet is returned by GetMode when the configuration has no mode.
var ErrModeNotSet = errors.New("configuration does not select a mode")

// ConfigInitError reports that the writable configuration could not be
// created from the template.
type ConfigInitError struct {
	Template string
	Path     string
	Err      error
}

func (e *ConfigInitError) Error() string {
	return fmt.Sprintf("initialize configuration %s from %s: %v", e.Path, e.Template, e.Err)
}

func (e *ConfigInitError) Unwrap() error {
	return e.Err
}

// InvalidModeError reports a mode without a definition file.
type InvalidModeError struct {
	Mode       string
	Definition string
}

func (e *InvalidModeError) Error() string {
	if e.Definition == "" {
		return fmt.Sprintf("mode %q is not a valid mode identifier", e.Mode)
	}
	return fmt.Sprintf("mode %q not found (expected %s)", e.Mode, e.Definition)
}

// Options locates the files a Store works with.
type Options struct {
	// TemplatePath is the read-only configuration shipped with the app.
	TemplatePath string
	// ConfigPath is the writable copy passed to the app at launch.
	ConfigPath string
	// ModesDir holds the <mode>.json definitions.
	ModesDir string
	// Key is the JSON path of the mode selector. Defaults to DefaultKey.
	Key string
}

// Store reads and writes the mode selector of the writable configuration.
type Store struct {
	templatePath string
	configPath   string
	modesDir     string
	key          string
}

// NewStore builds a Store from opts.
func NewStore(opts Options) *Store {
	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		templatePath: opts.TemplatePath,
		configPath:   opts.ConfigPath,
		modesDir:     opts.ModesDir,
		key:          key,
	}
}

// Normalize trims whitespace, converts path separators to slashes and strips
// any trailing definition extension, so "a/b.json.json" becomes "a/b". Names
// are NFC-composed so equal names typed differently compare equal.
func Normalize(mode string) string {
	mode = norm.NFC.String(strings.TrimSpace(filepath.ToSlash(mode)))
	for strings.HasSuffix(mode, definitionExt) {
		mode = strings.TrimSuffix(mode, definitionExt)
	}
	return mode
}

// ConfigPath returns the writable configuration path.
func (s *Store) ConfigPath() string {
	return s.configPath
}

// EnsureWritableConfig copies the template to the writable location unless
// a writable copy already exists.
func (s *Store) EnsureWritableConfig() error {
	if _, err := os.Stat(s.configPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &ConfigInitError{Template: s.templatePath, Path: s.configPath, Err: err}
	}

	raw, err := os.ReadFile(s.templatePath)
	if err != nil {
		return &ConfigInitError{Template: s.templatePath, Path: s.configPath, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(s.configPath), defaultDirPerm); err != nil {
		return &ConfigInitError{Template: s.templatePath, Path: s.configPath, Err: err}
	}
	if err := util.WriteFileAtomic(s.configPath, raw, defaultFilePerm); err != nil {
		return &ConfigInitError{Template: s.templatePath, Path: s.configPath, Err: err}
	}
	return nil
}

// DefinitionPath returns the definition file backing mode.
func (s *Store) DefinitionPath(mode string) (string, error) {
	mode = Normalize(mode)
	if mode == "" || path.IsAbs(mode) || strings.Contains(mode, ":") {
		return "", &InvalidModeError{Mode: mode}
	}

	cleaned := path.Clean(mode)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", &InvalidModeError{Mode: mode}
	}

	return filepath.Join(s.modesDir, filepath.FromSlash(cleaned)+definitionExt), nil
}

// Exists reports whether mode has a definition file.
func (s *Store) Exists(mode string) bool {
	def, err := s.DefinitionPath(mode)
	if err != nil {
		return false
	}
	info, err := os.Stat(def)
	return err == nil && info.Mode().IsRegular()
}

// SetMode validates mode and writes it into the writable configuration. An
// invalid mode returns *InvalidModeError and nothing is written. Every other
// value in the configuration is preserved.
func (s *Store) SetMode(mode string) error {
	mode = Normalize(mode)

	def, err := s.DefinitionPath(mode)
	if err != nil {
		return err
	}
	if !s.Exists(mode) {
		return &InvalidModeError{Mode: mode, Definition: def}
	}

	raw, err := s.readConfig()
	if err != nil {
		return err
	}

	updated, err := sjson.SetBytes(raw, s.key, mode)
	if err != nil {
		return fmt.Errorf("set %s in %s: %w", s.key, s.configPath, err)
	}

	if err := util.WriteFileAtomic(s.configPath, updated, defaultFilePerm); err != nil {
		return fmt.Errorf("write %s: %w", s.configPath, err)
	}
	return nil
}

// GetMode returns the normalized mode selected by the writable configuration.
func (s *Store) GetMode() (string, error) {
	raw, err := s.readConfig()
	if err != nil {
		return "", err
	}

	value := gjson.GetBytes(raw, s.key)
	if !value.Exists() || value.Type == gjson.Null {
		return "", ErrModeNotSet
	}
	if value.Type != gjson.String {
		return "", fmt.Errorf("%s in %s is %s, not a string", s.key, s.configPath, value.Type)
	}
	return Normalize(value.String()), nil
}

// ListModes returns every mode defined under the modes directory, sorted.
func (s *Store) ListModes() ([]string, error) {
	var found []string
	err := filepath.WalkDir(s.modesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(d.Name()) != definitionExt {
			return nil
		}
		rel, err := filepath.Rel(s.modesDir, p)
		if err != nil {
			return err
		}
		found = append(found, Normalize(rel))
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list modes in %s: %w", s.modesDir, err)
	}

	sort.Strings(found)
	return found, nil
}

func (s *Store) readConfig() ([]byte, error) {
	raw, err := os.ReadFile(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.configPath, err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%s is not valid JSON", s.configPath)
	}
	return raw, nil
}
