// Package manifest handles minlang.toml project configuration.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project manifest.
const FileName = "minlang.toml"

// Defaults applied by Load when a setting is absent.
const (
	DefaultSourceDir = "src"
	DefaultExtension = ".min"
	DefaultCachePath = ".minlang/cache.db"
)

// Manifest represents a minlang.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Source  Source       `toml:"source"`
	Parser  ParserConfig `toml:"parser"`
	Cache   CacheConfig  `toml:"cache"`
	Log     LogConfig    `toml:"log"`

	// Dir is the directory containing the minlang.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures source file locations.
type Source struct {
	Dirs      []string `toml:"dirs"`
	Extension string   `toml:"extension"`
}

// ParserConfig tunes the parser. A zero MaxDepth selects the parser default.
type ParserConfig struct {
	MaxDepth int `toml:"max-depth"`
}

// CacheConfig configures the check-result cache.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LogConfig sets the default log verbosity; command-line flags override it.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the manifest used for a directory without a minlang.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.Project.Name = filepath.Base(abs)
	m.Cache.Enabled = true
	m.applyDefaults()
	return m, nil
}

// Load parses a minlang.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse error in %s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// The cache is on unless switched off explicitly.
	if !md.IsDefined("cache", "enabled") {
		m.Cache.Enabled = true
	}
	m.applyDefaults()

	doc := map[string]any{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if err := checkSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Source.Dirs) == 0 {
		m.Source.Dirs = []string{DefaultSourceDir}
	}
	if m.Source.Extension == "" {
		m.Source.Extension = DefaultExtension
	}
	if m.Cache.Path == "" {
		m.Cache.Path = DefaultCachePath
	}
}

// FindAndLoad walks up from startDir to find a minlang.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceDirPaths returns absolute paths for the configured source directories.
func (m *Manifest) SourceDirPaths() []string {
	var paths []string
	for _, d := range m.Source.Dirs {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// SourceFiles lists every source file under the source directories, sorted.
// Hidden directories are skipped and missing source directories are ignored.
func (m *Manifest) SourceFiles() ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range m.SourceDirPaths() {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) == m.Source.Extension && !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// CachePath returns the absolute path of the check cache database.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}
