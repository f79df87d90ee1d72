// Package config loads contrib configuration files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/contrib/pkg/orgs"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "contrib.yaml"

// DefaultOrgMapFile is where a new org map is created when the
// configuration names none.
const DefaultOrgMapFile = "author-to-org.json"

// DefaultCacheDir is the cache root, relative to the working directory.
const DefaultCacheDir = "line-data"

// DefaultPart is the single group used when no parts are configured.
var DefaultPart = map[string][]string{"all": {`^.*$`}}

// DefaultIgnore excludes comment-only and blank lines.
var DefaultIgnore = []string{`^\s*#`, `^\s*$`}

// ErrNotFound is returned when the configuration file does not exist.
var ErrNotFound = errors.New("no such file")

// Error reports an unusable configuration.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config is the top-level configuration document.
type Config struct {
	Contrib Contrib `koanf:"contrib" toml:"contrib" yaml:"contrib"`

	// Path is the file the configuration was loaded from.
	Path string `koanf:"-" toml:"-" yaml:"-"`
	// OrgMap is the loaded author to organization map.
	OrgMap orgs.Map `koanf:"-" toml:"-" yaml:"-"`
}

// Contrib holds the settings under the "contrib" key.
type Contrib struct {
	Repo   string              `koanf:"repo" toml:"repo" yaml:"repo"`
	Commit string              `koanf:"commit" toml:"commit" yaml:"commit"`
	OrgMap string              `koanf:"orgmap" toml:"orgmap,omitempty" yaml:"orgmap,omitempty"`
	Cache  string              `koanf:"cache" toml:"cache,omitempty" yaml:"cache,omitempty"`
	Parts  map[string][]string `koanf:"parts" toml:"parts" yaml:"parts"`
	Merge  [][]string          `koanf:"merge" toml:"merge,omitempty" yaml:"merge,omitempty"`
	Ignore []string            `koanf:"ignore" toml:"ignore" yaml:"ignore"`
}

// Default returns a configuration for the repository at repo.
func Default(repo string) *Config {
	return &Config{
		Contrib: Contrib{
			Repo:   repo,
			Commit: "HEAD",
			Cache:  DefaultCacheDir,
			Parts:  clonePart(DefaultPart),
			Ignore: append([]string(nil), DefaultIgnore...),
		},
		OrgMap: orgs.Map{},
	}
}

func clonePart(p map[string][]string) map[string][]string {
	out := make(map[string][]string, len(p))
	for k, v := range p {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return toml.Parser()
	case ".json":
		return json.Parser()
	default:
		return yaml.Parser()
	}
}

// Load loads, validates and resolves a configuration file. Relative repo
// and org map paths are resolved against the file's directory; the org
// map is loaded when it exists.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Path: path, Err: ErrNotFound}
		}
		return nil, &Error{Path: path, Err: err}
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	if err := validateValue("contrib.schema.json", k.Raw()); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := &Config{Path: path}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	c := &cfg.Contrib
	dir := filepath.Dir(path)
	c.Repo = resolve(dir, c.Repo)
	if c.Commit == "" {
		c.Commit = "HEAD"
	}
	if c.Cache == "" {
		c.Cache = DefaultCacheDir
	}
	if !k.Exists("contrib.parts") {
		c.Parts = clonePart(DefaultPart)
	}
	if !k.Exists("contrib.ignore") {
		c.Ignore = append([]string(nil), DefaultIgnore...)
	}

	cfg.OrgMap = orgs.Map{}
	if c.OrgMap != "" {
		c.OrgMap = resolve(dir, c.OrgMap)
		m, err := LoadOrgMap(c.OrgMap)
		if err != nil {
			return nil, &Error{Path: path, Err: err}
		}
		cfg.OrgMap = m
	}

	if err := cfg.Validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(dir, p))
}

// LoadOrgMap reads and validates an org map file. A missing file yields an
// empty map.
func LoadOrgMap(path string) (orgs.Map, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return orgs.Map{}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := validate("orgmap.schema.json", data); err != nil {
		return nil, fmt.Errorf("org map %s: %w", path, err)
	}
	return orgs.Parse(data)
}

// Validate checks settings the schema cannot express.
func (c *Config) Validate() error {
	if c.Contrib.Repo == "" {
		return errors.New("repo is required")
	}
	if len(c.Contrib.Parts) == 0 {
		return errors.New("at least one part is required")
	}
	for _, name := range c.PartNames() {
		for _, p := range c.Contrib.Parts[name] {
			if _, err := regexp.Compile(p); err != nil {
				return fmt.Errorf("part %s: %w", name, err)
			}
		}
	}
	for _, p := range c.Contrib.Ignore {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("ignore: %w", err)
		}
	}
	return nil
}

// PartNames returns the configured part names, sorted.
func (c *Config) PartNames() []string {
	names := make([]string, 0, len(c.Contrib.Parts))
	for name := range c.Contrib.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OrgMapFile returns the org map path, or "" when none is configured.
func (c *Config) OrgMapFile() string {
	return c.Contrib.OrgMap
}
