package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the postkit pipelines read. It is passed explicitly
// to each entry point so runs and tests never share ambient state.
type Config struct {
	PostsDir       string   `yaml:"posts_dir"`
	AssetDir       string   `yaml:"asset_dir"`
	AssetURLPrefix string   `yaml:"asset_url_prefix"`
	PostDate       string   `yaml:"post_date"`
	PostCategory   string   `yaml:"post_category"`
	PostExt        string   `yaml:"post_ext"`
	ImageExts      []string `yaml:"image_exts"`
	MarkdownExts   []string `yaml:"markdown_exts"`
	Strict         bool     `yaml:"strict"`
	LogFile        string   `yaml:"log_file,omitempty"`
	LogLevel       string   `yaml:"log_level"`

	FixDates FixDatesConfig `yaml:"fix_dates"`
	Reformat ReformatConfig `yaml:"reformat"`
}

// FixDatesConfig configures the date normalizer.
type FixDatesConfig struct {
	Dir        string `yaml:"dir"`
	TargetDate string `yaml:"target_date,omitempty"`
}

// ReformatConfig configures the markdown reformatter.
type ReformatConfig struct {
	Dir              string `yaml:"dir"`
	StylesheetLine   string `yaml:"stylesheet_line"`
	StylesheetMarker string `yaml:"stylesheet_marker"`
	BackupSuffix     string `yaml:"backup_suffix"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		PostsDir:       "_posts",
		AssetDir:       filepath.Join("assets", "images"),
		AssetURLPrefix: "/assets/images",
		PostDate:       "2025-09-27",
		PostCategory:   "writeups",
		PostExt:        ".markdown",
		ImageExts:      []string{".png", ".jpg", ".jpeg", ".gif", ".webp"},
		MarkdownExts:   []string{".md", ".markdown"},
		LogLevel:       "info",
		FixDates: FixDatesConfig{
			Dir: "temp",
		},
		Reformat: ReformatConfig{
			Dir:              "_posts",
			StylesheetLine:   `<link rel="stylesheet" href="{{ '/assets/css/imagesstyle.css' | relative_url }}">`,
			StylesheetMarker: "imagesstyle.css",
			BackupSuffix:     ".bak",
		},
	}
}

// ConfigPath returns the path to the config file.
// POSTKIT_CONFIG wins, then ~/.config, then the XDG config home.
// Can be overridden for testing
var ConfigPath = func() string {
	if p := os.Getenv("POSTKIT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(xdg.ConfigHome, "postkit", "config.yaml")
	}
	return filepath.Join(home, ".config", "postkit", "config.yaml")
}

// Load reads configuration from ConfigPath. A missing file yields defaults;
// keys absent from the file keep their default values.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.normalizeExts()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.ExpandPaths(); err != nil {
		return nil, fmt.Errorf("failed to expand paths: %w", err)
	}

	return cfg, nil
}

// Save writes configuration to ConfigPath
func (c *Config) Save() error {
	configPath := ConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PostsDir == "" {
		return fmt.Errorf("posts_dir cannot be empty")
	}
	if c.AssetDir == "" {
		return fmt.Errorf("asset_dir cannot be empty")
	}
	if c.PostDate == "" {
		return fmt.Errorf("post_date cannot be empty")
	}
	if c.PostCategory == "" {
		return fmt.Errorf("post_category cannot be empty")
	}
	if !strings.HasPrefix(c.PostExt, ".") {
		return fmt.Errorf("post_ext '%s' must start with a dot", c.PostExt)
	}
	if len(c.ImageExts) == 0 {
		return fmt.Errorf("image_exts cannot be empty")
	}
	if len(c.MarkdownExts) == 0 {
		return fmt.Errorf("markdown_exts cannot be empty")
	}
	if c.FixDates.Dir == "" {
		return fmt.Errorf("fix_dates.dir cannot be empty")
	}
	if c.Reformat.Dir == "" {
		return fmt.Errorf("reformat.dir cannot be empty")
	}
	if c.Reformat.BackupSuffix == "" {
		return fmt.Errorf("reformat.backup_suffix cannot be empty")
	}
	if c.Reformat.StylesheetLine != "" && c.Reformat.StylesheetMarker == "" {
		return fmt.Errorf("reformat.stylesheet_marker is required when stylesheet_line is set")
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level '%s': must be one of: debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// ExpandPaths expands ~ in every configured path. Relative paths stay
// relative to the working directory, which is where the site lives.
func (c *Config) ExpandPaths() error {
	targets := []struct {
		name string
		path *string
	}{
		{"posts_dir", &c.PostsDir},
		{"asset_dir", &c.AssetDir},
		{"log_file", &c.LogFile},
		{"fix_dates.dir", &c.FixDates.Dir},
		{"reformat.dir", &c.Reformat.Dir},
	}

	for _, t := range targets {
		expanded, err := expandPath(*t.path)
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", t.name, err)
		}
		*t.path = expanded
	}

	return nil
}

// normalizeExts lower-cases extensions and adds a missing leading dot.
func (c *Config) normalizeExts() {
	c.ImageExts = normalizeExtList(c.ImageExts)
	c.MarkdownExts = normalizeExtList(c.MarkdownExts)
	if c.PostExt != "" && !strings.HasPrefix(c.PostExt, ".") {
		c.PostExt = "." + c.PostExt
	}
}

func normalizeExtList(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// expandPath expands a leading ~ to the home directory
func expandPath(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if len(path) == 1 {
		return homeDir, nil
	}
	return filepath.Join(homeDir, path[1:]), nil
}
