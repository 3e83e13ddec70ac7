/*
Package config manages TOML config for mentionserve services.

	[mention]
	min_chars = 2
	max_items = 5
	server_limit = 30
	should_start_with_space = true

	[lookup]
	base_url = "http://localhost:8089"
	path = "/user/tagsearch"
	timeout = "0s"
	rate = 0.0
	burst = 1

	[emoji]
	asset_path = "/plugins/emotify/design/images"
	template = '<img class="emoji" src="{assetPath}/{filename}" ...>'

	[emoji.table]
	smile = "smile.png"

	[directory]
	db_path = "users.db"
	listen = ":8089"

	[server]
	reload_config = true

Missing keys take their defaults; a file that fails to decode is recovered
section by section.
*/
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/mentionserve/internal/utils"
	"github.com/bastiangx/mentionserve/pkg/emoji"
	"github.com/bastiangx/mentionserve/pkg/lookup"
	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Mention   MentionConfig   `toml:"mention"`
	Lookup    LookupConfig    `toml:"lookup"`
	Emoji     EmojiConfig     `toml:"emoji"`
	Directory DirectoryConfig `toml:"directory"`
	Server    ServerConfig    `toml:"server"`
}

// MentionConfig has matcher and resolver options.
type MentionConfig struct {
	MinChars             int  `toml:"min_chars"`
	MaxItems             int  `toml:"max_items"`
	ServerLimit          int  `toml:"server_limit"`
	ShouldStartWithSpace bool `toml:"should_start_with_space"`
}

// LookupConfig points at the user search endpoint.
type LookupConfig struct {
	BaseURL string  `toml:"base_url"`
	Path    string  `toml:"path"`
	Timeout string  `toml:"timeout"`
	Rate    float64 `toml:"rate"`
	Burst   int     `toml:"burst"`
}

// EmojiConfig holds the emoji table and its markup.
type EmojiConfig struct {
	AssetPath string            `toml:"asset_path"`
	Template  string            `toml:"template"`
	Table     map[string]string `toml:"table"`
}

// DirectoryConfig configures the user directory service.
type DirectoryConfig struct {
	DBPath string `toml:"db_path"`
	Listen string `toml:"listen"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	ReloadConfig bool `toml:"reload_config"`
}

// GetDefaultConfigPath returns the default path for config.toml. The platform
// config dir is preferred, falling back to other writable locations.
func GetDefaultConfigPath() (string, error) {
	resolver, err := utils.NewPathResolver()
	if err != nil {
		return "", err
	}
	return resolver.GetConfigPath("config.toml")
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from -config flag
// 2. Default path: [UserConfigDir]/mentionserve/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	opts := mention.DefaultOptions()
	return &Config{
		Mention: MentionConfig{
			MinChars:             opts.MinChars,
			MaxItems:             opts.MaxItems,
			ServerLimit:          opts.ServerLimit,
			ShouldStartWithSpace: true,
		},
		Lookup: LookupConfig{
			BaseURL: "http://localhost:8089",
			Path:    lookup.DefaultPath,
			Timeout: "0s",
			Rate:    0,
			Burst:   1,
		},
		Emoji: EmojiConfig{
			AssetPath: "/plugins/emotify/design/images",
			Template:  emoji.DefaultTemplate,
			Table:     emoji.DefaultTable(),
		},
		Directory: DirectoryConfig{
			DBPath: "users.db",
			Listen: ":8089",
		},
		Server: ServerConfig{
			ReloadConfig: true,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()
	// a table in the file replaces the default one instead of merging into it
	config.Emoji.Table = nil

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	if config.Emoji.Table == nil {
		config.Emoji.Table = emoji.DefaultTable()
	}
	config.normalize()
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "mention"); ok {
		extractMentionConfig(section, &config.Mention)
	}
	if section, ok := utils.ExtractSection(tempConfig, "lookup"); ok {
		extractLookupConfig(section, &config.Lookup)
	}
	if section, ok := utils.ExtractSection(tempConfig, "emoji"); ok {
		extractEmojiConfig(section, &config.Emoji)
	}
	if section, ok := utils.ExtractSection(tempConfig, "directory"); ok {
		extractDirectoryConfig(section, &config.Directory)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		if val, ok := utils.ExtractBool(section, "reload_config"); ok {
			config.Server.ReloadConfig = val
		}
	}
	config.normalize()
	return config, nil
}

// extractMentionConfig extracts mention configuration from a map
func extractMentionConfig(data map[string]any, m *MentionConfig) {
	if val, ok := utils.ExtractInt64(data, "min_chars"); ok {
		m.MinChars = val
	}
	if val, ok := utils.ExtractInt64(data, "max_items"); ok {
		m.MaxItems = val
	}
	if val, ok := utils.ExtractInt64(data, "server_limit"); ok {
		m.ServerLimit = val
	}
	if val, ok := utils.ExtractBool(data, "should_start_with_space"); ok {
		m.ShouldStartWithSpace = val
	}
}

func extractLookupConfig(data map[string]any, l *LookupConfig) {
	if val, ok := utils.ExtractString(data, "base_url"); ok {
		l.BaseURL = val
	}
	if val, ok := utils.ExtractString(data, "path"); ok {
		l.Path = val
	}
	if val, ok := utils.ExtractString(data, "timeout"); ok {
		l.Timeout = val
	}
	if val, ok := utils.ExtractFloat(data, "rate"); ok {
		l.Rate = val
	}
	if val, ok := utils.ExtractInt64(data, "burst"); ok {
		l.Burst = val
	}
}

func extractEmojiConfig(data map[string]any, e *EmojiConfig) {
	if val, ok := utils.ExtractString(data, "asset_path"); ok {
		e.AssetPath = val
	}
	if val, ok := utils.ExtractString(data, "template"); ok {
		e.Template = val
	}
	if val, ok := utils.ExtractStringMap(data, "table"); ok {
		e.Table = val
	}
}

func extractDirectoryConfig(data map[string]any, d *DirectoryConfig) {
	if val, ok := utils.ExtractString(data, "db_path"); ok {
		d.DBPath = val
	}
	if val, ok := utils.ExtractString(data, "listen"); ok {
		d.Listen = val
	}
}

// normalize replaces unusable values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.Mention.MinChars < 1 {
		log.Warnf("Invalid min_chars %d, using %d", c.Mention.MinChars, def.Mention.MinChars)
		c.Mention.MinChars = def.Mention.MinChars
	}
	if c.Mention.MaxItems < 1 {
		c.Mention.MaxItems = def.Mention.MaxItems
	}
	if c.Mention.ServerLimit < 1 {
		c.Mention.ServerLimit = def.Mention.ServerLimit
	}
	if _, err := time.ParseDuration(c.Lookup.Timeout); err != nil {
		log.Warnf("Invalid lookup timeout %q, using none", c.Lookup.Timeout)
		c.Lookup.Timeout = def.Lookup.Timeout
	}
	if c.Lookup.Burst < 1 {
		c.Lookup.Burst = 1
	}
}

// MentionOptions converts the mention section for mention.NewSession.
func (c *Config) MentionOptions() mention.Options {
	return mention.Options{
		MinChars:    c.Mention.MinChars,
		ServerLimit: c.Mention.ServerLimit,
		MaxItems:    c.Mention.MaxItems,
	}
}

// LookupOptions converts the lookup section for lookup.New.
func (c *Config) LookupOptions() lookup.Options {
	timeout, _ := time.ParseDuration(c.Lookup.Timeout)
	return lookup.Options{
		BaseURL: c.Lookup.BaseURL,
		Path:    c.Lookup.Path,
		Timeout: timeout,
		Rate:    c.Lookup.Rate,
		Burst:   c.Lookup.Burst,
	}
}

// RebuildConfigFile force creates a new config.toml with default values at
// configPath, or at the default location when configPath is empty. It returns
// the path written.
func RebuildConfigFile(configPath string) (string, error) {
	if configPath == "" {
		defaultPath, err := GetDefaultConfigPath()
		if err != nil {
			return "", err
		}
		configPath = defaultPath
	}
	if err := utils.EnsureDir(filepath.Dir(configPath)); err != nil {
		return "", err
	}
	return configPath, SaveConfig(DefaultConfig(), configPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}

// Update changes the mention values and saves to file
func (c *Config) Update(configPath string, minChars, maxItems, serverLimit *int, startWithSpace *bool) error {
	m := &c.Mention
	if minChars != nil {
		m.MinChars = *minChars
	}
	if maxItems != nil {
		m.MaxItems = *maxItems
	}
	if serverLimit != nil {
		m.ServerLimit = *serverLimit
	}
	if startWithSpace != nil {
		m.ShouldStartWithSpace = *startWithSpace
	}
	c.normalize()
	return SaveConfig(c, configPath)
}
