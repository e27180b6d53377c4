package config

import (
	"embed"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var defaultYAML embed.FS

// Config is the application configuration shared by the server, the fetcher
// and the CLI.
type Config struct {
	CorpusDir  string `yaml:"corpus_dir"`
	ArchiveDir string `yaml:"archive_dir"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"` // 0 means one per CPU

	Server ServerConfig `yaml:"server"`
	FTP    FTPConfig    `yaml:"ftp"`

	SuggestedKeywords []string   `yaml:"suggested_keywords"`
	CommonCPVCodes    []CPVEntry `yaml:"common_cpv_codes"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port string `yaml:"port"`
}

// FTPConfig holds the settings for the notice archive mirror.
type FTPConfig struct {
	Host           string `yaml:"host"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	DaysToDownload int    `yaml:"days_to_download"`
	DaysToKeep     int    `yaml:"days_to_keep"`
	RunAt          string `yaml:"run_at"` // HH:MM local time
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"` // Default: 30
}

// CPVEntry pairs a CPV code with its display name for the UI.
type CPVEntry struct {
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

// Load reads the embedded default configuration, overridden by the file at
// path when one is given and readable. Environment variables within the YAML
// content (e.g. ${FTP_PASSWORD}) are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := defaultYAML.ReadFile("config.yaml")
	if err != nil {
		return nil, err
	}
	if path != "" {
		if fileData, err := os.ReadFile(path); err == nil {
			data = fileData
		}
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.CorpusDir == "" {
		c.CorpusDir = "EIS-XML-Files"
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = "EIS-Automatic-Download"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.FTP.Host == "" {
		c.FTP.Host = "open.iub.gov.lv"
	}
	if c.FTP.User == "" {
		c.FTP.User = "anonymous"
	}
	if c.FTP.DaysToDownload <= 0 {
		c.FTP.DaysToDownload = 90
	}
	if c.FTP.DaysToKeep <= 0 {
		c.FTP.DaysToKeep = 90
	}
	if c.FTP.RunAt == "" {
		c.FTP.RunAt = "05:00"
	}
	if c.FTP.TimeoutSeconds <= 0 {
		c.FTP.TimeoutSeconds = 30
	}
}
