/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied after the file is merged.
// The Postgres password is never part of the file; it lives in the OS keychain.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Storage       StorageConfig `yaml:"storage"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	// Mode is auto|desktop|editor|mobile. auto classifies the viewport.
	Mode                 string `yaml:"mode"`
	TelemetryOptIn       bool   `yaml:"telemetry_opt_in"`
	DisableNotifications bool   `yaml:"disable_notifications"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // file | sqlite | postgres
	Path        string `yaml:"path"`    // file or sqlite database; empty means next to config.yaml
	Book        string `yaml:"book"`    // book name used by the SQL backends
	PostgresDSN string `yaml:"postgres_dsn"`
}

type ExportConfig struct {
	OutDir          string  `yaml:"out_dir"`
	Format          string  `yaml:"format"` // png | svg
	Bundle          string  `yaml:"bundle"` // dir | zip | pdf
	Scale           float64 `yaml:"scale"`
	RenderDelayMs   int     `yaml:"render_delay_ms"`
	DownloadDelayMs int     `yaml:"download_delay_ms"`
	FilePrefix      string  `yaml:"file_prefix"`
	FontPath        string  `yaml:"font_path"`
	Background      string  `yaml:"background"` // "#rrggbb"; empty is transparent
	BackgroundImage string  `yaml:"background_image"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Mode: "auto"},
		Storage:       StorageConfig{Backend: "file", Book: "default"},
		Export: ExportConfig{
			OutDir:          "exports",
			Format:          "png",
			Bundle:          "dir",
			Scale:           2,
			RenderDelayMs:   500,
			DownloadDelayMs: 300,
			FilePrefix:      "book",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PXB_CONFIG"
	EnvMode           = "PXB_MODE"
	EnvTelemetryOptIn = "PXB_TELEMETRY_OPT_IN"
	EnvNotifyDisable  = "PXB_NOTIFY_DISABLE"
	EnvStorageBackend = "PXB_STORAGE_BACKEND"
	EnvStoragePath    = "PXB_STORAGE_PATH"
	EnvBook           = "PXB_BOOK"
	EnvPostgresDSN    = "PXB_PG_DSN"
	EnvPostgresPass   = "PXB_PG_PASSWORD"
	EnvExportDir      = "PXB_EXPORT_DIR"
	EnvExportFormat   = "PXB_EXPORT_FORMAT"
	EnvExportBundle   = "PXB_EXPORT_BUNDLE"
	EnvExportScale    = "PXB_EXPORT_SCALE"
	EnvExportFontPath = "PXB_EXPORT_FONT"
	EnvLogLevel       = "PXB_LOG_LEVEL"
	EnvLogFormat      = "PXB_LOG_FORMAT"
	EnvLogSource      = "PXB_LOG_SOURCE"
	EnvLogFile        = "PXB_LOG_FILE"
)

// ConfigPath returns the per-user config file path. PXB_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PixelBook")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PixelBook")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "pixelbook")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "pixelbook")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// The Postgres password is returned separately: PXB_PG_PASSWORD first, then the OS keychain.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, "", fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	}
	applyEnvOverrides(&cfg)
	if v := os.Getenv(EnvPostgresPass); v != "" {
		return cfg, v, nil
	}
	secret, _ := tokenStore.Get(keyringService, keyringPostgres)
	return cfg, secret, nil
}

// Save writes the user config YAML and stores the Postgres password in the keychain (if non-empty).
func Save(cfg AppConfig, secret string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if secret != "" {
		if err := tokenStore.Set(keyringService, keyringPostgres, secret); err != nil {
			return fmt.Errorf("store postgres password: %w", err)
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.TrimSpace(src.General.Mode); v != "" {
		dst.General.Mode = strings.ToLower(v)
	}
	// booleans: copied directly so file preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.DisableNotifications = src.General.DisableNotifications

	if v := strings.TrimSpace(src.Storage.Backend); v != "" {
		dst.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if v := strings.TrimSpace(src.Storage.Book); v != "" {
		dst.Storage.Book = v
	}
	if v := strings.TrimSpace(src.Storage.PostgresDSN); v != "" {
		dst.Storage.PostgresDSN = v
	}

	e := src.Export
	if v := strings.TrimSpace(e.OutDir); v != "" {
		dst.Export.OutDir = v
	}
	if v := strings.TrimSpace(e.Format); v != "" {
		dst.Export.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(e.Bundle); v != "" {
		dst.Export.Bundle = strings.ToLower(v)
	}
	if e.Scale > 0 {
		dst.Export.Scale = e.Scale
	}
	if e.RenderDelayMs > 0 {
		dst.Export.RenderDelayMs = e.RenderDelayMs
	}
	if e.DownloadDelayMs > 0 {
		dst.Export.DownloadDelayMs = e.DownloadDelayMs
	}
	if v := strings.TrimSpace(e.FilePrefix); v != "" {
		dst.Export.FilePrefix = v
	}
	if v := strings.TrimSpace(e.FontPath); v != "" {
		dst.Export.FontPath = v
	}
	if v := strings.TrimSpace(e.Background); v != "" {
		dst.Export.Background = v
	}
	if v := strings.TrimSpace(e.BackgroundImage); v != "" {
		dst.Export.BackgroundImage = v
	}

	if v := strings.TrimSpace(src.Logging.Level); v != "" {
		dst.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(src.Logging.Format); v != "" {
		dst.Logging.Format = strings.ToLower(v)
	}
	dst.Logging.Source = src.Logging.Source
	if v := strings.TrimSpace(src.Logging.File); v != "" {
		dst.Logging.File = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *AppConfig) {
	str := func(key string, dst *string, lower bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if lower {
				v = strings.ToLower(v)
			}
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = parseBool(v)
		}
	}

	str(EnvMode, &cfg.General.Mode, true)
	boolean(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	boolean(EnvNotifyDisable, &cfg.General.DisableNotifications)

	str(EnvStorageBackend, &cfg.Storage.Backend, true)
	str(EnvStoragePath, &cfg.Storage.Path, false)
	str(EnvBook, &cfg.Storage.Book, false)
	str(EnvPostgresDSN, &cfg.Storage.PostgresDSN, false)

	str(EnvExportDir, &cfg.Export.OutDir, false)
	str(EnvExportFormat, &cfg.Export.Format, true)
	str(EnvExportBundle, &cfg.Export.Bundle, true)
	str(EnvExportFontPath, &cfg.Export.FontPath, false)
	if v := strings.TrimSpace(os.Getenv(EnvExportScale)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Export.Scale = f
		}
	}

	str(EnvLogLevel, &cfg.Logging.Level, true)
	str(EnvLogFormat, &cfg.Logging.Format, true)
	boolean(EnvLogSource, &cfg.Logging.Source)
	str(EnvLogFile, &cfg.Logging.File, false)
}

var envKeys = map[string]string{
	"general.mode":                  EnvMode,
	"general.telemetry_opt_in":      EnvTelemetryOptIn,
	"general.disable_notifications": EnvNotifyDisable,
	"storage.backend":               EnvStorageBackend,
	"storage.path":                  EnvStoragePath,
	"storage.book":                  EnvBook,
	"storage.postgres_dsn":          EnvPostgresDSN,
	"export.out_dir":                EnvExportDir,
	"export.format":                 EnvExportFormat,
	"export.bundle":                 EnvExportBundle,
	"export.scale":                  EnvExportScale,
	"export.font_path":              EnvExportFontPath,
	"logging.level":                 EnvLogLevel,
	"logging.format":                EnvLogFormat,
	"logging.source":                EnvLogSource,
	"logging.file":                  EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// ResolvedStoragePath returns the storage file for the file and sqlite backends.
// A relative or empty path resolves against the directory holding config.yaml.
func (c AppConfig) ResolvedStoragePath() (string, error) {
	p := strings.TrimSpace(c.Storage.Path)
	if p != "" && filepath.IsAbs(p) {
		return p, nil
	}
	cfgPath, err := ConfigPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(cfgPath)
	if p != "" {
		return filepath.Join(dir, p), nil
	}
	switch c.Storage.Backend {
	case "sqlite":
		return filepath.Join(dir, "book.sqlite"), nil
	default:
		return filepath.Join(dir, "book.json"), nil
	}
}

// PostgresURL returns the configured DSN with password injected when the DSN
// is URL-shaped and carries none of its own.
func (s StorageConfig) PostgresURL(password string) (string, error) {
	dsn := strings.TrimSpace(s.PostgresDSN)
	if dsn == "" {
		return "", errors.New("storage.postgres_dsn is empty")
	}
	if password == "" || !strings.Contains(dsn, "://") {
		return dsn, nil
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse postgres dsn: %w", err)
	}
	if u.User == nil {
		return dsn, nil
	}
	if _, has := u.User.Password(); has {
		return dsn, nil
	}
	u.User = url.UserPassword(u.User.Username(), password)
	return u.String(), nil
}

// RenderDelay is the settle wait before each spread capture.
func (e ExportConfig) RenderDelay() time.Duration {
	return time.Duration(e.RenderDelayMs) * time.Millisecond
}

// DownloadDelay is the pause between consecutive exported files.
func (e ExportConfig) DownloadDelay() time.Duration {
	return time.Duration(e.DownloadDelayMs) * time.Millisecond
}
