package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	WorkDir   string `toml:"work_dir"`
	LogDir    string `toml:"log_dir"`
}

// Render contains the heatmap rendering constants.
type Render struct {
	BaseSigma     float64 `toml:"base_sigma"`
	BaseWidth     float64 `toml:"base_width"`
	MinSigma      float64 `toml:"min_sigma"`
	FadeSeconds   float64 `toml:"fade_seconds"`
	DarkenWeight  float64 `toml:"darken_weight"`
	OverlayWeight float64 `toml:"overlay_weight"`
}

// Pipeline contains frame loop tuning. None of these values change the
// rendered pixels.
type Pipeline struct {
	Workers   int  `toml:"workers"`
	BatchSize int  `toml:"batch_size"`
	Streaming bool `toml:"streaming"`
	// MaxFieldBytes switches to the streaming intensity field when the dense
	// field would exceed this many bytes. Zero disables the switch.
	MaxFieldBytes int64 `toml:"max_field_bytes"`
}

// Media contains external tool configuration.
type Media struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	Reduce        bool   `toml:"reduce"`
	MaxWidth      int    `toml:"max_width"`
	MaxHeight     int    `toml:"max_height"`
	CRF           int    `toml:"crf"`
}

// Server contains configuration for the HTTP upload service.
type Server struct {
	Bind        string `toml:"bind"`
	APIToken    string `toml:"api_token"`
	MaxUploadMB int    `toml:"max_upload_mb"`
	Advertise   bool   `toml:"advertise"`
	ServiceType string `toml:"service_type"`
}

// Recording contains configuration for server-side screen capture.
type Recording struct {
	Enabled     bool   `toml:"enabled"`
	InputFormat string `toml:"input_format"`
	InputDevice string `toml:"input_device"`
	FrameRate   int    `toml:"frame_rate"`
	Filter      string `toml:"filter"`
	Audio       bool   `toml:"audio"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for gazeheat.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, and log directories
//   - Render: blur, fade, and blend constants
//   - Pipeline: worker count, progress batching, streaming field
//   - Media: ffmpeg/ffprobe binaries and pre-processing downscale
//   - Server: HTTP bind address, auth token, service advertisement
//   - Recording: screen capture for /start_recording
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Render    Render    `toml:"render"`
	Pipeline  Pipeline  `toml:"pipeline"`
	Media     Media     `toml:"media"`
	Server    Server    `toml:"server"`
	Recording Recording `toml:"recording"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/gazeheat/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %q not found", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("gazeheat.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output, scratch, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable used for downscaling, remuxing, and capture.
func (c *Config) FFmpegBinary() string {
	if bin := strings.TrimSpace(c.Media.FFmpegBinary); bin != "" {
		return bin
	}
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	if bin := strings.TrimSpace(c.Media.FFprobeBinary); bin != "" {
		return bin
	}
	return "ffprobe"
}

// JobsDBPath returns the location of the job history database.
func (c *Config) JobsDBPath() string {
	return filepath.Join(c.Paths.LogDir, "jobs.db")
}

// LogFilePath returns the location of the persistent log file.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "gazeheat.log")
}

// MaxUploadBytes converts the configured upload limit to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultWorkDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "gazeheat", "work")
	}
	return defaultWorkDirFallback
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
