package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizePipeline()
	c.normalizeMedia()
	c.normalizeServer()
	c.normalizeRecording()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir()
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRender() {
	if c.Render.BaseSigma == 0 {
		c.Render.BaseSigma = defaultBaseSigma
	}
	if c.Render.BaseWidth == 0 {
		c.Render.BaseWidth = defaultBaseWidth
	}
	if c.Render.MinSigma == 0 {
		c.Render.MinSigma = defaultMinSigma
	}
	if c.Render.FadeSeconds == 0 {
		c.Render.FadeSeconds = defaultFadeSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = runtime.NumCPU()
	}
	if c.Pipeline.BatchSize < 0 {
		c.Pipeline.BatchSize = 0
	}
	if c.Pipeline.MaxFieldBytes < 0 {
		c.Pipeline.MaxFieldBytes = 0
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = "ffmpeg"
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = "ffprobe"
	}
	if c.Media.MaxWidth <= 0 {
		c.Media.MaxWidth = defaultMaxWidth
	}
	if c.Media.MaxHeight <= 0 {
		c.Media.MaxHeight = defaultMaxHeight
	}
	if c.Media.CRF <= 0 {
		c.Media.CRF = defaultCRF
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("GAZEHEAT_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
	c.Server.ServiceType = strings.TrimSpace(c.Server.ServiceType)
	if c.Server.ServiceType == "" {
		c.Server.ServiceType = defaultServiceType
	}
}

func (c *Config) normalizeRecording() {
	c.Recording.InputFormat = strings.TrimSpace(c.Recording.InputFormat)
	if c.Recording.InputFormat == "" {
		c.Recording.InputFormat = defaultRecordingFormat
	}
	c.Recording.InputDevice = strings.TrimSpace(c.Recording.InputDevice)
	if c.Recording.InputDevice == "" {
		c.Recording.InputDevice = defaultRecordingDevice
	}
	if c.Recording.FrameRate <= 0 {
		c.Recording.FrameRate = defaultRecordingFrameRate
	}
	c.Recording.Filter = strings.TrimSpace(c.Recording.Filter)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
