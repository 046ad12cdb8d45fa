package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"gazeheat/internal/config"
	"gazeheat/internal/deps"
	"gazeheat/internal/jobs"
	"gazeheat/internal/logging"
	"gazeheat/internal/media/ffmpeg"
	"gazeheat/internal/media/ffprobe"
	"gazeheat/internal/media/videoio"
	"gazeheat/internal/pipeline"
	"gazeheat/internal/recording"
	"gazeheat/internal/workflow"
)

// mediaToolset is everything the commands need from ffmpeg.
type mediaToolset interface {
	workflow.MediaTools
	recording.Muxer
}

// Backends are swapped in tests so commands run without real codecs.
var (
	newFrameMedia = func(*config.Config) pipeline.Media {
		return videoio.Opener{}
	}
	newMediaTools = func(cfg *config.Config) mediaToolset {
		return ffmpeg.NewCLI(
			ffmpeg.WithBinary(deps.ResolveTool(cfg.FFmpegBinary(), "ffmpeg")),
			ffmpeg.WithProber(ffprobe.CLI{Binary: deps.ResolveTool(cfg.FFprobeBinary(), "ffprobe")}),
		)
	}
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// appRuntime bundles the collaborators a generating command needs.
type appRuntime struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *jobs.Store
	tools   mediaToolset
	manager *workflow.Manager
}

func (c *commandContext) openRuntime(hub *logging.StreamHub) (*appRuntime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg, hub)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}
	tools := newMediaTools(cfg)
	return &appRuntime{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		tools:   tools,
		manager: workflow.NewManager(cfg, store, newFrameMedia(cfg), tools, logger),
	}, nil
}

func (r *appRuntime) Close() {
	if r == nil || r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Warn("failed to close job store", logging.Error(err))
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
