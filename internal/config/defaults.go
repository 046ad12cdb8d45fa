package config

const (
	defaultOutputDir          = "~/Desktop/Heatmap"
	defaultWorkDirFallback    = "~/.cache/gazeheat/work"
	defaultLogDir             = "~/.local/share/gazeheat/logs"
	defaultLogRetentionDays   = 30
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultBaseSigma          = 40.0
	defaultBaseWidth          = 1920.0
	defaultMinSigma           = 5.0
	defaultFadeSeconds        = 0.3
	defaultDarkenWeight       = 0.5
	defaultOverlayWeight      = 0.8
	defaultWorkers            = 4
	defaultMaxFieldBytes      = 2 << 30
	defaultMaxWidth           = 1280
	defaultMaxHeight          = 720
	defaultCRF                = 28
	defaultServerBind         = "0.0.0.0:0"
	defaultMaxUploadMB        = 1024
	defaultServiceType        = "_visionpro._tcp"
	defaultRecordingFormat    = "avfoundation"
	defaultRecordingDevice    = "1"
	defaultRecordingFrameRate = 20
	defaultRecordingFilter    = "crop=iw:ih*0.865:0:ih*0.085,scale=1280:720"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir(),
			LogDir:    defaultLogDir,
		},
		Render: Render{
			BaseSigma:     defaultBaseSigma,
			BaseWidth:     defaultBaseWidth,
			MinSigma:      defaultMinSigma,
			FadeSeconds:   defaultFadeSeconds,
			DarkenWeight:  defaultDarkenWeight,
			OverlayWeight: defaultOverlayWeight,
		},
		Pipeline: Pipeline{
			Workers:       defaultWorkers,
			MaxFieldBytes: defaultMaxFieldBytes,
		},
		Media: Media{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			Reduce:        true,
			MaxWidth:      defaultMaxWidth,
			MaxHeight:     defaultMaxHeight,
			CRF:           defaultCRF,
		},
		Server: Server{
			Bind:        defaultServerBind,
			MaxUploadMB: defaultMaxUploadMB,
			Advertise:   true,
			ServiceType: defaultServiceType,
		},
		Recording: Recording{
			Enabled:     true,
			InputFormat: defaultRecordingFormat,
			InputDevice: defaultRecordingDevice,
			FrameRate:   defaultRecordingFrameRate,
			Filter:      defaultRecordingFilter,
			Audio:       true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
