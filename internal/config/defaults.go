package config

const (
	defaultDataDir             = "~/.local/share/reelsmith"
	defaultLogDir              = "~/.local/share/reelsmith/logs"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultSpeechBaseURL       = "https://api.elevenlabs.io"
	defaultSpeechVoice         = "narrator"
	defaultSpeechTimeout       = 60
	defaultFootageBaseURL      = "https://api.pexels.com"
	defaultFootageClipsPer     = 3
	defaultFootageTimeout      = 30
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "anthropic/claude-sonnet-4"
	defaultLLMReferer          = "https://github.com/reelsmith/reelsmith"
	defaultLLMTitle            = "Reelsmith Content Engine"
	defaultLLMTimeout          = 120
	defaultWorkerBaseURL       = "http://127.0.0.1:3333"
	defaultWorkerTimeout       = 30
	defaultPollIntervalSeconds = 30
	defaultMaxPollAttempts     = 30
	defaultMinDurationSeconds  = 180
	defaultMaxDurationSeconds  = 600
	defaultFPS                 = 30
	defaultWidth               = 1080
	defaultHeight              = 1920
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Speech: Speech{
			BaseURL:        defaultSpeechBaseURL,
			Voice:          defaultSpeechVoice,
			TimeoutSeconds: defaultSpeechTimeout,
		},
		Footage: Footage{
			BaseURL:        defaultFootageBaseURL,
			ClipsPerScene:  defaultFootageClipsPer,
			TimeoutSeconds: defaultFootageTimeout,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeout,
		},
		RenderWorker: RenderWorker{
			BaseURL:        defaultWorkerBaseURL,
			TimeoutSeconds: defaultWorkerTimeout,
		},
		Pipeline: Pipeline{
			PollIntervalSeconds: defaultPollIntervalSeconds,
			MaxPollAttempts:     defaultMaxPollAttempts,
			MinDurationSeconds:  defaultMinDurationSeconds,
			MaxDurationSeconds:  defaultMaxDurationSeconds,
			FPS:                 defaultFPS,
			Width:               defaultWidth,
			Height:              defaultHeight,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
