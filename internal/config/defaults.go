package config

const (
	defaultDataDir             = "~/.local/share/covered/data"
	defaultLogDir              = "~/.local/share/covered/logs"
	defaultAPIBind             = "127.0.0.1:8000"
	defaultBaseURL             = "http://127.0.0.1:8000"
	defaultMailbox             = "INBOX"
	defaultFetchLimit          = 10
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds   = 60
	defaultTTSBaseURL          = "https://generativelanguage.googleapis.com/v1beta"
	defaultTTSModel            = "gemini-2.5-flash-preview-tts"
	defaultTTSVoice            = "Kore"
	defaultTTSTimeoutSeconds   = 120
	defaultBrowserBinary       = "chromium"
	defaultNavTimeoutSeconds   = 60
	defaultViewportWidth       = 1280
	defaultViewportHeight      = 720
	defaultUserAgent           = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	defaultWhisperXBinary      = "whisperx"
	defaultWhisperXModel       = "large-v3"
	defaultFFmpegBinary        = "ffmpeg"
	defaultWorkMode            = "reconcile"
	defaultQueuePollInterval   = 5
	defaultErrorRetryInterval  = 5
	defaultStageTimeoutSeconds = 600
	defaultIngestInterval      = 300
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
			BaseURL: defaultBaseURL,
		},
		Email: Email{
			Host:       "imap.gmail.com",
			Mailbox:    defaultMailbox,
			FetchLimit: defaultFetchLimit,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		TTS: TTS{
			BaseURL:        defaultTTSBaseURL,
			Model:          defaultTTSModel,
			Voice:          defaultTTSVoice,
			TimeoutSeconds: defaultTTSTimeoutSeconds,
		},
		Browser: Browser{
			Binary:            defaultBrowserBinary,
			NavTimeoutSeconds: defaultNavTimeoutSeconds,
			ViewportWidth:     defaultViewportWidth,
			ViewportHeight:    defaultViewportHeight,
			UserAgent:         defaultUserAgent,
		},
		Transcription: Transcription{
			Binary: defaultWhisperXBinary,
			Model:  defaultWhisperXModel,
		},
		Audio: Audio{
			FFmpegBinary: defaultFFmpegBinary,
		},
		Workflow: Workflow{
			Mode:                defaultWorkMode,
			QueuePollInterval:   defaultQueuePollInterval,
			ErrorRetryInterval:  defaultErrorRetryInterval,
			StageTimeoutSeconds: defaultStageTimeoutSeconds,
			IngestInterval:      defaultIngestInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
