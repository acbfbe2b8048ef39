// Package config resolves, parses, validates, and defaults segnala configuration.
package config

// Config is the fully materialized runtime configuration.
type Config struct {
	Speech    SpeechConfig    `yaml:"speech"`
	Vocab     VocabConfig     `yaml:"vocab"`
	Audio     AudioConfig     `yaml:"audio"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Extract   ExtractConfig   `yaml:"extract"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Output    OutputConfig    `yaml:"output"`
	Debug     DebugConfig     `yaml:"debug"`
}

// SpeechConfig controls the streaming recognizer connection and request.
type SpeechConfig struct {
	Endpoint             string `yaml:"endpoint"`
	Insecure             bool   `yaml:"insecure"`
	LanguageCode         string `yaml:"language_code"`
	Model                string `yaml:"model"`
	AutomaticPunctuation bool   `yaml:"automatic_punctuation"`
	DialTimeoutMS        int    `yaml:"dial_timeout_ms"`
}

// VocabConfig selects recognition hint sets.
type VocabConfig struct {
	Global     []string            `yaml:"global"`
	Sets       map[string]VocabSet `yaml:"sets"`
	MaxPhrases int                 `yaml:"max_phrases"`
}

// VocabSet is one named phrase group with a shared boost.
type VocabSet struct {
	Boost   float64  `yaml:"boost"`
	Phrases []string `yaml:"phrases"`
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string `yaml:"input"`
	Fallback string `yaml:"fallback"`
}

// GeminiConfig controls the extraction backend.
type GeminiConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// ExtractConfig controls prompt dates and category normalization.
type ExtractConfig struct {
	Timezone         string `yaml:"timezone"`
	CategoryLanguage string `yaml:"category_language"`
}

// WebhookConfig points at the spreadsheet web app.
type WebhookConfig struct {
	URL       string `yaml:"url"`
	SheetURL  string `yaml:"sheet_url"`
	TimeoutMS int    `yaml:"timeout_ms"`
}

// IndicatorConfig controls notifications and audio cues.
type IndicatorConfig struct {
	Enable         bool   `yaml:"enable"`
	Backend        string `yaml:"backend"`
	AppName        string `yaml:"app_name"`
	SoundEnable    bool   `yaml:"sound_enable"`
	TextRecording  string `yaml:"text_recording"`
	TextProcessing string `yaml:"text_processing"`
	TextSuccess    string `yaml:"text_success"`
	TextError      string `yaml:"text_error"`
	ErrorTimeoutMS int    `yaml:"error_timeout_ms"`
}

// OutputConfig controls what happens to a submitted report locally.
type OutputConfig struct {
	Clipboard bool `yaml:"clipboard"`

	// Command receives the report JSON on stdin.
	Command []string `yaml:"command"`
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool `yaml:"audio_dump"`
	GRPCDump  bool `yaml:"grpc_dump"`
}

// Warning is a non-fatal load or validation message.
type Warning struct {
	Message string
}

// SpeechPhrase is one deduplicated recognition hint.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
