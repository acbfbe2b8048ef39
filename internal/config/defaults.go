package config

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			Endpoint:             "speech.googleapis.com:443",
			LanguageCode:         "it-IT",
			Model:                "latest_long",
			AutomaticPunctuation: true,
			DialTimeoutMS:        5000,
		},
		Vocab: VocabConfig{
			Sets:       map[string]VocabSet{},
			MaxPhrases: 500,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Gemini: GeminiConfig{
			Model:     "gemini-2.5-flash",
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta",
			TimeoutMS: 30000,
		},
		Extract: ExtractConfig{
			Timezone:         "Europe/Rome",
			CategoryLanguage: "it",
		},
		Webhook: WebhookConfig{
			TimeoutMS: 15000,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "desktop",
			AppName:        "segnala",
			SoundEnable:    true,
			TextRecording:  "Registrazione in corso...",
			TextProcessing: "Elaborazione della segnalazione...",
			TextSuccess:    "Segnalazione inviata",
			TextError:      "Errore",
			ErrorTimeoutMS: 4000,
		},
	}
}
