package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Speech.Endpoint) == "" {
		return nil, fmt.Errorf("speech.endpoint must not be empty")
	}
	if strings.TrimSpace(cfg.Speech.LanguageCode) == "" {
		return nil, fmt.Errorf("speech.language_code must not be empty")
	}
	if cfg.Speech.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("speech.dial_timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Gemini.Model) == "" {
		return nil, fmt.Errorf("gemini.model must not be empty")
	}
	if _, err := parseHTTPURL(cfg.Gemini.BaseURL); err != nil {
		return nil, fmt.Errorf("gemini.base_url: %w", err)
	}
	if cfg.Gemini.TimeoutMS <= 0 {
		return nil, fmt.Errorf("gemini.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		warnings = append(warnings, Warning{Message: "no Gemini API key configured; set gemini.api_key, " + APIKeyEnv + ", or use `segnala key`"})
	}
	if _, err := time.LoadLocation(strings.TrimSpace(cfg.Extract.Timezone)); err != nil {
		return nil, fmt.Errorf("extract.timezone %q: %w", cfg.Extract.Timezone, err)
	}
	if strings.TrimSpace(cfg.Extract.CategoryLanguage) == "" {
		return nil, fmt.Errorf("extract.category_language must not be empty")
	}
	if cfg.Webhook.TimeoutMS <= 0 {
		return nil, fmt.Errorf("webhook.timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Webhook.URL) == "" {
		warnings = append(warnings, Warning{Message: "webhook.url is not set; reports cannot be submitted"})
	} else {
		u, err := parseHTTPURL(cfg.Webhook.URL)
		if err != nil {
			return nil, fmt.Errorf("webhook.url: %w", err)
		}
		if u.Scheme != "https" {
			warnings = append(warnings, Warning{Message: "webhook.url does not use https"})
		}
	}
	if cfg.Webhook.SheetURL != "" {
		if _, err := parseHTTPURL(cfg.Webhook.SheetURL); err != nil {
			return nil, fmt.Errorf("webhook.sheet_url: %w", err)
		}
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Indicator.Backend))
	if backend != "hypr" && backend != "desktop" {
		return nil, fmt.Errorf("indicator.backend must be one of: hypr, desktop")
	}
	if backend == "desktop" && strings.TrimSpace(cfg.Indicator.AppName) == "" {
		return nil, fmt.Errorf("indicator.app_name must not be empty when indicator.backend=desktop")
	}
	if cfg.Indicator.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("indicator.error_timeout_ms must be >= 0")
	}
	if cfg.Vocab.MaxPhrases <= 0 {
		return nil, fmt.Errorf("vocab.max_phrases must be > 0")
	}

	_, vocabWarnings, err := BuildSpeechPhrases(cfg)
	if err != nil {
		return nil, err
	}
	return append(warnings, vocabWarnings...), nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%q must be an http(s) URL", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%q has no host", raw)
	}
	return u, nil
}

// BuildSpeechPhrases merges the enabled vocab sets into sorted hints. A
// phrase present in several sets keeps the highest boost.
func BuildSpeechPhrases(cfg Config) ([]SpeechPhrase, []Warning, error) {
	if len(cfg.Vocab.Global) == 0 {
		return nil, nil, nil
	}

	type candidate struct {
		boost float64
		from  string
	}

	warnings := make([]Warning, 0)
	selected := make(map[string]candidate)

	for _, name := range cfg.Vocab.Global {
		set, ok := cfg.Vocab.Sets[name]
		if !ok {
			return nil, nil, fmt.Errorf("vocab.global references unknown set %q", name)
		}
		for _, phrase := range set.Phrases {
			phrase = strings.TrimSpace(phrase)
			if phrase == "" {
				continue
			}
			existing, seen := selected[phrase]
			if !seen {
				selected[phrase] = candidate{boost: set.Boost, from: name}
				continue
			}
			if set.Boost > existing.boost {
				warnings = append(warnings, Warning{Message: fmt.Sprintf("phrase %q present in %q and %q; using higher boost %.2f", phrase, existing.from, name, set.Boost)})
				selected[phrase] = candidate{boost: set.Boost, from: name}
			}
		}
	}

	if len(selected) > cfg.Vocab.MaxPhrases {
		return nil, nil, fmt.Errorf("vocabulary phrase count %d exceeds vocab.max_phrases=%d", len(selected), cfg.Vocab.MaxPhrases)
	}

	phrases := make([]SpeechPhrase, 0, len(selected))
	for phrase, c := range selected {
		phrases = append(phrases, SpeechPhrase{Phrase: phrase, Boost: float32(c.boost)})
	}
	sort.Slice(phrases, func(i, j int) bool {
		return phrases[i].Phrase < phrases[j].Phrase
	})
	return phrases, warnings, nil
}
