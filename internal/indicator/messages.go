package indicator

import (
	"strings"

	"github.com/rbright/segnala/internal/config"
)

type texts struct {
	recording  string
	processing string
	success    string
	errorText  string
}

var defaultTexts = texts{
	recording:  "Registrazione in corso...",
	processing: "Elaborazione della segnalazione...",
	success:    "Segnalazione inviata",
	errorText:  "Errore",
}

// resolveTexts overlays configured texts on the Italian defaults.
func resolveTexts(cfg config.IndicatorConfig) texts {
	out := defaultTexts
	pick(&out.recording, cfg.TextRecording)
	pick(&out.processing, cfg.TextProcessing)
	pick(&out.success, cfg.TextSuccess)
	pick(&out.errorText, cfg.TextError)
	return out
}

func pick(dst *string, configured string) {
	if v := strings.TrimSpace(configured); v != "" {
		*dst = v
	}
}
