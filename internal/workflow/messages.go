package workflow

import (
	"context"
	"errors"
	"strings"

	"github.com/rbright/segnala/internal/capture"
	"github.com/rbright/segnala/internal/extract"
	"github.com/rbright/segnala/internal/submit"
)

// ErrCapture marks failures raised by the speech capture.
var ErrCapture = errors.New("capture failed")

// Message converts any workflow failure into the single line shown to the
// user.
func Message(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, capture.ErrUnsupported):
		return "Il riconoscimento vocale non è disponibile su questo sistema."
	case errors.Is(err, ErrCapture):
		return "Errore nel riconoscimento vocale. Riprova la registrazione."
	case errors.Is(err, submit.ErrNoEndpoint):
		return "Indirizzo di invio non configurato. Imposta webhook.url nel file di configurazione."
	}

	var submitErr *submit.Error
	if errors.As(err, &submitErr) {
		return "Invio della segnalazione non riuscito. Verifica la connessione e riprova."
	}

	switch extract.KindOf(err) {
	case extract.KindConfig:
		return "Chiave API non trovata. Inseriscila con `segnala key`."
	case extract.KindAuth:
		return "La chiave API non è valida o è scaduta. Inseriscine una nuova."
	case extract.KindQuota:
		return "La chiave funziona ma il piano gratuito è esaurito o il billing non è attivo su Google Cloud."
	case extract.KindPermission:
		return "La chiave non ha accesso al modello richiesto."
	case extract.KindParse:
		return "L'IA ha risposto ma la segnalazione non è leggibile. Riprova."
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "Errore IA: tempo scaduto. Verifica la tua connessione."
	}

	detail := strings.TrimSpace(err.Error())
	if detail == "" {
		detail = "Verifica la tua connessione o la validità della chiave"
	}
	return "Errore IA: " + detail
}
