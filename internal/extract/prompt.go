package extract

import (
	"fmt"
	"time"

	"github.com/rbright/segnala/internal/report"
)

// DateLayout is the Italian calendar format used for report dates.
const DateLayout = "02/01/2006"

// BuildPrompt embeds transcript verbatim in the extraction instructions.
// today is rendered with DateLayout in its own location.
func BuildPrompt(transcript string, today time.Time) string {
	return fmt.Sprintf(`Analizza questa segnalazione vocale di un problema ed estrai i dati nel formato JSON richiesto.
Trascrizione: "%s"

Regole di estrazione:
- date: la data indicata nella segnalazione; se non viene detta, usa la data di oggi (%s) nel formato GG/MM/AAAA.
- odl: il numero di ordine di lavoro come stringa (codici come ODL-123 o simili). Se non presente, scrivi "%s".
- description: una sintesi chiara e concisa del problema, non una ripetizione letterale della trascrizione.
- problemType: una sola parola che indica la categoria (es. Meccanico, Elettrico, Software, Logistica, Sicurezza).
- operator: il nome dell'operatore che segnala o della persona indicata come responsabile. Se non presente, scrivi "%s".

Rispondi con un solo oggetto JSON con esattamente i campi date, odl, description, problemType e operator.`,
		transcript, today.Format(DateLayout), report.NotAvailable, report.NotAvailable)
}
