package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleReport() ProblemReport {
	return ProblemReport{
		Date:        "15/10/2026",
		ODL:         "ODL-55",
		Description: "Motore della linea 3 guasto",
		ProblemType: "Meccanico",
		Operator:    "Mario",
	}
}

func TestValidateAcceptsCompleteReport(t *testing.T) {
	require.NoError(t, sampleReport().Validate())
}

func TestValidateListsMissingFields(t *testing.T) {
	r := sampleReport()
	r.Operator = "  "
	r.Date = ""

	err := r.Validate()
	require.ErrorIs(t, err, ErrIncomplete)
	require.Contains(t, err.Error(), "date")
	require.Contains(t, err.Error(), "operator")
	require.NotContains(t, err.Error(), "odl")
}

func TestJSONUsesWireFieldNames(t *testing.T) {
	b, err := json.Marshal(sampleReport())
	require.NoError(t, err)

	var raw map[string]string
	require.NoError(t, json.Unmarshal(b, &raw))
	require.Len(t, raw, 5)
	for _, key := range []string{"date", "odl", "description", "problemType", "operator"} {
		require.Contains(t, raw, key)
	}
}

func TestHasWorkOrder(t *testing.T) {
	require.True(t, sampleReport().HasWorkOrder())

	r := sampleReport()
	r.ODL = NotAvailable
	require.False(t, r.HasWorkOrder())

	r.ODL = "n/d"
	require.False(t, r.HasWorkOrder())
}

func TestSummaryRendersPlaceholderForBlankValues(t *testing.T) {
	r := sampleReport()
	r.Operator = ""

	summary := r.Summary()
	require.Contains(t, summary, "ODL: ODL-55")
	require.Contains(t, summary, "Tipo Problema: Meccanico")
	require.Contains(t, summary, "Operatore: Non specificato")
	require.Equal(t, 5, len(r.Fields()))
}
