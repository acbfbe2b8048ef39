// Package report defines the structured problem report produced by extraction.
package report

import (
	"errors"
	"fmt"
	"strings"
)

// NotAvailable is the work-order sentinel used when no ODL code was spoken.
const NotAvailable = "N/D"

// unspecified is rendered in place of empty values.
const unspecified = "Non specificato"

// ErrIncomplete indicates one or more required fields are blank.
var ErrIncomplete = errors.New("report is missing required fields")

// ProblemReport is the five-field record appended to the spreadsheet.
type ProblemReport struct {
	Date        string `json:"date"`
	ODL         string `json:"odl"`
	Description string `json:"description"`
	ProblemType string `json:"problemType"`
	Operator    string `json:"operator"`
}

// Field is one labelled report value in display order.
type Field struct {
	Label string
	Value string
}

// Validate reports which required fields are blank.
func (r ProblemReport) Validate() error {
	missing := make([]string, 0, 5)
	for _, f := range []struct {
		name  string
		value string
	}{
		{"date", r.Date},
		{"odl", r.ODL},
		{"description", r.Description},
		{"problemType", r.ProblemType},
		{"operator", r.Operator},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// HasWorkOrder reports whether a real ODL code was extracted.
func (r ProblemReport) HasWorkOrder() bool {
	odl := strings.TrimSpace(r.ODL)
	return odl != "" && !strings.EqualFold(odl, NotAvailable)
}

// Fields returns the labelled values with a placeholder for blanks.
func (r ProblemReport) Fields() []Field {
	fields := []Field{
		{Label: "Data", Value: r.Date},
		{Label: "ODL", Value: r.ODL},
		{Label: "Descrizione", Value: r.Description},
		{Label: "Tipo Problema", Value: r.ProblemType},
		{Label: "Operatore", Value: r.Operator},
	}
	for i := range fields {
		if strings.TrimSpace(fields[i].Value) == "" {
			fields[i].Value = unspecified
		}
	}
	return fields
}

// Summary renders the report as one "Label: value" line per field.
func (r ProblemReport) Summary() string {
	var b strings.Builder
	for i, f := range r.Fields() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.Label)
		b.WriteString(": ")
		b.WriteString(f.Value)
	}
	return b.String()
}
