// Package template renders the prompts sent to inference engines.
package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/piyushigoyal/claimtriage/internal/models"
)

var printer = message.NewPrinter(language.English)

// Context holds all variables available for template resolution.
type Context struct {
	ClaimID      string
	PolicyID     string
	ClaimType    string
	Amount       float64
	IncidentDate string
	ReportDate   string
	DaysToReport int
	Location     string
	ClaimantAge  int
	PriorClaims  int
	TenureYears  float64
	Narrative    string

	// Severity band edges, for the guidance section
	LowBand    float64
	MediumBand float64
	HighBand   float64

	// Extra caller-defined variables
	Vars map[string]string
}

// ClaimContext fills a Context from a claim and the configured bands.
func ClaimContext(c models.Claim, lowBand, mediumBand, highBand float64) *Context {
	ctx := &Context{
		ClaimID:      c.ID,
		PolicyID:     c.PolicyID,
		ClaimType:    string(c.Type),
		Amount:       c.Amount,
		DaysToReport: c.IncidentToReportDays(),
		Location:     c.Location,
		ClaimantAge:  c.ClaimantAge,
		PriorClaims:  c.PriorClaims,
		TenureYears:  c.PolicyTenureYears,
		Narrative:    c.Narrative,
		LowBand:      lowBand,
		MediumBand:   mediumBand,
		HighBand:     highBand,
	}
	if !c.IncidentDate.IsZero() {
		ctx.IncidentDate = c.IncidentDate.Format(models.DateLayout)
	}
	if !c.ReportDate.IsZero() {
		ctx.ReportDate = c.ReportDate.Format(models.DateLayout)
	}
	return ctx
}

var funcs = template.FuncMap{
	// money formats 12345.5 as $12,345.50
	"money": func(v float64) string { return printer.Sprintf("$%.2f", v) },
	// whole formats 5000 as $5,000
	"whole": func(v float64) string { return printer.Sprintf("$%d", int64(v)) },
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.ClaimID}}, {{money .Amount}}, {{.Vars.myvar}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	// Fast path: no template delimiters means no work to do.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}
