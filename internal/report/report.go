// Package report renders an enumeration run for human or machine readers.
// It is an outer surface over engine.Result; the engine itself never
// formats anything.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/MattiaPrimavera/yass/internal/engine"
)

// Summary aggregates one enumeration run.
type Summary struct {
	Domain          string
	Subdomains      []string
	TotalQueries    int
	TotalDiscovered int
	FailedPlugins   int
	ChallengesBySrc map[string]int
	PluginBreakdown []engine.PluginStats
}

// Summarize processes an engine result into summary metrics.
func Summarize(result *engine.Result) Summary {
	s := Summary{
		Domain:          result.Domain,
		Subdomains:      result.Subdomains,
		TotalDiscovered: len(result.Subdomains),
		ChallengesBySrc: make(map[string]int),
		PluginBreakdown: result.Stats,
	}

	for _, st := range result.Stats {
		s.TotalQueries += st.Queries
		if st.State == "failed" {
			s.FailedPlugins++
		}
		if st.Challenge != "" {
			s.ChallengesBySrc[st.Challenge]++
		}
	}
	return s
}

// WriteJSON writes the summary to the writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// WriteText writes a human-readable summary to the writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Subdomain Enumeration Summary
-----------------------------
Domain:        {{.Domain}}
Subdomains:    {{.TotalDiscovered}}
Queries:       {{.TotalQueries}}
Failed:        {{.FailedPlugins}} plugin(s)

Plugins:
{{- range .PluginBreakdown}}
  {{.Plugin}}: {{.State}}, {{.Queries}} request(s), {{.Discovered}} subdomain(s){{if .Challenge}} [blocked: {{.Challenge}}]{{end}}
{{- else}}
  None
{{- end}}

Results:
{{- range .Subdomains}}
  {{.}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
