package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fatih/color"

	"github.com/ppiankov/hostpin/internal/identity"
	"github.com/ppiankov/hostpin/internal/model"
	"github.com/ppiankov/hostpin/internal/run"
)

var (
	okFmt   = color.New(color.FgGreen, color.Bold).SprintFunc()
	failFmt = color.New(color.FgRed, color.Bold).SprintFunc()
	warnFmt = color.New(color.FgYellow).SprintFunc()
	dimFmt  = color.New(color.Faint).SprintFunc()
)

// decisionView is the JSON shape of a run result.
type decisionView struct {
	Status      model.Status `json:"status"`
	Reason      model.Reason `json:"reason"`
	Field       string       `json:"field,omitempty"`
	Fingerprint string       `json:"fingerprint"`
	Timestamp   time.Time    `json:"timestamp"`
	Reference   string       `json:"reference"`
	Degraded    []string     `json:"degraded,omitempty"`
	Provisioned []string     `json:"provisioned,omitempty"`
	Warnings    []string     `json:"warnings,omitempty"`
}

func newDecisionView(a *app, out run.Outcome) decisionView {
	v := decisionView{
		Status:      out.Decision.Status,
		Reason:      out.Decision.Reason,
		Field:       out.Decision.Field,
		Fingerprint: out.Decision.Fingerprint,
		Timestamp:   out.Decision.Timestamp,
		Reference:   a.store().ActivePath(),
		Degraded:    degradedFields(out.Collected),
		Provisioned: out.Provisioned,
	}
	for _, err := range out.Failures {
		v.Warnings = append(v.Warnings, err.Error())
	}
	return v
}

// reportOutcome prints the decision and returns the CLI error for an
// UNAUTHORIZED outcome.
func reportOutcome(w io.Writer, a *app, out run.Outcome) error {
	v := newDecisionView(a, out)
	if jsonOutput {
		if err := writeJSON(w, v); err != nil {
			return err
		}
		return decisionError(a, out)
	}

	status := okFmt(string(v.Status))
	if !out.Decision.Authorized() {
		status = failFmt(string(v.Status))
	}
	fmt.Fprintf(w, "Status:      %s\n", status)
	if v.Field != "" {
		fmt.Fprintf(w, "Reason:      %s (%s)\n", v.Reason, v.Field)
	} else {
		fmt.Fprintf(w, "Reason:      %s\n", v.Reason)
	}
	fmt.Fprintf(w, "System Hash: %s\n", v.Fingerprint)
	fmt.Fprintf(w, "Reference:   %s\n", dimFmt(v.Reference))
	if len(v.Provisioned) > 0 {
		fmt.Fprintf(w, "Provisioned: %v\n", v.Provisioned)
	}
	if len(v.Degraded) > 0 {
		fmt.Fprintf(w, "Degraded:    %s\n", warnFmt(fmt.Sprint(v.Degraded)))
	}
	for _, warning := range v.Warnings {
		fmt.Fprintf(w, "%s %s\n", warnFmt("warning:"), warning)
	}
	return decisionError(a, out)
}

func degradedFields(res identity.Result) []string {
	var fields []string
	for _, f := range res.Failures {
		fields = append(fields, f.Field)
	}
	sort.Strings(fields)
	return fields
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
