package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/joeycumines/planpool/internal/goap"
	"github.com/joeycumines/planpool/internal/host"
	"github.com/joeycumines/planpool/internal/scenario"
	"golang.org/x/term"
)

type jobResult struct {
	Index     int      `json:"index"`
	Agent     string   `json:"agent"`
	Goal      string   `json:"goal"`
	Item      string   `json:"item,omitempty"`
	Delivered bool     `json:"delivered"`
	Found     bool     `json:"found"`
	Plan      []string `json:"plan,omitempty"`
	Error     string   `json:"error,omitempty"`
	Ticks     int      `json:"ticks,omitempty"`
	Duration  string   `json:"duration,omitempty"`
}

func (r *jobResult) record(outcome *goap.Outcome) {
	r.Delivered = true
	r.Found = outcome.Found()
	r.Plan = outcome.Steps()
	r.Ticks = outcome.Ticks
	r.Duration = outcome.Duration.String()
	if outcome.Err != nil {
		r.Error = outcome.Err.Error()
	}
}

type runReport struct {
	Scenario    string      `json:"scenario"`
	Mode        string      `json:"mode"`
	PoolSize    int         `json:"pool_size"`
	Elapsed     string      `json:"elapsed"`
	Found       int         `json:"found"`
	Failed      int         `json:"failed"`
	Undelivered int         `json:"undelivered"`
	Results     []jobResult `json:"results"`
}

func newRunReport(sc *scenario.Scenario, poolSize int, mode host.Mode) *runReport {
	r := &runReport{
		Scenario: sc.Name,
		Mode:     mode.String(),
		PoolSize: poolSize,
		Results:  make([]jobResult, len(sc.Jobs)),
	}
	for _, job := range sc.Jobs {
		r.Results[job.Index] = jobResult{
			Index: job.Index,
			Agent: job.Agent.ID(),
			Goal:  job.Goal.Name,
		}
	}
	return r
}

func (r *runReport) finish(elapsed time.Duration) {
	r.Elapsed = elapsed.Round(time.Millisecond).String()
	for _, res := range r.Results {
		switch {
		case !res.Delivered:
			r.Undelivered++
		case res.Found:
			r.Found++
		default:
			r.Failed++
		}
	}
}

type reportStyles struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	pending lipgloss.Style
	dim     lipgloss.Style
}

func newReportStyles(color bool) reportStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return reportStyles{plain, plain, plain, plain, plain}
	}
	return reportStyles{
		title:   lipgloss.NewStyle().Bold(true),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		pending: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// colorEnabled reports whether w is a terminal that should get ANSI styling.
func colorEnabled(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func renderReport(w io.Writer, r *runReport, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := io.WriteString(w, formatText(r, newReportStyles(colorEnabled(w))))
	return err
}

func formatText(r *runReport, st reportStyles) string {
	var b strings.Builder
	b.WriteString(st.title.Render(fmt.Sprintf("%s: %d requests", r.Scenario, len(r.Results))))
	b.WriteString(st.dim.Render(fmt.Sprintf(" (pool %d, %s, %s)", r.PoolSize, r.Mode, r.Elapsed)))
	b.WriteByte('\n')

	for _, res := range r.Results {
		fmt.Fprintf(&b, "  #%d %s/%s  ", res.Index, res.Agent, res.Goal)
		switch {
		case !res.Delivered:
			b.WriteString(st.pending.Render("not delivered"))
		case !res.Found:
			b.WriteString(st.fail.Render("failed: " + res.Error))
		case len(res.Plan) == 0:
			b.WriteString(st.ok.Render("already satisfied"))
		default:
			b.WriteString(st.ok.Render(strings.Join(res.Plan, " -> ")))
		}
		if res.Delivered {
			b.WriteString(st.dim.Render(fmt.Sprintf("  [%d ticks, %s]", res.Ticks, res.Duration)))
		}
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "%s found, %s failed, %s undelivered\n",
		st.ok.Render(fmt.Sprint(r.Found)),
		st.fail.Render(fmt.Sprint(r.Failed)),
		st.pending.Render(fmt.Sprint(r.Undelivered)))
	return b.String()
}
