package analytics

import (
	"context"
	"fmt"
	"strings"

	"famfin-server/src/logger"
	"famfin-server/src/models"
)

// Completer turns a plain-text prompt into a plain-text completion.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Summarizer asks a Completer for a short narrative of a report. It is an
// enhancement: every failure degrades to an empty summary.
type Summarizer struct {
	completer Completer
}

func NewSummarizer(completer Completer) *Summarizer {
	return &Summarizer{completer: completer}
}

func (s *Summarizer) Summarize(ctx context.Context, report *models.InsightReport, categoryNames map[string]string) string {
	if s == nil || s.completer == nil || report == nil {
		return ""
	}
	out, err := s.completer.Complete(ctx, BuildPrompt(report, categoryNames))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("family_id", report.FamilyID.String()).Msg("AI summary unavailable")
		return ""
	}
	return strings.TrimSpace(out)
}

func categoryLabel(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}

// BuildPrompt renders the numbers of a report as the instruction for the model.
func BuildPrompt(report *models.InsightReport, categoryNames map[string]string) string {
	var b strings.Builder
	b.WriteString("You are a helpful family finance assistant.\n")
	fmt.Fprintf(&b, "Summarize the household's spending over the last %d months in at most four sentences. ", report.WindowMonths)
	b.WriteString("Mention the largest categories, any unusual transactions and where spending is heading. Plain text only.\n\n")

	b.WriteString("Average monthly spend and recommended budget per category:\n")
	for _, r := range report.Recommendations {
		fmt.Fprintf(&b, "- %s: average %s, recommended %s\n",
			categoryLabel(categoryNames, r.CategoryID.String()), r.AverageMonthly.StringFixed(2), r.Recommended.StringFixed(2))
	}

	if len(report.Anomalies) > 0 {
		b.WriteString("\nUnusual transactions:\n")
		for _, a := range report.Anomalies {
			fmt.Fprintf(&b, "- %s %q in %s: %s (typical up to %s)\n",
				a.Date.Format("2006-01-02"), a.Description, categoryLabel(categoryNames, a.CategoryID.String()),
				a.Amount.StringFixed(2), a.Threshold.StringFixed(2))
		}
	}

	if len(report.Forecasts) > 0 {
		b.WriteString("\nNext month forecast:\n")
		for _, f := range report.Forecasts {
			fmt.Fprintf(&b, "- %s: %s\n", categoryLabel(categoryNames, f.CategoryID.String()), f.Projected.StringFixed(2))
		}
	}
	return b.String()
}
