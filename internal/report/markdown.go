package report

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/network"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
)

// Markdown renders one outcome report as a summary-of-findings document
func Markdown(r *synthesis.Report) string {
	var b strings.Builder

	title := r.Label
	if title == "" {
		title = string(r.OutcomeID)
	}
	fmt.Fprintf(&b, "# Synthesis Report: %s\n\n", title)
	fmt.Fprintf(&b, "Analysis `%s`, computed %s (%d ms).\n\n", r.AnalysisID, r.ComputedAt.Format("2006-01-02 15:04 MST"), r.RuntimeMs)

	fmt.Fprintf(&b, "## Pooled Effect\n\n")
	fmt.Fprintf(&b, "| Measure | Model | Estimate | 95%% CI | Studies |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %s | %s | %.3f | %.3f to %.3f | %d |\n\n",
		r.Pooled.Measure, r.Pooled.Model, r.Pooled.Estimate, r.Pooled.CILower, r.Pooled.CIUpper, r.Pooled.K)
	fmt.Fprintf(&b, "Model selection: %s\n\n", r.Pooled.ModelReason)

	fmt.Fprintf(&b, "## Heterogeneity\n\n")
	het := r.Heterogeneity
	if het.InsufficientStudies {
		fmt.Fprintf(&b, "Not applicable: fewer than two studies.\n\n")
	} else {
		fmt.Fprintf(&b, "Q = %.2f (df = %d, p = %.3f), I² = %.1f%%, τ² = %.4f (%s), H² = %.2f\n\n",
			het.Q, het.DF, het.PValue, het.I2, het.Tau2, het.Tau2Method, het.H2)
		if het.Prediction != nil {
			fmt.Fprintf(&b, "95%% prediction interval: %.3f to %.3f\n\n", het.Prediction.Lower, het.Prediction.Upper)
		}
	}

	fmt.Fprintf(&b, "## Study Effects\n\n")
	fmt.Fprintf(&b, "| Study | Estimate | SE | 95%% CI | Weight |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	weights := map[string]float64{}
	for _, w := range r.Pooled.Weights {
		weights[w.StudyID.String()] = w.Weight
	}
	for _, e := range r.Effects {
		note := ""
		if e.Corrected {
			note = " †"
		}
		fmt.Fprintf(&b, "| %s%s | %.3f | %.3f | %.3f to %.3f | %.1f%% |\n",
			e.StudyID, note, e.Estimate, e.SE, e.CILower, e.CIUpper, weights[e.StudyID.String()]*100)
	}
	if anyCorrected(r.Effects) {
		fmt.Fprintf(&b, "\n† continuity correction applied\n")
	}
	b.WriteString("\n")

	writeBias(&b, r.Bias)
	writeGrade(&b, r.Grade)

	return b.String()
}

func writeBias(b *strings.Builder, bias *synthesis.BiasAssessment) {
	fmt.Fprintf(b, "## Publication Bias\n\n")
	if bias == nil {
		fmt.Fprintf(b, "Not assessed: fewer than three studies.\n\n")
		return
	}
	if bias.LowPower {
		fmt.Fprintf(b, "Caution: only %d studies, all asymmetry tests are low powered.\n\n", bias.K)
	}
	fmt.Fprintf(b, "- Observed funnel: mean %.3f, median %.3f, spread %.3f, median precision %.1f\n",
		bias.Summary.MeanEffect, bias.Summary.MedianEffect,
		bias.Summary.EffectSpread, bias.Summary.MedianPrecision)
	fmt.Fprintf(b, "- Egger's test: intercept %.3f (p = %.3f)%s\n",
		bias.Egger.Intercept, bias.Egger.PValue, flag(bias.Egger.Asymmetric, ", asymmetric"))
	fmt.Fprintf(b, "- Begg's test: τ = %.3f (p = %.3f)\n", bias.Begg.Tau, bias.Begg.PValue)
	fmt.Fprintf(b, "- Trim-and-fill: %d studies imputed on the %s side, adjusted estimate %.3f (%.3f to %.3f)\n\n",
		bias.TrimFill.Imputed, bias.TrimFill.Side,
		bias.TrimFill.AdjustedEstimate, bias.TrimFill.AdjustedCILower, bias.TrimFill.AdjustedCIUpper)
}

func writeGrade(b *strings.Builder, g synthesis.GradeAssessment) {
	fmt.Fprintf(b, "## Evidence Quality (GRADE)\n\n")
	fmt.Fprintf(b, "**%s** (started %s)\n\n", g.FinalQuality, g.StartingQuality)
	for _, adj := range g.Adjustments {
		arrow := "↓"
		if adj.Direction == synthesis.AdjustUp {
			arrow = "↑"
		}
		fmt.Fprintf(b, "- %s %s%d: %s\n", adj.Factor, arrow, adj.Levels, adj.Rationale)
	}
	fmt.Fprintf(b, "\n%s\n", g.Rationale)
}

// NetworkMarkdown renders a network analysis result
func NetworkMarkdown(res network.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Network Meta-Analysis\n\n")
	fmt.Fprintf(&b, "## Geometry\n\n")
	geo := res.Geometry
	fmt.Fprintf(&b, "%d treatments, %d direct comparisons, shape: %s", len(geo.Nodes), len(geo.Edges), geo.Shape)
	if geo.Hub != "" {
		fmt.Fprintf(&b, " (hub: %s)", geo.Hub)
	}
	b.WriteString("\n\n")
	if !geo.Connected {
		fmt.Fprintf(&b, "**Warning: the network is disconnected; rankings are unavailable.**\n\n")
		for _, n := range geo.Nodes {
			if n.Disconnected {
				fmt.Fprintf(&b, "- %s is unreachable from the main component\n", n.Treatment)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Consistency\n\n")
	con := res.Consistency
	if len(con.Loops) == 0 {
		fmt.Fprintf(&b, "No closed loops; direct and indirect evidence cannot disagree.\n\n")
	} else {
		fmt.Fprintf(&b, "Global Q = %.2f (df = %d, p = %.3f): %s\n\n",
			con.GlobalQ, con.GlobalDF, con.GlobalPValue, flag(con.Consistent, "consistent")+flag(!con.Consistent, "**inconsistent**"))
		for _, loop := range con.Loops {
			fmt.Fprintf(&b, "- loop %s: IF = %.3f (p = %.3f)\n", strings.Join(loop.Treatments, "-"), loop.Factor, loop.PValue)
		}
		b.WriteString("\n")
	}

	if res.Ranking != nil {
		fmt.Fprintf(&b, "## Treatment Rankings\n\n")
		fmt.Fprintf(&b, "Reference: %s, direction: %s, %d draws (seed %d)\n\n",
			res.Ranking.Reference, res.Ranking.Direction, res.Ranking.Draws, res.Ranking.Seed)
		fmt.Fprintf(&b, "| Treatment | SUCRA | P-score | Mean Rank |\n")
		fmt.Fprintf(&b, "|---|---|---|---|\n")
		for _, r := range res.Ranking.Rankings {
			fmt.Fprintf(&b, "| %s | %.1f | %.1f | %.2f |\n", r.Treatment, r.SUCRA, r.PScore, r.MeanRank)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ToHTML converts a rendered markdown document to an HTML fragment
func ToHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}

func anyCorrected(effects []synthesis.EffectSize) bool {
	for _, e := range effects {
		if e.Corrected {
			return true
		}
	}
	return false
}

func flag(cond bool, label string) string {
	if cond {
		return label
	}
	return ""
}
