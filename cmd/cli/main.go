package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/excel"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/adapters/stats/network"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/app"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/core"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/domain/synthesis"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/config"
	"github.com/GrimCyberMed/MedResearch-AI-sub006/internal/report"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "synth-cli",
		Short: "Evidence synthesis CLI for pooled effects, bias diagnostics and network rankings",
	}

	rootCmd.AddCommand(
		newSynthesizeCmd(),
		newPoolCmd(),
		newBiasCmd(),
		newGradeCmd(),
		newNetworkCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSynthesizeCmd() *cobra.Command {
	var (
		outcomeID string
		label     string
		measure   string
		model     string
		design    string
		risk      string
		indirect  bool
		markdown  bool
	)

	cmd := &cobra.Command{
		Use:   "synthesize [study-file]",
		Short: "Pool one outcome from an Excel/CSV study extraction file",
		Long: `Run the full synthesis pipeline on a study extraction file: effect sizes,
heterogeneity, pooled estimate, publication bias diagnostics and a GRADE rating.

Example: synth-cli synthesize studies.xlsx --outcome mortality --measure OR --design rct --risk low`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynthesize(cmd.Context(), args[0], synthesis.OutcomeRequest{
				OutcomeID:  core.OutcomeID(outcomeID),
				Label:      label,
				Measure:    synthesis.Measure(measure),
				Model:      synthesis.Model(model),
				Design:     synthesis.StudyDesign(design),
				RiskOfBias: synthesis.RiskOfBias(risk),
				Indirect:   indirect,
			}, markdown)
		},
	}

	cmd.Flags().StringVar(&outcomeID, "outcome", "outcome-1", "Outcome identifier")
	cmd.Flags().StringVar(&label, "label", "", "Human-readable outcome label")
	cmd.Flags().StringVar(&measure, "measure", "OR", "Effect measure: OR|RR|RD|MD|SMD")
	cmd.Flags().StringVar(&model, "model", "auto", "Pooling model: fixed|random|auto")
	cmd.Flags().StringVar(&design, "design", "rct", "Study design: rct|observational")
	cmd.Flags().StringVar(&risk, "risk", "low", "Risk of bias: low|moderate|high|critical")
	cmd.Flags().BoolVar(&indirect, "indirect", false, "Flag indirect evidence for GRADE")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a summary-of-findings document instead of JSON")

	return cmd
}

func runSynthesize(ctx context.Context, studyFile string, req synthesis.OutcomeRequest, markdown bool) error {
	rep, err := runPipelineReq(ctx, studyFile, req)
	if err != nil {
		return err
	}
	if markdown {
		fmt.Print(report.Markdown(rep))
		return nil
	}
	return printJSON(rep)
}

// newPoolCmd, newBiasCmd and newGradeCmd are stage views over the same
// pipeline: they run the full synthesis and print one section of the report.
func newPoolCmd() *cobra.Command {
	var measure, model string

	cmd := &cobra.Command{
		Use:   "pool [study-file]",
		Short: "Print the pooled estimate and heterogeneity for one outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runPipeline(cmd.Context(), args[0], measure, model)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"pooled":        rep.Pooled,
				"heterogeneity": rep.Heterogeneity,
			})
		},
	}

	cmd.Flags().StringVar(&measure, "measure", "OR", "Effect measure: OR|RR|RD|MD|SMD")
	cmd.Flags().StringVar(&model, "model", "auto", "Pooling model: fixed|random|auto")
	return cmd
}

func newBiasCmd() *cobra.Command {
	var measure string

	cmd := &cobra.Command{
		Use:   "bias [study-file]",
		Short: "Print the publication bias diagnostics for one outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runPipeline(cmd.Context(), args[0], measure, "auto")
			if err != nil {
				return err
			}
			if rep.Bias == nil {
				return fmt.Errorf("fewer than three studies, bias diagnostics not computed")
			}
			return printJSON(rep.Bias)
		},
	}

	cmd.Flags().StringVar(&measure, "measure", "OR", "Effect measure: OR|RR|RD|MD|SMD")
	return cmd
}

func newGradeCmd() *cobra.Command {
	var measure, design, risk string

	cmd := &cobra.Command{
		Use:   "grade [study-file]",
		Short: "Print the GRADE evidence rating for one outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := runPipelineReq(cmd.Context(), args[0], synthesis.OutcomeRequest{
				OutcomeID:  core.OutcomeID("outcome-1"),
				Measure:    synthesis.Measure(measure),
				Model:      synthesis.ModelAuto,
				Design:     synthesis.StudyDesign(design),
				RiskOfBias: synthesis.RiskOfBias(risk),
			})
			if err != nil {
				return err
			}
			return printJSON(rep.Grade)
		},
	}

	cmd.Flags().StringVar(&measure, "measure", "OR", "Effect measure: OR|RR|RD|MD|SMD")
	cmd.Flags().StringVar(&design, "design", "rct", "Study design: rct|observational")
	cmd.Flags().StringVar(&risk, "risk", "low", "Risk of bias: low|moderate|high|critical")
	return cmd
}

func runPipeline(ctx context.Context, studyFile, measure, model string) (*synthesis.Report, error) {
	return runPipelineReq(ctx, studyFile, synthesis.OutcomeRequest{
		OutcomeID:  core.OutcomeID("outcome-1"),
		Measure:    synthesis.Measure(measure),
		Model:      synthesis.Model(model),
		Design:     synthesis.DesignRCT,
		RiskOfBias: synthesis.RiskLow,
	})
}

func runPipelineReq(ctx context.Context, studyFile string, req synthesis.OutcomeRequest) (*synthesis.Report, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	studies, warnings, err := excel.NewStudyReader(studyFile).ReadStudies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file: %w", err)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: row %d skipped: %s\n", w.Row, w.Reason)
	}
	req.Studies = studies

	service, err := app.NewSynthesisService(cfg.AnalysisConfig(), nil, nil)
	if err != nil {
		return nil, err
	}
	return service.Synthesize(ctx, req)
}

func newNetworkCmd() *cobra.Command {
	var (
		direction string
		seed      int64
		markdown  bool
	)

	cmd := &cobra.Command{
		Use:   "network [contrasts-file]",
		Short: "Run network meta-analysis on a JSON contrasts file",
		Long: `Analyze a treatment network: geometry, consistency checks and SUCRA/P-score
rankings. The input file holds a JSON array of contrasts, each with a treatment,
a comparator and per-study effect sizes.

Example: synth-cli network contrasts.json --direction lower_better --seed 42`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNetwork(args[0], synthesis.RankDirection(direction), seed, markdown)
		},
	}

	cmd.Flags().StringVar(&direction, "direction", "higher_better", "Rank direction: higher_better|lower_better")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for the ranking simulation")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Print a markdown summary instead of JSON")

	return cmd
}

func runNetwork(contrastsFile string, direction synthesis.RankDirection, seed int64, markdown bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(contrastsFile)
	if err != nil {
		return fmt.Errorf("failed to read contrasts file: %w", err)
	}
	var contrasts []synthesis.Contrast
	if err := json.Unmarshal(raw, &contrasts); err != nil {
		return fmt.Errorf("failed to parse contrasts file: %w", err)
	}

	analyzer := network.NewAnalyzer(cfg.AnalysisConfig())
	result, err := analyzer.Analyze(contrasts, direction, seed)
	if err != nil {
		return err
	}

	if markdown {
		fmt.Print(report.NetworkMarkdown(result))
		return nil
	}
	return printJSON(result)
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
