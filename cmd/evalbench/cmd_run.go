package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/evalbench/evalbench/internal/aggregate"
	"github.com/evalbench/evalbench/internal/expander"
	"github.com/evalbench/evalbench/internal/models"
	"github.com/evalbench/evalbench/internal/scheduler"
	"github.com/evalbench/evalbench/internal/statistics"
)

func newRunCommand() *cobra.Command {
	var (
		configPath  string
		subjects    []string
		modelNames  []string
		promptTypes []string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one evaluation in-process and print the accuracy summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			components, err := buildComponents(cfg)
			if err != nil {
				return err
			}

			parsed := make([]models.PromptType, 0, len(promptTypes))
			for _, pt := range promptTypes {
				p, err := models.ParsePromptType(pt)
				if err != nil {
					return err
				}
				parsed = append(parsed, p)
			}

			task, units, err := components.expander.Expand(expander.Request{
				Subjects:    subjects,
				Models:      modelNames,
				PromptTypes: parsed,
				Count:       count,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			runCtx, cancelRun := context.WithCancel(ctx)
			defer cancelRun()

			out := cmd.OutOrStdout()

			finished := make(chan models.TaskState, 1)
			components.scheduler.OnProgress(func(event scheduler.ProgressEvent) {
				if event.TaskID != task.ID {
					return
				}
				switch event.EventType {
				case scheduler.EventUnitFinished:
					fmt.Fprintf(out, "[%d/%d] %s / %s / %s #%d: %s\n",
						event.Completed+event.Failed, event.Total,
						event.Unit.Subject, event.Unit.Model, event.Unit.PromptType, event.Unit.Sample,
						event.Outcome)
				case scheduler.EventTaskFinished:
					finished <- event.State
				}
			})

			group, groupCtx := errgroup.WithContext(runCtx)
			group.Go(func() error {
				return components.scheduler.Run(groupCtx)
			})

			if err := components.scheduler.Submit(task, units); err != nil {
				cancelRun()
				_ = group.Wait()
				return err
			}

			fmt.Fprintf(out, "started %s: %d units across %d subjects, %d models, %d prompt types\n",
				task.ID, task.TotalUnits, len(task.Subjects), len(task.Models), len(task.PromptTypes))

			var state models.TaskState
			select {
			case state = <-finished:
			case <-ctx.Done():
				cancelRun()
				_ = group.Wait()
				return ctx.Err()
			}

			// Stop the worker pool before reading final results.
			cancelRun()
			if err := group.Wait(); err != nil && err != context.Canceled {
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			components.registry.Shutdown(shutdownCtx)

			finalTask, err := components.store.GetTask(task.ID)
			if err != nil {
				return err
			}
			finalUnits, err := components.store.Units(task.ID)
			if err != nil {
				return err
			}

			summary := aggregate.Compute(finalTask, finalUnits)
			printSummary(out, summary)

			if state == models.TaskFailed {
				return &EvalFailureError{Message: fmt.Sprintf("evaluation %s failed: all %d units failed", task.ID, summary.Failed)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a config file (default: walk up for .evalbench.yaml)")
	cmd.Flags().StringSliceVar(&subjects, "subjects", nil, "Subjects to evaluate (required)")
	cmd.Flags().StringSliceVar(&modelNames, "models", nil, "Configured model names to evaluate (required)")
	cmd.Flags().StringSliceVar(&promptTypes, "prompt-types", []string{string(models.PromptZeroShot)}, "Prompt types to evaluate")
	cmd.Flags().IntVar(&count, "count", 5, "Questions sampled per subject")

	_ = cmd.MarkFlagRequired("subjects")
	_ = cmd.MarkFlagRequired("models")

	return cmd
}

func printSummary(out io.Writer, summary aggregate.Summary) {
	fmt.Fprintf(out, "\ntask %s: %s (%d completed, %d failed of %d)\n\n",
		summary.TaskID, summary.State, summary.Completed, summary.Failed, summary.Total)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SUBJECT\tMODEL\tPROMPT TYPE\tACCURACY\t95% CI\tGRADED\tFAILED")
	for _, cell := range summary.Cells {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			cell.Subject, cell.Model, cell.PromptType,
			formatAccuracy(cell.Accuracy), formatCI(cell.CI), cell.Graded, cell.Failed)
	}
	w.Flush()

	fmt.Fprintf(out, "\noverall: %s (%d/%d correct)",
		formatAccuracy(summary.OverallAccuracy), summary.OverallCorrect, summary.OverallGraded)
	if summary.OverallCI != nil {
		fmt.Fprintf(out, " %s", formatCI(summary.OverallCI))
	}
	fmt.Fprintln(out)
}

func formatAccuracy(acc *float64) string {
	if acc == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", *acc*100)
}

func formatCI(ci *statistics.ConfidenceInterval) string {
	if ci == nil {
		return "n/a"
	}
	return fmt.Sprintf("[%.1f%%, %.1f%%]", ci.Lower*100, ci.Upper*100)
}
