package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-enrollment/pkg/form"
	"github.com/goliatone/go-enrollment/pkg/orchestrator"
	"github.com/goliatone/go-enrollment/pkg/presenter"
	"github.com/goliatone/go-enrollment/pkg/prompt"
	"github.com/goliatone/go-enrollment/pkg/submission"
)

var (
	fillOnlyMissing bool
	fillAttempts    int
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Fill the enrollment form interactively",
	Long: `Asks for every field in turn, validating each answer with the form
rules, then offers to submit. A saved draft is restored first; declining to
submit keeps the answers as a draft.`,
	RunE: runFill,
}

func init() {
	fillCmd.Flags().BoolVar(&fillOnlyMissing, "only-missing", false, "skip fields that already hold a valid value")
	fillCmd.Flags().IntVar(&fillAttempts, "attempts", prompt.DefaultMaxAttempts, "attempts per field before giving up")
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	labels := map[string]string{}
	def, err := loadDefinition(cfg.Form.Definition)
	if err != nil {
		return err
	}
	for _, spec := range def.Fields {
		labels[spec.ID] = form.Field{ID: spec.ID, Label: spec.Label}.DisplayLabel()
	}
	term := presenter.NewTerminal(out, presenter.WithLabels(labels))

	enr, cleanup, err := openEnrollment(ctx, cfg, logger, orchestrator.WithPresenters(term))
	if err != nil {
		return err
	}
	defer cleanup()

	opts := []prompt.Option{
		prompt.WithDriver(prompt.NewSurveyDriver(out)),
		prompt.WithLogger(logger),
		prompt.WithMaxAttempts(fillAttempts),
	}
	if fillOnlyMissing {
		opts = append(opts, prompt.WithOnlyMissing())
	}
	filler, err := prompt.NewFiller(enr.Session, opts...)
	if err != nil {
		return err
	}

	outcome, err := filler.Fill(ctx)
	switch {
	case errors.Is(err, prompt.ErrDeclined):
		fmt.Fprintln(out, "Answers kept as a draft.")
		return nil
	case errors.Is(err, prompt.ErrAborted):
		fmt.Fprintln(out, "Aborted; answers kept as a draft.")
		return nil
	case err != nil:
		return err
	}

	switch outcome.Kind {
	case submission.OutcomeSuccess:
		fmt.Fprintf(out, "Reference: %s\n", outcome.Receipt.ID)
		return nil
	case submission.OutcomeInvalid:
		return fmt.Errorf("form is invalid: first problem in %s", outcome.FirstInvalid)
	default:
		return fmt.Errorf("submission %s", outcome.Kind)
	}
}
