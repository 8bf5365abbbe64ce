package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

func newRuleCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage page rules",
	}

	cmd.AddCommand(newRuleSetCmd(opts))
	return cmd
}

func newRuleSetCmd(opts *rootOptions) *cobra.Command {
	var (
		page        string
		destination string
		result      string
		enabled     bool
	)

	cmd := &cobra.Command{
		Use:       "set TYPE",
		Short:     "Set the destination, result and state of a rule type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: annotation.RuleTypes,
		Example: `  # Route integer OCR results to the page field
  annotator rule set int --destination page --result '$1' --enabled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				return s.Do(ctx, func(sess *annotation.Session) error {
					p, err := sess.PageOrDefault(page)
					if err != nil {
						return err
					}
					if !p.Rules.Set(args[0], destination, result, enabled) {
						return fmt.Errorf("page %s has no %q rule, expected one of %v", p.Name, args[0], annotation.RuleTypes)
					}
					fmt.Fprintln(cmd.OutOrStdout(), p.Rules.Script(false, true))
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page holding the rule; defaults to the current page")
	cmd.Flags().StringVar(&destination, "destination", "", "Destination field")
	cmd.Flags().StringVar(&result, "result", "", "Result expression")
	cmd.Flags().BoolVar(&enabled, "enabled", false, "Include the rule in generated scripts")
	return cmd
}
