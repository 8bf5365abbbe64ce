package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

func newPageCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Manage region pages",
	}

	cmd.AddCommand(newPageSelectCmd(opts), newPageListCmd(opts))
	return cmd
}

func newPageSelectCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "select NAME",
		Short: "Make a page current, creating it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				return s.Do(ctx, func(sess *annotation.Session) error {
					p, err := sess.SelectPage(args[0])
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", p.Name, p.ColorHex())
					return nil
				})
			})
		},
	}
}

func newPageListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pages with their regions; the current page is starred",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				return s.View(ctx, func(sess *annotation.Session) {
					for _, p := range sess.Pages() {
						marker := " "
						if p.Name == sess.DefaultName() {
							marker = "*"
						}
						fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s %v\n", marker, p.Name, p.ColorHex(), p.RegionNames())
					}
				})
			})
		},
	}
}
