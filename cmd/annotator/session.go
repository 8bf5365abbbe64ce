package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

func newSessionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect the shared session",
	}

	cmd.AddCommand(newSessionShowCmd(opts), newSessionScriptsCmd(opts))
	return cmd
}

func newSessionShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the session document",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				var (
					doc string
					err error
				)
				if viewErr := s.View(ctx, func(sess *annotation.Session) {
					doc, err = sess.XML()
				}); viewErr != nil {
					return viewErr
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), doc)
				return nil
			})
		},
	}
}

func newSessionScriptsCmd(opts *rootOptions) *cobra.Command {
	var (
		dispatch bool
		onAll    bool
	)

	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Print the engine scripts for the session",
		Example: `  # Print the scripts
  annotator session scripts

  # Enqueue them for the annotated record
  annotator session scripts --run --key rec:42

  # Enqueue them once per record in the sources list
  annotator session scripts --run-on-all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				bundle, err := s.Scripts(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), bundle.Text())

				switch {
				case onAll:
					d, release := a.dispatcher()
					defer release()
					n, err := d.RunOnAll(ctx, a.conn, a.cfg.SourcesNamespace, bundle.Text())
					if err != nil {
						return err
					}
					a.logger.Info("Scripts enqueued", "count", n)
				case dispatch:
					d, release := a.dispatcher()
					defer release()
					return d.Run(ctx, bundle.Text(), s.Env(ctx))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dispatch, "run", false, "Enqueue the scripts for --key")
	cmd.Flags().BoolVar(&onAll, "run-on-all", false, "Enqueue the scripts for every record in the sources list")
	cmd.MarkFlagsMutuallyExclusive("run", "run-on-all")
	return cmd
}
