package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/logging"
	"github.com/adverant/nexus/region-annotator/internal/store"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

// printListener reports changes as they are merged
type printListener struct {
	out            io.Writer
	singlePageOnly bool
	logger         *logging.Logger
}

func (p *printListener) SessionChanged(s *annotation.Session, report annotation.MergeReport) {
	for page, regions := range report.RemovedRegions {
		p.logger.Info("Regions removed by peer", "page", page, "regions", regions)
	}
	for _, page := range s.Pages() {
		marker := " "
		if page.Name == s.DefaultName() {
			marker = "*"
		}
		fmt.Fprintf(p.out, "%s %s %s %v\n", marker, page.Name, page.ColorHex(), page.RegionNames())
	}
	fmt.Fprintln(p.out, annotation.BuildScripts(s, p.singlePageOnly).Text())
}

func (p *printListener) ImageChanged(key string, data []byte) {
	p.logger.Info("Image changed", "key", key, "bytes", len(data))
}

func (p *printListener) RecordChanged(rec store.Record) {
	key, _ := rec.Key()
	p.logger.Info("Record changed", "key", key, "fields", len(rec.Fields()))
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Follow the shared session and print every merged change",
		Long: `Loads the latest stored session, then merges every change other clients
publish until interrupted. After each merge the pages and generated scripts are printed.`,
		Example: `  # Follow the session on the default endpoint
  annotator sync

  # Follow a specific store and watch an image record
  annotator sync --db-host 10.0.0.5 --db-port 6379 --key rec:42 --field image_binary_key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			listener := &printListener{
				out:            cmd.OutOrStdout(),
				singlePageOnly: a.cfg.RunSinglePageOnly,
				logger:         logging.NewLogger("sync"),
			}

			a.logger.Info("Following session", "key", a.conn.SessionKey(a.cfg.SessionNamespace))
			return a.withSyncer(ctx, listener, nil, func(ctx context.Context, s *syncer.Syncer) error {
				select {
				case <-ctx.Done():
				case <-s.Done():
				}
				return nil
			})
		},
	}

	return cmd
}
