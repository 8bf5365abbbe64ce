package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/annotation"
	"github.com/adverant/nexus/region-annotator/internal/errors"
	"github.com/adverant/nexus/region-annotator/internal/syncer"
)

func newRegionCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "region",
		Short: "Manage regions on a page",
	}

	cmd.AddCommand(
		newRegionAddCmd(opts),
		newRegionRemoveCmd(opts),
		newRegionRenameCmd(opts),
	)
	return cmd
}

func newRegionAddCmd(opts *rootOptions) *cobra.Command {
	var (
		page               string
		name               string
		x1, y1, x2, y2     int
		scaleX, scaleY     float64
		displayW, displayH int
		sourceW, sourceH   int
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a region from two corners",
		Long: `Adds a region spanning two corner points. Corners may be given in any order.

With --display and --source sizes the corners are display pixels, the scale is derived
from the two sizes, and an unnamed region is named after the grid cell of its upper-left
corner. Otherwise the scale comes from --scale-x and --scale-y and a name is required.`,
		Example: `  # Add a region in source pixels
  annotator region add --name title --x1 10 --y1 10 --x2 200 --y2 60

  # Add a region drawn on a half-size preview
  annotator region add --x1 5 --y1 5 --x2 100 --y2 30 \
    --display-width 500 --display-height 700 --source-width 1000 --source-height 1400`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				r   annotation.Region
				err error
			)
			if displayW > 0 || displayH > 0 || sourceW > 0 || sourceH > 0 {
				r, err = annotation.RegionFromDisplay(name, x1, y1, x2, y2, displayW, displayH, sourceW, sourceH)
			} else {
				r, err = annotation.RegionFromCorners(name, x1, y1, x2, y2, scaleX, scaleY)
			}
			if err != nil {
				return err
			}

			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				if page != "" {
					if err := s.Do(ctx, func(sess *annotation.Session) error {
						_, err := sess.SelectPage(page)
						return err
					}); err != nil {
						return err
					}
				}

				bundle, err := s.AddRegion(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), bundle.Text())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page to add to (created if missing); defaults to the current page")
	cmd.Flags().StringVar(&name, "name", "", "Region name")
	cmd.Flags().IntVar(&x1, "x1", 0, "First corner x")
	cmd.Flags().IntVar(&y1, "y1", 0, "First corner y")
	cmd.Flags().IntVar(&x2, "x2", 0, "Second corner x")
	cmd.Flags().IntVar(&y2, "y2", 0, "Second corner y")
	cmd.Flags().Float64Var(&scaleX, "scale-x", 1, "Display to source scale on x")
	cmd.Flags().Float64Var(&scaleY, "scale-y", 1, "Display to source scale on y")
	cmd.Flags().IntVar(&displayW, "display-width", 0, "Width of the image as displayed")
	cmd.Flags().IntVar(&displayH, "display-height", 0, "Height of the image as displayed")
	cmd.Flags().IntVar(&sourceW, "source-width", 0, "Width of the source image")
	cmd.Flags().IntVar(&sourceH, "source-height", 0, "Height of the source image")
	cmd.MarkFlagsRequiredTogether("display-width", "display-height", "source-width", "source-height")
	cmd.MarkFlagsMutuallyExclusive("scale-x", "display-width")
	cmd.MarkFlagsMutuallyExclusive("scale-y", "display-height")

	return cmd
}

func newRegionRemoveCmd(opts *rootOptions) *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "remove NAME",
		Short: "Remove a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				return s.Do(ctx, func(sess *annotation.Session) error {
					p, err := sess.PageOrDefault(page)
					if err != nil {
						return err
					}
					if !p.RemoveRegion(args[0]) {
						return errors.NewInvalidRegionError(args[0], fmt.Sprintf("no such region on page %s", p.Name))
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page holding the region; defaults to the current page")
	return cmd
}

func newRegionRenameCmd(opts *rootOptions) *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a region",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app, s *syncer.Syncer) error {
				return s.Do(ctx, func(sess *annotation.Session) error {
					p, err := sess.PageOrDefault(page)
					if err != nil {
						return err
					}
					return p.RenameRegion(args[0], args[1])
				})
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page holding the region; defaults to the current page")
	return cmd
}
