package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adverant/nexus/region-annotator/internal/store"
)

func newRecordCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect and edit per-image records",
	}

	cmd.AddCommand(
		newRecordShowCmd(opts),
		newRecordSetCmd(opts),
		newRecordUnsetCmd(opts),
		newRecordWriteCmd(opts),
		newRecordDeleteCmd(opts),
	)
	return cmd
}

// withConn opens the app for commands that only need the store
func withConn(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) error {
	a, err := openApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printRecord(cmd *cobra.Command, rec store.Record) {
	fields := make([]string, 0, len(rec))
	for f := range rec {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", f, rec[f])
	}
}

func newRecordShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show KEY",
		Short: "Print a record's fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, opts, func(a *app) error {
				rec, err := a.conn.LoadRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printRecord(cmd, rec)
				return nil
			})
		},
	}
}

func newRecordSetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY FIELD VALUE",
		Short: "Set one field of a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, opts, func(a *app) error {
				rec, err := a.conn.LoadRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rec.Set(args[1], args[2])
				return a.conn.WriteRecord(cmd.Context(), rec)
			})
		},
	}
}

func newRecordUnsetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset KEY FIELD",
		Short: "Remove one field from a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, opts, func(a *app) error {
				rec, err := a.conn.LoadRecord(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !rec.Remove(args[1]) {
					a.logger.Info("Field not present", "key", args[0], "field", args[1])
					return nil
				}
				return a.conn.WriteRecord(cmd.Context(), rec)
			})
		},
	}
}

func newRecordWriteCmd(opts *rootOptions) *cobra.Command {
	var (
		key string
		ttl int
	)

	cmd := &cobra.Command{
		Use:   "write FIELD=VALUE...",
		Short: "Write a record from field assignments",
		Long: `Writes a record made of the given fields. Without --key a new record key is
generated and printed. Fields of an existing record that are not listed are removed.`,
		Example: `  # Create a record that expires after an hour
  annotator record write --ttl 3600 title=scan page=12`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := store.NewRecord()
			if key != "" {
				rec[store.MetaDBKey] = key
			}
			if ttl != 0 {
				rec[store.MetaDBTTL] = strconv.Itoa(ttl)
			}
			for _, arg := range args {
				field, value, ok := strings.Cut(arg, "=")
				if !ok || field == "" {
					return fmt.Errorf("expected FIELD=VALUE, got %q", arg)
				}
				rec.Set(field, value)
			}

			return withConn(cmd, opts, func(a *app) error {
				if err := a.conn.WriteRecord(cmd.Context(), rec); err != nil {
					return err
				}
				k, _ := rec.Key()
				fmt.Fprintln(cmd.OutOrStdout(), k)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Record key; generated when empty")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "Expiration in seconds; 0 or -1 for none")
	return cmd
}

func newRecordDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConn(cmd, opts, func(a *app) error {
				return a.conn.DeleteRecord(cmd.Context(), store.Record{store.MetaDBKey: args[0]})
			})
		},
	}
}
