package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joestump/joe-gate/internal/store"
)

func newLinksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Manage the redirect links (requires login)",
	}
	cmd.AddCommand(
		newLinksListCmd(),
		newLinksAddCmd(),
		newLinksUpdateCmd(),
		newLinksDeleteCmd(),
		newLinksClearCmd(),
		newLinksActiveCmd(),
	)
	return cmd
}

// withAdminLinks opens the backend, checks the admin session and hands the
// link store to fn.
func withAdminLinks(cmd *cobra.Command, fn func(ls *store.LinkStore) error) error {
	b, err := openBackend()
	if err != nil {
		return err
	}
	defer func() { _ = b.Close() }()

	if !b.adminFlag().IsAdmin(cmd.Context()) {
		return errors.New("not logged in: run joe-gate login first")
	}
	return fn(b.links())
}

func newLinksListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List links, newest (active) first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				records := ls.List(cmd.Context())
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(records)
				}
				return printLinks(cmd.OutOrStdout(), records)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the stored JSON records")
	return cmd
}

func newLinksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title> <url>",
		Short: "Add a link; it becomes the active redirect",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				rec, err := ls.Add(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return nil
			})
		},
	}
}

func newLinksUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <id> <title> <url>",
		Short: "Change a link's title and url",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				_, err := ls.Update(cmd.Context(), args[0], args[1], args[2])
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no link with id %q", args[0])
				}
				return err
			})
		},
	}
}

func newLinksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				return ls.Delete(cmd.Context(), args[0])
			})
		},
	}
}

func newLinksClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				return ls.Clear(cmd.Context())
			})
		},
	}
}

func newLinksActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Print the url visitors are currently sent to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdminLinks(cmd, func(ls *store.LinkStore) error {
				rec, ok := ls.MostRecent(cmd.Context())
				if !ok {
					return errors.New("no links stored; visitors get the ref or default destination")
				}
				fmt.Fprintln(cmd.OutOrStdout(), rec.URL)
				return nil
			})
		},
	}
}

func printLinks(w io.Writer, records []store.LinkRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No links.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tURL\tADDED\t")
	for i, r := range records {
		marker := ""
		if i == 0 {
			marker = "active"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Title, r.URL, r.CreatedAt.Local().Format(time.DateTime), marker)
	}
	return tw.Flush()
}
