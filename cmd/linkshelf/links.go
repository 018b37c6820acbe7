package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkshelf/internal/apperror"
	"github.com/MrSnakeDoc/linkshelf/internal/controller"
)

var (
	linksTags []string
	linksSort string
	linksPage int
	linksJSON bool
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List saved links",
	Long: `Links reloads the collection and prints one page of it. When the remote
service is unreachable the cached links are shown and marked stale.

Example:
  linkshelf links --tag go --tag web
  linkshelf links --sort oldest --page 2 --json`,
	RunE: runLinks,
}

func init() {
	linksCmd.Flags().StringSliceVar(&linksTags, "tag", nil, "only links carrying every given tag")
	linksCmd.Flags().StringVar(&linksSort, "sort", "newest", "newest or oldest")
	linksCmd.Flags().IntVar(&linksPage, "page", 1, "page to show")
	linksCmd.Flags().BoolVar(&linksJSON, "json", false, "print the view as JSON")
}

func runLinks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ctrl := application.Controller

	cmds := []controller.Command{
		{Type: controller.CmdReload},
		{Type: controller.CmdSetFilter, Tags: linksTags},
		{Type: controller.CmdSetSort, Sort: linksSort},
		{Type: controller.CmdChangePage, Page: linksPage},
	}

	var st controller.State
	for _, c := range cmds {
		var err error
		st, err = ctrl.Dispatch(ctx, c)
		if err == nil {
			continue
		}
		// A failed reload still leaves the cached links to show.
		if c.Type == controller.CmdReload && !errors.Is(err, apperror.ErrValidation) {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  %s, showing cached links\n", apperror.Message(err))
			continue
		}
		return err
	}

	out := cmd.OutOrStdout()
	if linksJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tTITLE\tTAGS\tURL")
	for _, l := range st.Links {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", l.ID, l.CreatedAt.Format("2006-01-02"), l.Title, strings.Join(l.Tags, ","), l.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(out, "page %d/%d, %d links", st.Page, st.TotalPages, st.Total)
	if st.Stale {
		fmt.Fprint(out, " (stale)")
	}
	fmt.Fprintln(out)
	return nil
}
