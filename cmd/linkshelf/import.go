package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/linkshelf/internal/sources/homepage"
)

var importKind string

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a Homepage bookmarks.yaml or services.yaml",
	Long: `Import creates a link for every entry of a Homepage configuration file
whose URL is not saved yet. The group an entry sits in becomes its tag.

Example:
  linkshelf import bookmarks.yaml
  linkshelf import --kind services services.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", string(homepage.Bookmarks), "file kind: bookmarks or services")
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, err := homepage.ParseKind(importKind)
	if err != nil {
		return err
	}

	res, err := application.Import(cmd.Context(), args[0], kind)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created %d, skipped %d, failed %d\n", res.Created, res.Skipped, len(res.Failed))
	for _, f := range res.Failed {
		fmt.Fprintf(out, "  %s: %s\n", f.URL, f.Message)
	}
	if res.LimitReached {
		fmt.Fprintln(out, "link limit reached, upgrade your plan to import the rest")
	}
	return nil
}
