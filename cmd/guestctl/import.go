package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/marigold-events/wedding-rsvp-api/internal/adapters/httpapi"
)

func newImportCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import guests from a CSV file",
		Long: `Upload a CSV guest list. The header row names the columns; rows that
match an existing guest by email update that guest.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, o, args[0])
		},
	}
}

func runImport(cmd *cobra.Command, o *globalOpts, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var res httpapi.ImportResponse
	err = o.client().do(ctx, request{
		method:      http.MethodPost,
		path:        "/admin/guests/import",
		contentType: "text/csv",
		body:        f,
	}, &res)
	if err != nil {
		return err
	}

	printf(cmd, "created %d, updated %d, skipped %d\n", res.Created, res.Updated, res.Skipped)
	for _, e := range res.Errors {
		printf(cmd, "  row %d: %s\n", e.Row, e.Message)
	}
	return nil
}
