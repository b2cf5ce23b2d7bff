package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files",
		Short: "List documents recorded in the file catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFiles(cmd)
		},
	}
}

func runFiles(cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	records, err := a.catalog.List(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "no files recorded")
		return nil
	}
	for _, record := range records {
		fmt.Fprintf(out, "%s  %10d bytes  %s\n",
			record.UploadedAt.Format("2006-01-02 15:04"), record.Size, record.Name)
	}
	return nil
}
