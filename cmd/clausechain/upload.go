package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/cobra"

	"github.com/clausechain/clausechain/domain/entities"
)

func newUploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload PDF documents to the corpus",
		Long:  "Admits the given files (PDF only, 50MB limit), uploads the pending set sequentially, and prints the outcome per file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args)
		},
	}
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out := cmd.OutOrStdout()

	candidates := make([]entities.UploadCandidate, 0, len(args))
	for _, path := range args {
		candidate, err := candidateFromPath(path)
		if err != nil {
			fmt.Fprintf(out, "skipped %s: %v\n", path, err)
			continue
		}
		candidates = append(candidates, candidate)
	}

	admitted := a.queue.Admit(candidates)
	for _, candidate := range candidates {
		found := false
		for _, item := range admitted {
			if item.Name == candidate.Name && item.Size == candidate.Size {
				found = true
				break
			}
		}
		if !found {
			fmt.Fprintf(out, "rejected %s: not an acceptable PDF (type %s, %d bytes)\n",
				candidate.Name, candidate.MediaType, candidate.Size)
		}
	}
	if len(admitted) == 0 {
		return errors.New("no files were admitted")
	}

	if err := a.queue.UploadAll(ctx); err != nil {
		return err
	}

	for _, item := range a.queue.Items() {
		if item.Err != "" {
			fmt.Fprintf(out, "%-10s %s (%s)\n", item.Status, item.Name, item.Err)
		} else {
			fmt.Fprintf(out, "%-10s %s\n", item.Status, item.Name)
		}
	}
	return nil
}

func candidateFromPath(path string) (entities.UploadCandidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return entities.UploadCandidate{}, err
	}

	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return entities.UploadCandidate{}, err
	}

	return entities.UploadCandidate{
		Name:      info.Name(),
		Size:      info.Size(),
		MediaType: detected.String(),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}
