package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clausechain/clausechain/adapters/audio"
	"github.com/clausechain/clausechain/domain/repositories"
)

func newAskCmd() *cobra.Command {
	var audioPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask the corpus a single question",
		Long:  "Submits one question and prints the answer. With --audio, the question is read from an audio file and transcribed first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args, audioPath)
		},
	}

	cmd.Flags().StringVar(&audioPath, "audio", "", "path to an audio file holding the spoken question")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string, audioPath string) error {
	ctx := cmd.Context()

	var device repositories.AudioDevice
	if audioPath != "" {
		device = audio.NewFileDevice(audioPath)
	} else if len(args) == 0 {
		return errors.New("provide a question or --audio")
	}

	a, err := buildApp(ctx, device)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out := cmd.OutOrStdout()

	if audioPath != "" {
		if err := a.pipeline.StartCapture(ctx); err != nil {
			return err
		}
		ex, err := a.pipeline.StopAndSubmit(ctx)
		if err != nil {
			return err
		}
		for _, logged := range a.session.Exchanges() {
			if logged.ID == ex.ID {
				continue
			}
			printExchange(out, &logged)
		}
		printExchange(out, ex)
		return nil
	}

	ex, err := a.session.Submit(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	printExchange(out, ex)
	return nil
}
