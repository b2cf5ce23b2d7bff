package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Interactive conversation with the contract corpus",
		Long:  "Starts an interactive session. Type questions, or /record to toggle microphone capture; the recording is transcribed and submitted when stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}
}

func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "ClauseChain chat. Type a question, /record to toggle voice input, /history, or /quit.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		if a.pipeline.Recording() {
			fmt.Fprintf(out, "[recording %s] ", a.pipeline.Elapsed().Round(100*time.Millisecond))
		}
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/history":
			for _, ex := range a.session.Exchanges() {
				printExchange(out, &ex)
			}
		case line == "/record":
			if err := toggleRecording(cmd, a); err != nil {
				fmt.Fprintf(out, "error> %v\n", err)
			}
		case line == "":
			continue
		default:
			ex, err := a.session.Submit(ctx, line)
			if err != nil {
				fmt.Fprintf(out, "error> %v\n", err)
				continue
			}
			printExchange(out, ex)
		}
	}
}

func toggleRecording(cmd *cobra.Command, a *app) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if !a.pipeline.Recording() {
		if err := a.pipeline.StartCapture(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "recording started, /record again to stop and submit")
		return nil
	}

	ex, err := a.pipeline.StopAndSubmit(ctx)
	if err != nil {
		return err
	}
	printExchange(out, ex)
	return nil
}
