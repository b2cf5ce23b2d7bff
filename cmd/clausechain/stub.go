package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/clausechain/clausechain/internal/stub"
)

const defaultStubSecret = "clausechain-dev-secret"

func newStubCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run the development backend",
		Long:  "Serves the backend wire contract (login, query, transcribe, upload, files) with canned data so the client can run without production services.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStub(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8085", "listen address")
	return cmd
}

func runStub(addr string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	secret := os.Getenv("CLAUSECHAIN_STUB_SECRET")
	if secret == "" {
		secret = defaultStubSecret
	}

	server, err := stub.NewServer([]byte(secret), logger)
	if err != nil {
		return err
	}
	return server.Start(addr)
}
