package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clausechain",
		Short: "ClauseChain — contract intelligence client",
		Long:  "ClauseChain queries a contract corpus by text or voice and manages document uploads.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newUploadCmd())
	cmd.AddCommand(newFilesCmd())
	cmd.AddCommand(newStubCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("clausechain %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()
	os.Exit(execute(newRootCmd()))
}
