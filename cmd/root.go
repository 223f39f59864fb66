package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time
var (
	Version   = "dev"
	BuildTime = ""
	GitCommit = ""
)

var rootCmd = &cobra.Command{
	Use:     "chatter",
	Short:   "Chatter - realtime chat server",
	Long:    `A single-binary chat backend with SQLite, providing rooms, presence and websocket messaging.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("chatter version {{.Version}}\n")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
