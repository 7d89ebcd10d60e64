// Package cmd wires the CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "educonnect",
	Short: "Face-verified classroom attendance service",
	Long: `EduConnect records classroom attendance by matching a captured face
against a student's enrolled template, gating the match by proximity to the
teacher's location, and reconciling batches captured while offline.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
