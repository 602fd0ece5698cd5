package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "realms-auth",
	Short: "Multi-tenant authentication service",
	Long:  `An authentication service issuing realm-scoped sessions, with email confirmation and password recovery workflows.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
