package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "careloop-server",
	Short: "Careloop backend server",
	Long:  "Careloop backend — retrieval-augmented medical assistant with two-tier conversation memory.",
}

func Execute() error {
	return rootCmd.Execute()
}
