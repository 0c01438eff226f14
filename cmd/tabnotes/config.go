package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tabnotes/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a project config scaffold to ./.tabnotes/config.json",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		path, err := config.InitProjectConfigScaffold("")
		if err != nil {
			fatal("Failed to write config", err)
		}
		fmt.Println("Config:", path)
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
