package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the API results cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached API result",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := container.Cache()
		if err != nil {
			return err
		}
		if err := store.Flush(cmd.Context()); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		logger.Info("Cache cleared")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
