package cmd

import (
	"fmt"

	"example.com/backstage/services/flickering/internal/core"
	"example.com/backstage/services/flickering/internal/infrastructure"
	"github.com/spf13/cobra"
)

var optionFallback string

var optionCmd = &cobra.Command{
	Use:   "option <name>",
	Short: "Print a value from the config group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := container.Config()
		if err != nil {
			return err
		}

		fallback := infrastructure.Absent()
		if cmd.Flags().Changed("fallback") {
			fallback = infrastructure.String(optionFallback)
		}

		v := repo.Get(core.ConfigGroup+"."+args[0], fallback)
		if v.IsAbsent() {
			return fmt.Errorf("option %q is not set", args[0])
		}

		fmt.Fprintln(cmd.OutOrStdout(), v.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(optionCmd)
	optionCmd.Flags().StringVar(&optionFallback, "fallback", "", "Value printed when the option is missing")
}
