package cmd

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	callParams []string
	callKey    string
	callSecret string
	callPath   string
)

var callCmd = &cobra.Command{
	Use:   "call <method>",
	Short: "Call an API method and print its results",
	Long: `Calls a Flickr API method, e.g. flickr.photos.search, and prints the JSON
response. Results are served from the cache when a fresh entry exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCall(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(callCmd)

	callCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "Method parameter as key=value (repeatable)")
	callCmd.Flags().StringVar(&callKey, "key", "", "API key (overrides config.api_key)")
	callCmd.Flags().StringVar(&callSecret, "secret", "", "API secret (overrides config.api_secret)")
	callCmd.Flags().StringVar(&callPath, "path", "", "Print only the value at this result path, e.g. photos.photo.0.id")
}

func runCall(cmd *cobra.Command, method string) error {
	params, err := parseParams(callParams)
	if err != nil {
		return err
	}

	client, err := newClient(callKey, callSecret)
	if err != nil {
		return err
	}

	results, err := client.GetResultsOf(cmd.Context(), method, params)
	if err != nil {
		return fmt.Errorf("call failed: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"method": method,
		"cached": results.Cached(),
	}).Info("Call completed")

	out := cmd.OutOrStdout()
	if callPath != "" {
		v := results.Get(callPath)
		if !v.Exists() {
			return fmt.Errorf("path %q not found in results", callPath)
		}
		fmt.Fprintln(out, v.String())
		return nil
	}

	fmt.Fprintln(out, string(results.Raw()))
	return nil
}

// parseParams turns key=value pairs into method parameters.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", pair)
		}
		params[k] = v
	}
	return params, nil
}
