package cmd

import (
	"fmt"
	"os"

	"example.com/backstage/services/flickering/config"
	"example.com/backstage/services/flickering/internal/core"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	cfg       *config.Config
	logger    *logrus.Logger
	container *core.Container
)

var rootCmd = &cobra.Command{
	Use:           "flickering",
	Short:         "A command line client for the Flickr REST API.",
	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load Config
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// Initialize Logger
		logger = newLogger(cfg.Log)
		cfg.Logger = logger

		container = core.NewContainer(*cfg, core.WithContainerLogger(logger))
		return nil
	},

	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return nil
		}
		return container.Close()
	},
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "flickering.yaml", "config file (default is ./flickering.yaml)")
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	return l
}

func newClient(key, secret string) (*core.Client, error) {
	var opts []core.ClientOption
	if key != "" {
		opts = append(opts, core.WithKey(key))
	}
	if secret != "" {
		opts = append(opts, core.WithSecret(secret))
	}
	return core.NewClient(container, opts...)
}
