package cmd

import (
	"fmt"
	"os"

	"medprofile/config"
	"medprofile/logger"
	"medprofile/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "medprofile",
	Short: "medprofile is a user account and medical profile service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return server.Start(loadConfig())
	},
}

// loadConfig reads the environment and initializes the global logger from it.
func loadConfig() *config.Config {
	cfg := config.Load()
	logger.InitLogger(logger.Config{
		Level:       cfg.LogLevel,
		OutputPath:  cfg.LogFile,
		MaxSize:     100,
		MaxBackups:  5,
		MaxAge:      30,
		Compress:    true,
		Development: cfg.IsDevelopment(),
	})
	return cfg
}

// Execute executes the root command.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
