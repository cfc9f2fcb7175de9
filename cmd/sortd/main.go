package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Environment variables
	viper.SetEnvPrefix("SORTD")
	viper.AutomaticEnv()

	// Config file support
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.sortd")
	viper.AddConfigPath(".")

	// Load config file if it exists (ignore errors if it doesn't)
	_ = viper.ReadInConfig()
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sortd",
		Short: "Content-aware file organizer",
		Long: `sortd scans messy directories, analyzes what the files actually are,
and proposes organization strategies you can preview and apply.`,
		// Default behavior is to show help if no arguments are provided
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 0 {
				// Bare directory arguments forward to the organize command
				organizeCmd.Run(cmd, args)
			} else {
				cmd.Help()
				os.Exit(1)
			}
		},
	}

	// Global flags
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (text, json)")
	cmd.PersistentFlags().String("model", "", "LLM model to use (overrides config)")
	cmd.PersistentFlags().String("base-url", "", "OpenAI-compatible endpoint (overrides config)")

	// The organize flags live on the root too so the bare-directory
	// forwarding above sees them.
	addOrganizeFlags(cmd.Flags())

	return cmd
}

func main() {
	// Bind global flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	// Subcommands
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
