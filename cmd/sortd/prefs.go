package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sortd-ai/sortd/pkg/config"
	"github.com/sortd-ai/sortd/pkg/prefs"
	"github.com/sortd-ai/sortd/pkg/presenter"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect or reset learned organization preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the learned preferences as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.GetConfigFromViper()
		if err != nil {
			presenter.Error(err, "invalid configuration")
			os.Exit(1)
		}
		store := prefs.Load(cmd.Context(), cfg.PrefsPath)
		raw, err := json.MarshalIndent(store.Snapshot(), "", "  ")
		if err != nil {
			presenter.Error(err, "failed to render preferences")
			os.Exit(1)
		}
		fmt.Println(string(raw))
	},
}

var prefsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget everything learned from past runs",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.GetConfigFromViper()
		if err != nil {
			presenter.Error(err, "invalid configuration")
			os.Exit(1)
		}
		store := prefs.Load(cmd.Context(), cfg.PrefsPath)
		if err := store.Reset(); err != nil {
			presenter.Error(err, "failed to reset preferences")
			os.Exit(1)
		}
		presenter.Success("Preferences reset.")
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsResetCmd)
}
