package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/testscope/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted settings",
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting, with the token masked",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	s, _, err := loadSettings()
	if err != nil {
		return outputError("settings show", err)
	}
	entries, err := settingEntries(s.Redacted())
	if err != nil {
		return outputError("settings show", err)
	}
	n := len(entries)
	return outputResult(CLIResult{
		Command:    "settings show",
		Results:    entries,
		TotalCount: &n,
	})
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Validate and store one setting",
	Long:  "Sets one key and writes the settings file. Out-of-range values are rejected and the file is left unchanged.",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s, path, err := loadSettings()
	if err != nil {
		return outputError("settings set", err)
	}
	if err := s.Set(args[0], args[1]); err != nil {
		return outputError("settings set", err)
	}
	if err := settings.Save(path, s); err != nil {
		return outputError("settings set", err)
	}
	logger.Info().Str("key", args[0]).Str("file", path).Msg("setting saved")

	value, _ := s.Redacted().Get(args[0])
	return outputResult(CLIResult{
		Command: "settings set",
		Results: []CLISetting{{Key: args[0], Value: value}},
	})
}

func settingEntries(s *settings.Settings) ([]CLISetting, error) {
	keys := settings.Keys()
	out := make([]CLISetting, 0, len(keys))
	for _, k := range keys {
		v, err := s.Get(k)
		if err != nil {
			return nil, err
		}
		out = append(out, CLISetting{Key: k, Value: v})
	}
	return out, nil
}
