package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"epr/common"
	"epr/state"
	"epr/storage"
)

// applySettingsFlags overrides settings with values given on command line
// and reports whether anything changed.
func applySettingsFlags(cmd *cli.Command, s storage.Settings) (storage.Settings, bool, error) {
	changed := false
	if cmd.IsSet("font-size") {
		s.FontSize, changed = int(cmd.Int("font-size")), true
	}
	if cmd.IsSet("theme") {
		theme, err := common.ParseTheme(cmd.String("theme"))
		if err != nil {
			return s, false, err
		}
		s.Theme, changed = theme, true
	}
	if cmd.IsSet("line-height") {
		s.LineHeight, changed = cmd.Float("line-height"), true
	}
	if cmd.IsSet("font-family") {
		s.FontFamily, changed = cmd.String("font-family"), true
	}
	if cmd.IsSet("align") {
		align, err := common.ParseTextAlign(cmd.String("align"))
		if err != nil {
			return s, false, err
		}
		s.Align, changed = align, true
	}
	return s, changed, nil
}

func writeSettings(w io.Writer, s storage.Settings) error {
	_, err := fmt.Fprintf(w, "Font size:   %d\nTheme:       %s\nLine height: %.1f\nFont family: %s\nAlign:       %s\n",
		s.FontSize, s.Theme, s.LineHeight, s.FontFamily, s.Align)
	return err
}

func runSettings(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("settings")

	store, err := env.OpenStore()
	if err != nil {
		return fmt.Errorf("unable to open reader database: %w", err)
	}

	current := store.GetSettings()
	if cmd.Bool("reset") {
		current = store.Defaults()
	}
	updated, changed, err := applySettingsFlags(cmd, current)
	if err != nil {
		return err
	}
	if changed || cmd.Bool("reset") {
		if err := store.SaveSettings(updated); err != nil {
			return err
		}
		log.Debug("Settings saved", zap.Any("settings", updated))
	}
	return writeSettings(os.Stdout, updated)
}
