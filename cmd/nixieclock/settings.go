package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lbogdanov/nixieclock/internal/config"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings and the stored record",
	Long: `Print the daemon settings after defaults are applied, followed by the
configuration record in store_path. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return printSettings(cmd.OutOrStdout(), settings, store.NewOS(settings.StorePath), ui.GetTerminalWidth())
	},
}

var forceInit bool

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a settings file with every default",
	Example: `  # Write to the per-user config dir
  nixieclock init-config

  # Write somewhere else, replacing any existing file
  nixieclock init-config --config /etc/nixieclock/config.yaml --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			path = p
		}
		if _, err := os.Stat(path); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", ui.SuccessMarker, path)
		return nil
	},
}

func init() {
	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

// printSettings renders boxes width columns wide.
func printSettings(w io.Writer, s *config.Settings, st *store.Store, width int) error {
	h := ui.NewHeader("NixieClock Settings", "settings", map[string]string{
		"radio":        s.Radio.Backend + " (" + s.Radio.Interface + ")",
		"portal":       s.Portal.Listen,
		"display feed": s.Display.Listen,
		"idle timeout": s.IdleTimeout.String(),
		"resync":       s.ResyncInterval.String(),
		"access point": s.AccessPoint.SSIDPrefix + " XXXX / " + logging.MaskSecret(s.AccessPoint.PSK),
	})
	h.Width = width
	fmt.Fprintln(w, h.Render())

	var r *ui.Result
	rec, ok, err := st.Load()
	switch {
	case err != nil:
		r = ui.NewFailureResult("Record unreadable", err, nil)
		r.AddDetail("Path", st.Path())
	case !ok:
		r = ui.NewWarningResult("No configuration stored", map[string]string{"Path": st.Path()})
		r.Troubleshooting = []string{"Join the clock's access point and submit the portal form"}
	default:
		r = ui.NewSuccessResult("Configuration stored", map[string]string{
			"Path":             st.Path(),
			store.FieldSSID:    rec.SSID,
			store.FieldSSIDPSK: logging.MaskSecret(rec.SSIDPSK),
			store.FieldAPIKey:  logging.MaskSecret(rec.APIKey),
			store.FieldTZ:      rec.TZ,
		})
	}
	r.Width = width
	fmt.Fprintln(w, r.Render())
	return nil
}
