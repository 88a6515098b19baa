package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lbogdanov/nixieclock/internal/discovery"
	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/portalclient"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/timesync"
	"github.com/lbogdanov/nixieclock/internal/ui"
	"github.com/lbogdanov/nixieclock/internal/watch"
)

// Clock command flags
var (
	deviceIP     string
	devicePort   int
	scanTimeout  int
	outputFormat string
	noVerify     bool
	retries      int
	showSecrets  bool
)

// set flags
var (
	setSSID   string
	setPSK    string
	setAPIKey string
	setTZ     string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceIP, "device", "", "Clock IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", 80, "Clock portal port")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(parseDateCmd)
	rootCmd.AddCommand(watchCmd)

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 10, "Scan timeout in seconds")

	showCmd.Flags().StringVar(&outputFormat, "format", "detailed", "Output format (detailed, json)")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the passphrase and API key unmasked")

	setCmd.Flags().StringVar(&setSSID, "ssid", "", "Network name to join in clock mode")
	setCmd.Flags().StringVar(&setPSK, "psk", "", "Network passphrase")
	setCmd.Flags().StringVar(&setAPIKey, "api-key", "", "Geolocation/timezone API key")
	setCmd.Flags().StringVar(&setTZ, "tz", store.TZAuto, `Timezone: "auto" or a manual offset like "+05:30"`)
	setCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Skip reading the settings back after the update")
	setCmd.Flags().IntVar(&retries, "retries", portalclient.DefaultMaxRetries, "Attempts per request")
	_ = setCmd.MarkFlagRequired("ssid")
	_ = setCmd.MarkFlagRequired("api-key")
}

// scanCmd discovers clocks on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for clocks in configuration mode",
	Long: `Scan for clocks using mDNS/DNS-SD discovery.

Clocks only advertise while in configuration mode, on their own access
point. Join that network first.`,
	Example: `  # Scan for 10 seconds (default)
  nixieclock-cfg scan

  # Quick 3-second scan
  nixieclock-cfg scan --timeout 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Scanning for clocks (timeout: %ds)...\n\n", scanTimeout)

		scanner := discovery.NewScanner()
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
		devices, err := scanner.ScanForDevices(cmd.Context())
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		printDevices(out, devices)
		return nil
	},
}

func printDevices(w io.Writer, devices []*discovery.Device) {
	if len(devices) == 0 {
		fmt.Fprintln(w, ui.RenderFailure("No clocks found", nil, []string{
			"Ensure the clock has just been powered on (configuration mode lasts a minute after the last request)",
			"Verify your computer is connected to the clock's access point",
			"Try increasing --timeout",
			"Use --device 192.168.4.1 if discovery is blocked",
		}))
		return
	}

	fmt.Fprintf(w, "Found %d clock(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(w, "%d. %s\n", i+1, d.Instance)
		fmt.Fprintf(w, "   ID:      %s\n", d.ID)
		fmt.Fprintf(w, "   Mode:    %s\n", d.Mode())
		fmt.Fprintf(w, "   Portal:  %s\n", d.BaseURL())
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "Use 'nixieclock-cfg show --device <ip>' to view the clock's settings")
}

// showCmd displays the stored settings
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the clock's stored settings",
	Example: `  # Show settings with auto-discovery
  nixieclock-cfg show

  # Show settings of a specific clock as JSON
  nixieclock-cfg show --device 192.168.4.1 --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := portalURL(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return runShow(cmd.Context(), cmd.OutOrStdout(), ui.GetTerminalWidth(), portalclient.NewClient(base), outputFormat, showSecrets)
	},
}

func runShow(ctx context.Context, w io.Writer, width int, client *portalclient.Client, format string, secrets bool) error {
	rec, ok, err := client.GetSettings(ctx)
	if err != nil {
		fmt.Fprintln(w, box(ui.NewFailureResult("Could not read settings", err, portalclient.Troubleshooting(err)), width))
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !secrets {
		rec.SSIDPSK = logging.MaskSecret(rec.SSIDPSK)
		rec.APIKey = logging.MaskSecret(rec.APIKey)
	}

	switch format {
	case "json":
		fields := map[string]string{}
		if ok {
			fields = rec.Fields()
		}
		data, err := json.MarshalIndent(fields, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	default:
		if !ok {
			fmt.Fprintln(w, box(ui.NewWarningResult("No settings stored", map[string]string{"Portal": client.BaseURL}), width))
			return nil
		}
		fmt.Fprintln(w, box(ui.NewSuccessResult("Clock settings", rec.Fields()), width))
	}
	return nil
}

// setCmd writes the settings
var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Write the clock's settings",
	Long: `Submit the portal form. Every field is written; an omitted --psk
stores an open network and --tz defaults to "auto".

After a successful write the settings are read back and compared unless
--no-verify is given.`,
	Example: `  # Automatic timezone
  nixieclock-cfg set --ssid HomeNet --psk secret --api-key AIza...

  # Fixed offset, specific clock
  nixieclock-cfg set --device 192.168.4.1 --ssid HomeNet --psk secret --api-key AIza... --tz -05:00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		base, err := portalURL(cmd.Context(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		client := portalclient.NewClient(base)
		client.SetRetry(retries, portalclient.DefaultRetryDelay)

		rec := store.Record{SSID: setSSID, SSIDPSK: setPSK, APIKey: setAPIKey, TZ: setTZ}
		return runSet(cmd.Context(), cmd.OutOrStdout(), ui.GetTerminalWidth(), client, rec, !noVerify)
	},
}

func runSet(ctx context.Context, w io.Writer, width int, client *portalclient.Client, rec store.Record, verify bool) error {
	if !timesync.ValidTimezone(rec.TZ) {
		return fmt.Errorf("invalid --tz %q: want \"auto\" or ±HH:MM", rec.TZ)
	}

	fmt.Fprintf(w, "Writing settings to %s...\n\n", client.BaseURL)

	if err := client.PostSettings(ctx, rec); err != nil {
		fmt.Fprintln(w, box(ui.NewFailureResult("Update failed", err, portalclient.Troubleshooting(err)), width))
		return fmt.Errorf("update failed: %w", err)
	}

	result := ui.NewSuccessResult("Settings written (not verified)", nil)
	if verify {
		mismatches, err := client.Mismatches(ctx, rec)
		if err != nil {
			fmt.Fprintln(w, box(ui.NewFailureResult("Verification failed", err, portalclient.Troubleshooting(err)), width))
			return fmt.Errorf("verification failed: %w", err)
		}
		if len(mismatches) > 0 {
			fmt.Fprintln(w, box(ui.NewFailureResult("Settings differ after write", errors.New(strings.Join(mismatches, "; ")), nil), width))
			return fmt.Errorf("verification failed: %d field(s) differ", len(mismatches))
		}
		result.Title = "Settings written and verified"
	}

	masked := rec
	masked.SSIDPSK = logging.MaskSecret(rec.SSIDPSK)
	masked.APIKey = logging.MaskSecret(rec.APIKey)
	result.Details = masked.Fields()
	fmt.Fprintln(w, box(result, width))
	fmt.Fprintln(w, ui.MutedStyle.Render("The clock switches to clock mode once the portal has been idle for a minute."))
	return nil
}

// parseDateCmd is a helper for checking time reference headers
var parseDateCmd = &cobra.Command{
	Use:     "parse-date <http-date>",
	Short:   "Convert an HTTP Date header to a Unix timestamp",
	Example: `  nixieclock-cfg parse-date "Sun, 06 Nov 1994 08:49:37 GMT"`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		epoch, err := timesync.ParseHTTPDate(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", epoch, time.Unix(epoch, 0).UTC().Format(time.RFC3339))
		return nil
	},
}

// watchCmd mirrors a clock face
var watchCmd = &cobra.Command{
	Use:   "watch [address]",
	Short: "Mirror a running clock's face",
	Long: `Connect to a clock's display feed and draw its face in the terminal.

The address defaults to the daemon's default feed, 127.0.0.1:8081.`,
	Example: `  nixieclock-cfg watch
  nixieclock-cfg watch clock.local:8081`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := "127.0.0.1:8081"
		if len(args) == 1 {
			addr = args[0]
		}
		feed, err := watch.FeedURL(addr)
		if err != nil {
			return err
		}
		return watch.Run(cmd.Context(), feed)
	},
}

// box renders r width columns wide.
func box(r *ui.Result, width int) string {
	r.Width = width
	return r.Render()
}

// portalURL returns the portal base URL from --device or discovery.
func portalURL(ctx context.Context, w io.Writer) (string, error) {
	if deviceIP != "" {
		return "http://" + net.JoinHostPort(deviceIP, strconv.Itoa(devicePort)), nil
	}

	fmt.Fprintln(w, "No clock IP specified, attempting auto-discovery...")
	devices, err := discovery.QuickScan(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}
	return pickDevice(w, devices)
}

func pickDevice(w io.Writer, devices []*discovery.Device) (string, error) {
	switch len(devices) {
	case 0:
		return "", fmt.Errorf("no clocks found. Use --device to specify the IP manually")
	case 1:
		fmt.Fprintf(w, "Found clock: %s\n\n", devices[0])
		return devices[0].BaseURL(), nil
	default:
		fmt.Fprintf(w, "Found %d clocks:\n", len(devices))
		for i, d := range devices {
			fmt.Fprintf(w, "%d. %s\n", i+1, d)
		}
		return "", fmt.Errorf("multiple clocks found. Use --device to specify which one")
	}
}
