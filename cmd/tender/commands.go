package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/modoterra/tender/internal/buildinfo"
	"github.com/modoterra/tender/pkg/core"
	"github.com/modoterra/tender/pkg/manifest"
	"github.com/modoterra/tender/pkg/manifest/presets"
	"github.com/modoterra/tender/pkg/rotate"
	"github.com/modoterra/tender/pkg/transport/uds"
)

var socketFlag string

func init() {
	for _, c := range []*cobra.Command{pingCmd, statusCmd, hooksCmd} {
		c.PersistentFlags().StringVar(&socketFlag, "socket", "", "control socket path (default: control_socket from the config)")
	}
}

func dialSupervisor() (*uds.Client, error) {
	path := socketFlag
	if path == "" {
		m, _, err := loadManifest()
		if err != nil {
			return nil, err
		}
		path = m.ControlSocket
	}
	if path == "" {
		return nil, fmt.Errorf("control socket disabled: set control_socket or pass --socket")
	}
	client, err := uds.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to supervisor at %s: %w", path, err)
	}
	return client, nil
}

// --- Version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("tender"))
	},
}

// --- Rotate ---

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Compress and expire old log files once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, _, err := loadManifest()
		if err != nil {
			return err
		}
		res, err := rotate.Run(m.RotateConfig(), time.Now())
		out := cmd.OutOrStdout()
		for _, p := range res.Compressed {
			fmt.Fprintf(out, "compressed %s\n", p)
		}
		for _, p := range res.Deleted {
			fmt.Fprintf(out, "deleted %s\n", p)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d compressed, %d deleted\n", len(res.Compressed), len(res.Deleted))
		return nil
	},
}

// --- Ping ---

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the supervisor answers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialSupervisor()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "pong")
		return nil
	},
}

// --- Status ---

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the supervisor state and the child process",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := dialSupervisor()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		st, err := client.Status(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if statusJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		fmt.Fprintf(out, "%-10s %s\n", "STATE", st.State)
		if st.PID != 0 {
			fmt.Fprintf(out, "%-10s %d\n", "PID", st.PID)
			fmt.Fprintf(out, "%-10s %s\n", "UPTIME", st.Uptime)
			for i, line := range core.DisplayCommand(st.Command) {
				label := ""
				if i == 0 {
					label = "COMMAND"
				}
				fmt.Fprintf(out, "%-10s %s\n", label, line)
			}
		}
		s := st.Schedule
		fmt.Fprintf(out, "%-10s hour=%s day=%s week=%s month=%s\n", "LAST RUN", s.LastHour, s.LastDay, s.LastWeek, s.LastMonth)
		for _, f := range st.Following {
			fmt.Fprintf(out, "%-10s %s\n", "FOLLOWING", f)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")
}

// --- Hooks ---

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "Run hook categories in the supervisor",
}

var hooksRunCmd = &cobra.Command{
	Use:   "run <category>",
	Short: "Run one hook category now",
	Long:  "Categories: pre-startup, startup, hourly, daily, weekly, monthly, shutdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialSupervisor()
		if err != nil {
			return err
		}
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		res, err := client.RunHooks(ctx, args[0])
		if err != nil {
			return err
		}
		if res.Error != "" {
			return fmt.Errorf("%s hooks: %s", res.Category, res.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s hooks finished\n", res.Category)
		return nil
	},
}

func init() {
	hooksCmd.AddCommand(hooksRunCmd)
}

// --- Config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tender.yaml",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}

		m, err := manifest.Load(path)
		if err != nil {
			return err
		}

		errs := manifest.Validate(m)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid\n", path)
			return nil
		}

		w := cmd.ErrOrStderr()
		fmt.Fprintf(w, "%s: %d error(s)\n", path, len(errs))
		for _, e := range errs {
			fmt.Fprintf(w, "  • %s\n", e)
		}
		return fmt.Errorf("%s is invalid", path)
	},
}

var (
	configInitRoot   string
	configInitOutput string
	configInitForce  bool
)

var configInitCmd = &cobra.Command{
	Use:   "init [preset]",
	Short: "Generate a config file",
	Long:  "Available presets: java",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			m   *manifest.Manifest
			err error
		)
		switch args[0] {
		case "java":
			m, err = presets.GenerateJava(configInitRoot)
		default:
			return fmt.Errorf("unknown preset: %s (available: java)", args[0])
		}
		if err != nil {
			return err
		}

		if !configInitForce {
			if _, err := os.Stat(configInitOutput); err == nil {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configInitOutput)
			}
		}
		if err := manifest.Save(m, configInitOutput); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", configInitOutput)
		for _, line := range core.DisplayCommand(m.Command) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", line)
		}
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitRoot, "root", ".", "application directory")
	configInitCmd.Flags().StringVar(&configInitOutput, "output", manifest.DefaultFile, "output file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configInitCmd)
}
