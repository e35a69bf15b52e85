package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"monitoroff/internal/power"
	"monitoroff/internal/settings"

	"github.com/spf13/cobra"
)

var (
	offCmd = cobra.Command{
		Use:   "off",
		Short: "Turn the monitors off without prompting",
		Args:  cobra.NoArgs,
		RunE:  runOff,
	}
	onCmd = cobra.Command{
		Use:   "on",
		Short: "Turn the monitors back on",
		Args:  cobra.NoArgs,
		RunE:  runOn,
	}
	lockCmd = cobra.Command{
		Use:   "lock",
		Short: "Lock the workstation",
		Args:  cobra.NoArgs,
		RunE:  runLock,
	}
)

func init() {
	offCmd.Flags().String("type", "", "Power-off signal: soft or hard (default from settings)")
	offCmd.Flags().Bool("wait", false, "Wait for the wake key and turn the monitors back on")
}

func runOff(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	offType := a.settingsStore().Current().OffType
	if name, _ := cmd.Flags().GetString("type"); name != "" {
		if offType, err = settings.ParseOffType(name); err != nil {
			return err
		}
	}
	mode := power.ModeOffSoft
	if offType == settings.OffHard {
		mode = power.ModeOffHard
	}

	pc := a.powerController()
	report := pc.SetMonitorPower(mode)
	printReport(cmd, report)

	if wait, _ := cmd.Flags().GetBool("wait"); !wait {
		return report.Err()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	fmt.Fprintf(cmd.OutOrStdout(), "press %s to turn the monitors back on\n", a.cfg.WakeKey())
	report, err = pc.WaitForWakeKey(ctx, a.cfg.WakeKey())
	if err != nil {
		return err
	}
	printReport(cmd, report)
	return report.Err()
}

func runOn(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report := a.powerController().SetMonitorPower(power.ModeOn)
	printReport(cmd, report)
	return report.Err()
}

func runLock(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.powerController().LockWorkstation()
	return nil
}

func printReport(cmd *cobra.Command, r power.Report) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d monitors, %d failed\n", r.Mode, r.Monitors, len(r.Failed))
}
