package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/cvvin/internal/model"
	"github.com/amishk599/cvvin/internal/tui"
)

var (
	reportJSON  bool
	reportShare bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the latest analysis result",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the result as JSON")
	reportCmd.Flags().BoolVar(&reportShare, "share", false, "send the result to the configured notifier")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := openStageApp(cmd, model.StageDashboard)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.kv.LatestResult(cmd.Context())
	if err != nil {
		return err
	}
	if res == nil {
		return errors.New("no analysis has completed yet; run `cvvin analyze` first")
	}

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, tui.RenderReport(*res, reportWidth(out)))
	}

	if reportShare {
		n := setupNotifier(a.cfg, &http.Client{Timeout: 30 * time.Second}, a.logger)
		if err := n.Notify(cmd.Context(), *res); err != nil {
			return fmt.Errorf("sharing result: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Result shared.")
	}
	return nil
}
