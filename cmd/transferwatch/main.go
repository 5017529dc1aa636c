// transferwatch follows a report's transcription transfer from the command
// line: it polls the API at a fixed cadence, prints the bounded progress
// indicator, and dumps the transcript once the job finishes.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"reportapi/internal/poller"
)

var (
	serverURL string
	userID    string
	reportID  string
	interval  time.Duration
	timeout   time.Duration
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "transferwatch",
		Short:        "Watch a report's transcription progress until it finishes",
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the report API")
	cmd.Flags().StringVar(&userID, "user", "", "user id owning the report")
	cmd.Flags().StringVar(&reportID, "report", "", "report id to watch")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "poll interval")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "overall deadline; 0 waits forever")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("report")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	p, err := poller.New(poller.Config{
		ServerURL: serverURL,
		UserID:    userID,
		ReportID:  reportID,
		Interval:  interval,
		Timeout:   timeout,
		OnTick: func(u poller.Update) {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d%%  %s", u.Percent, u.Stage)
			for _, m := range u.Messages {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s", m)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	})
	if err != nil {
		return err
	}

	segments, err := p.Wait(cmd.Context())
	if err != nil {
		return err
	}

	for _, seg := range segments {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s %.1f-%.1f] %s\n", seg.Speaker, seg.StartTime, seg.EndTime, seg.Text)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
