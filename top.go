package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"market_dashboard/api"
	"market_dashboard/models"
)

const defaultRefresh = 5 * time.Second

type topOptions struct {
	Backend  string
	Interval string
	Watch    bool
	Refresh  time.Duration
	Color    bool
}

var topCmd = &cobra.Command{
	Use:   "top --backend http://localhost:8000 --interval 4h --watch",
	Short: "Print the top coins table from a running dashboard backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := topOptions{}
		var err error
		if opts.Backend, err = cmd.Flags().GetString("backend"); err != nil {
			return err
		}
		if opts.Interval, err = cmd.Flags().GetString("interval"); err != nil {
			return err
		}
		if opts.Watch, err = cmd.Flags().GetBool("watch"); err != nil {
			return err
		}
		if opts.Refresh, err = cmd.Flags().GetDuration("refresh"); err != nil {
			return err
		}
		noColor, err := cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
		opts.Color = !noColor

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runTop(ctx, cmd.OutOrStdout(), opts)
	},
}

func init() {
	topCmd.Flags().String("backend", "http://localhost:8000", "dashboard backend base URL")
	topCmd.Flags().String("interval", "", "candle interval, backend default when empty")
	topCmd.Flags().Bool("watch", false, "refresh the table until interrupted")
	topCmd.Flags().Duration("refresh", defaultRefresh, "refresh period with --watch")
	topCmd.Flags().Bool("no-color", false, "do not color the change column")
}

func runTop(ctx context.Context, out io.Writer, opts topOptions) error {
	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}
	client := &http.Client{Timeout: 90 * time.Second}

	for {
		rows, err := fetchTopCoins(ctx, client, opts.Backend, opts.Interval)
		if err != nil {
			if !opts.Watch {
				return err
			}
			fmt.Fprintf(out, "Error fetching data: %v\n", err)
		} else {
			if opts.Watch {
				fmt.Fprintf(out, "Cryptocurrency Market Data  %s\n", time.Now().Format("2006-01-02 15:04:05"))
			}
			renderTable(out, rows, opts.Color)
		}

		if !opts.Watch {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(opts.Refresh):
		}
	}
}

func fetchTopCoins(ctx context.Context, client *http.Client, backend, interval string) ([]models.AggregatedRow, error) {
	query := url.Values{}
	if interval != "" {
		query.Set("interval", interval)
	}
	target := strings.TrimRight(backend, "/") + "/get_top_coins"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return nil, fmt.Errorf("backend answered %s", resp.Status)
		}
		return nil, fmt.Errorf("backend answered %s: %s", resp.Status, apiErr.Error)
	}

	var rows []models.AggregatedRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode top coins: %w", err)
	}
	return rows, nil
}

func renderTable(w io.Writer, rows []models.AggregatedRow, color bool) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Symbol", "Open", "High", "Low", "Close", "Change", "MA(7)", "MA(25)", "MA(99)"})
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, row := range rows {
		cells := formatRow(row)
		if !color {
			table.Append(cells)
			continue
		}
		colors := make([]tablewriter.Colors, len(cells))
		switch {
		case row.Change > 0:
			colors[6] = tablewriter.Colors{tablewriter.FgGreenColor}
		case row.Change < 0:
			colors[6] = tablewriter.Colors{tablewriter.FgRedColor}
		}
		table.Rich(cells, colors)
	}

	table.Render()
}

func formatRow(row models.AggregatedRow) []string {
	symbol := row.Symbol
	if row.Name != "" {
		symbol = fmt.Sprintf("%s (%s)", row.Symbol, row.Name)
	}
	return []string{
		row.Timestamp,
		symbol,
		fmt.Sprintf("%.2f", row.Open),
		fmt.Sprintf("%.2f", row.High),
		fmt.Sprintf("%.2f", row.Low),
		fmt.Sprintf("%.2f", row.Close),
		fmt.Sprintf("%+.2f%%", row.Change),
		fmt.Sprintf("%.2f", row.MA7),
		fmt.Sprintf("%.2f", row.MA25),
		fmt.Sprintf("%.2f", row.MA99),
	}
}
