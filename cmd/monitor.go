package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/smarthunt/realtime-service/internal/domain/model"
	"github.com/urfave/cli/v2"
)

const statsHistory = 120

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "Live terminal dashboard over a running server's /stats endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Value: "http://127.0.0.1:8090",
				Usage: "Base URL of the server to watch",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Value: time.Second,
				Usage: "Polling interval",
			},
		},
		Action: func(c *cli.Context) error {
			return runMonitor(c.String("address"), c.Duration("interval"))
		},
	}
}

func fetchStats(client *http.Client, base string) (*model.HubStats, error) {
	resp, err := client.Get(base + "/stats")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stats endpoint returned %s", resp.Status)
	}

	var stats model.HubStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}

	return &stats, nil
}

func runMonitor(address string, interval time.Duration) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("initialize terminal ui: %w", err)
	}
	defer ui.Close()

	summary := widgets.NewParagraph()
	summary.Title = " smarthunt-realtime "

	connPlot := widgets.NewPlot()
	connPlot.Title = " connections "
	connPlot.Data = [][]float64{{0, 0}}
	connPlot.AxesColor = ui.ColorWhite
	connPlot.LineColors[0] = ui.ColorGreen

	groupsBar := widgets.NewBarChart()
	groupsBar.Title = " registry "
	groupsBar.Labels = []string{"users", "conns", "groups"}
	groupsBar.Data = []float64{0, 0, 0}
	groupsBar.BarWidth = 9

	layout := func(w, h int) {
		summary.SetRect(0, 0, w, 5)
		connPlot.SetRect(0, 5, w*2/3, h)
		groupsBar.SetRect(w*2/3, 5, w, h)
	}

	w, h := ui.TerminalDimensions()
	layout(w, h)

	client := &http.Client{Timeout: 5 * time.Second}
	refresh := func() {
		stats, err := fetchStats(client, address)
		if err != nil {
			summary.Text = fmt.Sprintf("%s\n[unreachable: %v](fg:red)", address, err)
			ui.Render(summary, connPlot, groupsBar)
			return
		}

		summary.Text = fmt.Sprintf(
			"%s\nusers: %d  connections: %d  groups: %d  uptime: %s",
			address,
			stats.TotalUsers, stats.TotalConnections, stats.ActiveGroups,
			stats.Uptime.Truncate(time.Second),
		)

		series := append(connPlot.Data[0], float64(stats.TotalConnections))
		if len(series) > statsHistory {
			series = series[len(series)-statsHistory:]
		}
		connPlot.Data[0] = series

		groupsBar.Data = []float64{
			float64(stats.TotalUsers),
			float64(stats.TotalConnections),
			float64(stats.ActiveGroups),
		}

		ui.Render(summary, connPlot, groupsBar)
	}
	refresh()

	events := ui.PollEvents()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				layout(payload.Width, payload.Height)
				ui.Clear()
				refresh()
			}
		case <-ticker.C:
			refresh()
		}
	}
}
