/*
Monitor entry point for the log/trace correlation pipeline.

This is the main entry point for the TUI dashboard binary.
Build: go build -o monitor ./cmd/monitor
*/
package main

import (
	"fmt"
	"os"
	"time"

	ui "github.com/gizak/termui/v3"

	"github.com/obsbridge/correlator/internal/config"
	"github.com/obsbridge/correlator/internal/monitor"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Printf("Fatal error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := ui.Init(); err != nil {
		fmt.Printf("Error initializing the UI: %v\n", err)
		os.Exit(1)
	}
	defer ui.Close()

	mon := monitor.New()

	logChan := make(chan monitor.LogLine, monitor.LogChannelBuffer)
	go monitor.MonitorFile(cfg.App.LogFile, logChan)

	go func() {
		for entry := range logChan {
			mon.ProcessLog(entry)
		}
	}()

	// Create the widgets
	metricsTable := monitor.CreateMetricsTable()
	healthDashboard := monitor.CreateHealthDashboard()
	logList := monitor.CreateLogList()
	rateChart := monitor.CreateEventRateChart()
	dropChart := monitor.CreateDropRateChart()

	uiEvents := ui.PollEvents()
	ticker := time.NewTicker(cfg.GetUIUpdateInterval())
	defer ticker.Stop()

	mon.Metrics.StartTime = time.Now()

	// The layout is split in three sections:
	// 1. Top: counters and health (height 10)
	// 2. Middle: recent logs (height 10)
	// 3. Bottom: charts (remaining height)
	termWidth, termHeight := ui.TerminalDimensions()
	midWidth := termWidth / 2

	applyLayout := func() {
		metricsTable.SetRect(0, 0, 50, 10)
		healthDashboard.SetRect(50, 0, termWidth, 10)
		logList.SetRect(0, 10, termWidth, 20)
		rateChart.SetRect(0, 20, midWidth, termHeight)
		dropChart.SetRect(midWidth, 20, termWidth, termHeight)
	}
	applyLayout()

	render := func() {
		ui.Render(metricsTable, healthDashboard, logList, rateChart, dropChart)
	}
	render()

	for {
		select {
		case e := <-uiEvents:
			switch e.ID {
			case "q", "<C-c>":
				return
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				termWidth = payload.Width
				termHeight = payload.Height
				midWidth = termWidth / 2

				applyLayout()
				ui.Clear()
				render()
			}
		case <-ticker.C:
			mon.UpdateUI(metricsTable, healthDashboard, logList, rateChart, dropChart)
			render()
		}
	}
}
