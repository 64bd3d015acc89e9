package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/i474232898/forecast-screen/internal/config"
	"github.com/i474232898/forecast-screen/internal/prefs"
	"github.com/i474232898/forecast-screen/internal/session"
	"github.com/i474232898/forecast-screen/internal/tui"
	"github.com/i474232898/forecast-screen/internal/weather/providers"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The UI owns the terminal, so logs go to a file.
	logFile, err := tea.LogToFile(cfg.LogFile, "forecast-screen")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	client := providers.NewWeatherAPIClient(httpClient, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, cfg.MaxRetries)

	store, err := prefs.Open(cfg.PrefsDriver, cfg.PrefsPath)
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	defer store.Close()

	ctrl := session.New(client, store, cfg.SessionConfig())
	defer ctrl.Close()
	ctrl.Start()

	p := tea.NewProgram(tui.NewModel(ctrl), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("ui stopped: %w", err)
	}
	log.Printf("INFO: forecast-screen exiting")
	return nil
}
