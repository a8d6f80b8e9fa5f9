package watch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattjoyce/mortar/internal/events"
)

// --- Message types ---

type healthMsg struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type passEntry struct {
	ID        string `json:"id"`
	Construct string `json:"construct"`
	Kind      string `json:"kind"`
	Schedule  string `json:"schedule"`
	CreatedAt string `json:"created_at"`
}

type logEntry struct {
	ID        string `json:"id"`
	Pebble    string `json:"pebble"`
	Construct string `json:"construct"`
	PassID    string `json:"pass_id"`
	Status    string `json:"status"`
	Error     string `json:"error"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type passesMsg []passEntry
type logsMsg []logEntry
type eventsMsg []events.Event

type tickMsg time.Time

type errMsg error

// --- Commands ---

// fetchHealth queries the /v1/health endpoint.
func fetchHealth(apiURL, apiKey string) tea.Msg {
	var h healthMsg
	if err := getJSON(apiURL+"/v1/health", apiKey, &h); err != nil {
		return errMsg(err)
	}
	return h
}

// fetchPasses queries the most recent passes.
func fetchPasses(apiURL, apiKey string, limit int) tea.Msg {
	var passes []passEntry
	url := fmt.Sprintf("%s/v1/passes?limit=%d", apiURL, limit)
	if err := getJSON(url, apiKey, &passes); err != nil {
		return errMsg(err)
	}
	return passesMsg(passes)
}

// fetchLogs queries the most recent execution logs across all passes.
func fetchLogs(apiURL, apiKey string, limit int) tea.Msg {
	var logs []logEntry
	url := fmt.Sprintf("%s/v1/logs?limit=%d", apiURL, limit)
	if err := getJSON(url, apiKey, &logs); err != nil {
		return errMsg(err)
	}
	return logsMsg(logs)
}

// fetchEvents queries buffered telemetry newer than lastID.
func fetchEvents(apiURL, apiKey string, lastID int64) tea.Msg {
	var evs []events.Event
	url := fmt.Sprintf("%s/v1/events?since=%d", apiURL, lastID)
	if err := getJSON(url, apiKey, &evs); err != nil {
		return errMsg(err)
	}
	return eventsMsg(evs)
}

func getJSON(url, apiKey string, out any) error {
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
