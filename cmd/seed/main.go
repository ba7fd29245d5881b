// Command seed populates a running taskflowd with sample tasks.
//
// Run: seed [-addr http://localhost:8000] [-api-key KEY]
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/taskflow-go/taskflow/logging"
	"github.com/taskflow-go/taskflow/store"
	"github.com/taskflow-go/taskflow/tasks"
)

type sample struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

var samples = []sample{
	{"Implement user authentication", "Add JWT-based authentication to the API", "high"},
	{"Write API documentation", "Create comprehensive API documentation with examples", "medium"},
	{"Add rate limiting", "Implement rate limiting middleware for API endpoints", "medium"},
	{"Optimize database queries", "Review and optimize slow database queries", "low"},
	{"Set up CI/CD pipeline", "Configure GitHub Actions for automated testing and deployment", "high"},
	{"Add caching layer", "Implement Redis caching for frequently accessed data", "medium"},
	{"Write unit tests", "Increase test coverage to 90%+", "high"},
	{"Update README", "Add installation and usage instructions to README", "low"},
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "base URL of the taskflowd API")
	apiKey := flag.String("api-key", "", "X-API-Key value if the server requires one")
	flag.Parse()

	log := logging.New().WithComponent("seed")
	client := &http.Client{Timeout: 10 * time.Second}

	created := 0
	for _, s := range samples {
		task, err := createTask(client, *addr, *apiKey, s)
		if err != nil {
			log.Error("seeding failed", map[string]interface{}{"title": s.Title, "error": err.Error()})
			os.Exit(1)
		}
		log.Info("created task", map[string]interface{}{"id": task.ID, "title": task.Title})
		created++
	}
	log.Info("seeding complete", map[string]interface{}{"created": created})

	stats, err := fetchStats(client, *addr, *apiKey)
	if err != nil {
		log.Warn("could not fetch stats", map[string]interface{}{"error": err.Error()})
		return
	}
	log.Info("task statistics", map[string]interface{}{
		"pending":     stats.Pending,
		"in_progress": stats.InProgress,
		"completed":   stats.Completed,
		"failed":      stats.Failed,
		"cancelled":   stats.Cancelled,
	})
}

func createTask(client *http.Client, addr, apiKey string, s sample) (*tasks.Task, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest("POST", addr+"/api/v1/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var task tasks.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, err
	}
	return &task, nil
}

func fetchStats(client *http.Client, addr, apiKey string) (*store.Stats, error) {
	req, err := http.NewRequest("GET", addr+"/api/v1/tasks/stats/summary", nil)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var stats store.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
