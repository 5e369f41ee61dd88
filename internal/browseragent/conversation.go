package browseragent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// conversationStep is one recorded observe-plan cycle.
type conversationStep struct {
	Step      int      `json:"step"`
	Timestamp int64    `json:"timestamp"`
	URL       string   `json:"url,omitempty"`
	Title     string   `json:"title,omitempty"`
	LastError string   `json:"last_error,omitempty"`
	Decision  Decision `json:"decision"`
}

// conversationLog accumulates steps and flushes them to a JSON file so a
// finished task can be audited. A log with an empty path is a no-op.
type conversationLog struct {
	path   string
	steps  []conversationStep
	logger *zap.Logger
}

func newConversationLog(path string, logger *zap.Logger) *conversationLog {
	return &conversationLog{path: path, logger: logger}
}

func (c *conversationLog) record(step int, obs Observation, d Decision) {
	if c.path == "" {
		return
	}
	c.steps = append(c.steps, conversationStep{
		Step:      step,
		Timestamp: time.Now().Unix(),
		URL:       obs.URL,
		Title:     obs.Title,
		LastError: obs.LastError,
		Decision:  d,
	})
}

// flush writes the collected steps. Failures are logged, never fatal.
func (c *conversationLog) flush(task, result string, runErr error) {
	if c.path == "" || len(c.steps) == 0 {
		return
	}

	doc := struct {
		Task   string             `json:"task"`
		Result string             `json:"result,omitempty"`
		Error  string             `json:"error,omitempty"`
		Steps  []conversationStep `json:"steps"`
	}{Task: task, Result: result, Steps: c.steps}
	if runErr != nil {
		doc.Error = runErr.Error()
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.logger.Warn("failed to create conversation dir", zap.Error(err))
		return
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		c.logger.Warn("failed to encode conversation", zap.Error(err))
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		c.logger.Warn("failed to write conversation", zap.String("path", c.path), zap.Error(err))
	}
}
