package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/internal/browseragent"
	"github.com/BaSui01/browseruse/internal/prompt"
	"github.com/BaSui01/browseruse/types"
)

// TaskService is the task execution surface the handlers drive.
// internal/task.Dispatcher implements it.
type TaskService interface {
	RunSync(ctx context.Context, req browseragent.Request) (string, error)
	Dispatch(ctx context.Context, req browseragent.Request) (string, error)
	Status(ctx context.Context, id string) (types.TaskRecord, error)
}

// BrowserHandler serves the browser automation endpoints.
type BrowserHandler struct {
	svc          TaskService
	defaultModel string
	logger       *zap.Logger
}

// NewBrowserHandler creates the handler.
func NewBrowserHandler(svc TaskService, defaultModel string, logger *zap.Logger) *BrowserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserHandler{svc: svc, defaultModel: defaultModel, logger: logger}
}

type runRequest struct {
	Prompt    string `json:"prompt"`
	Model     string `json:"model"`
	Async     bool   `json:"async"`
	UseVision *bool  `json:"use_vision"`
}

// HandleRun serves POST /browser/run. Async requests return a task id
// immediately; sync requests hold the connection until the agent is done.
func (h *BrowserHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if err := DecodeJSON(r, &body); err != nil || body.Prompt == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"Missing 'prompt' in request body", h.logger)
		return
	}

	req := browseragent.Request{
		Task:   body.Prompt,
		Model:  body.Model,
		Vision: body.UseVision == nil || *body.UseVision,
	}
	if req.Model == "" {
		req.Model = h.defaultModel
	}

	if body.Async {
		id, err := h.svc.Dispatch(r.Context(), req)
		if err != nil {
			WriteError(w, err, h.logger)
			return
		}
		WriteJSON(w, http.StatusOK, struct {
			TaskID  string `json:"task_id"`
			Status  string `json:"status"`
			Message string `json:"message"`
		}{
			TaskID:  id,
			Status:  "started",
			Message: "Task started. Use /browser/status/{task_id} to check progress",
		})
		return
	}

	result, err := h.svc.RunSync(r.Context(), req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Result string `json:"result"`
		Prompt string `json:"prompt"`
	}{
		Status: "completed",
		Result: result,
		Prompt: body.Prompt,
	})
}

// HandleStatus serves GET /browser/status/{task_id}.
func (h *BrowserHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Status(r.Context(), r.PathValue("task_id"))
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

type simpleRequest struct {
	Action string         `json:"action"`
	Target string         `json:"target"`
	Data   map[string]any `json:"data"`
}

// HandleSimple serves POST /browser/simple: a fixed set of common
// actions expanded into full task prompts and run synchronously.
func (h *BrowserHandler) HandleSimple(w http.ResponseWriter, r *http.Request) {
	var body simpleRequest
	if err := DecodeJSON(r, &body); err != nil || body.Action == "" || body.Target == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest,
			"Missing 'action' or 'target' in request body", h.logger)
		return
	}

	task, err := prompt.Build(prompt.Action(body.Action), body.Target, body.Data)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	result, err := h.svc.RunSync(r.Context(), browseragent.Request{
		Task:   task,
		Model:  h.defaultModel,
		Vision: true,
	})
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		Action string `json:"action"`
		Target string `json:"target"`
		Result string `json:"result"`
	}{
		Status: "completed",
		Action: body.Action,
		Target: body.Target,
		Result: result,
	})
}
