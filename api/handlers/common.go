package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/BaSui01/browseruse/types"
)

// maxBodyBytes bounds request bodies. Task prompts are short text.
const maxBodyBytes = 1 << 20 // 1 MB

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already out, nothing more to write.
		return
	}
}

// WriteError writes the wire error shape, a bare {"error": message}
// object, with the status carried by the error.
func WriteError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := http.StatusInternalServerError
	message := err.Error()

	var terr *types.Error
	if errors.As(err, &terr) {
		message = terr.Message
		if terr.HTTPStatus != 0 {
			status = terr.HTTPStatus
		}
	}

	if logger != nil {
		logger.Warn("request failed",
			zap.String("code", string(types.GetErrorCode(err))),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteErrorMessage writes a bare error object with an explicit status.
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	WriteError(w, types.NewError(code, message).WithHTTPStatus(status), logger)
}

// DecodeJSON reads the request body into dst. A missing or malformed
// body returns an INVALID_REQUEST error; handlers decide the message.
func DecodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return types.NewError(types.ErrInvalidRequest, "failed to read request body").
			WithHTTPStatus(http.StatusBadRequest).WithCause(err)
	}
	if len(body) == 0 {
		return types.NewError(types.ErrInvalidRequest, "request body is empty").
			WithHTTPStatus(http.StatusBadRequest)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return types.NewError(types.ErrInvalidRequest, "request body is not valid JSON").
			WithHTTPStatus(http.StatusBadRequest).WithCause(err)
	}
	return nil
}
