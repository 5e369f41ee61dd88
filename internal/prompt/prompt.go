// Package prompt translates simple-action requests into natural-language
// agent instructions using fixed templates.
package prompt

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/BaSui01/browseruse/types"
)

// Action is a canned browser task kind.
type Action string

const (
	ActionSearch   Action = "search"
	ActionScrape   Action = "scrape"
	ActionClick    Action = "click"
	ActionFillForm Action = "fill_form"
)

// Supported reports whether the action has a template.
func Supported(a Action) bool {
	switch a {
	case ActionSearch, ActionScrape, ActionClick, ActionFillForm:
		return true
	}
	return false
}

// Build returns the instruction string for the action. data carries
// auxiliary fields: click reads data["element"] (defaulting to "submit
// button"), fill_form serializes the whole map as JSON. An unsupported
// action yields an UNSUPPORTED_ACTION client error and no instruction.
func Build(action Action, target string, data map[string]any) (string, error) {
	switch action {
	case ActionSearch:
		return fmt.Sprintf("Search for '%s' on Google and return the top 3 results with titles and URLs", target), nil

	case ActionScrape:
		return fmt.Sprintf("Go to %s and extract the main content, headings, and key information from the page", target), nil

	case ActionClick:
		element := "submit button"
		if v, ok := data["element"].(string); ok && v != "" {
			element = v
		}
		return fmt.Sprintf("Go to %s and click on the element: %s", target, element), nil

	case ActionFillForm:
		if data == nil {
			data = map[string]any{}
		}
		payload, err := json.Marshal(data)
		if err != nil {
			return "", types.NewError(types.ErrInvalidRequest, "data is not JSON-serializable").
				WithCause(err).
				WithHTTPStatus(http.StatusBadRequest)
		}
		return fmt.Sprintf("Go to %s and fill out the form with this data: %s", target, payload), nil

	default:
		return "", types.NewError(types.ErrUnsupportedAction, fmt.Sprintf("Unsupported action: %s", action)).
			WithHTTPStatus(http.StatusBadRequest)
	}
}
