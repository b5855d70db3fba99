package errors

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	we, ok := As(err)
	if !ok {
		we = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", we.Message)
	if we.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", we.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", we.Code)
	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error, used by
// `--format json` on the query commands.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	we, ok := As(err)
	if !ok {
		we = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       we.Code,
		Message:    we.Message,
		Category:   string(we.Category),
		Severity:   string(we.Severity),
		Details:    we.Details,
		Suggestion: we.Suggestion,
		Retryable:  we.Retryable,
	}
	if we.Cause != nil {
		je.Cause = we.Cause.Error()
	}
	return json.Marshal(je)
}

// FormatForLog returns slog attributes describing err.
func FormatForLog(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	we, ok := As(err)
	if !ok {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", we.Code),
		slog.String("message", we.Message),
		slog.String("category", string(we.Category)),
		slog.Bool("retryable", we.Retryable),
	}
	if we.Cause != nil {
		attrs = append(attrs, slog.String("cause", we.Cause.Error()))
	}

	keys := make([]string, 0, len(we.Details))
	for k := range we.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.String("detail_"+k, we.Details[k]))
	}
	return attrs
}
