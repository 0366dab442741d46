package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var fe *FSError
	if !stderrors.As(err, &fe) {
		fe = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", fe.Message))
	if fe.Cause != nil && fe.Cause.Error() != fe.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", fe.Cause))
	}
	if path, ok := fe.Details["path"]; ok {
		sb.WriteString(fmt.Sprintf("  Path: %s\n", path))
	}
	if fe.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", fe.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", fe.Code))

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

// FormatJSON returns a JSON representation of the error.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	var fe *FSError
	if !stderrors.As(err, &fe) {
		fe = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       fe.Code,
		Message:    fe.Message,
		Category:   string(fe.Category),
		Severity:   string(fe.Severity),
		Details:    fe.Details,
		Suggestion: fe.Suggestion,
		Retryable:  fe.Retryable,
	}
	if fe.Cause != nil {
		je.Cause = fe.Cause.Error()
	}

	return json.Marshal(je)
}

// LogAttrs flattens an error into slog key-value pairs.
//
//	slog.Warn("file_skipped", errors.LogAttrs(err)...)
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var fe *FSError
	if !stderrors.As(err, &fe) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", fe.Code,
		"error", fe.Message,
		"category", string(fe.Category),
	}
	if fe.Cause != nil {
		attrs = append(attrs, "cause", fe.Cause.Error())
	}

	keys := make([]string, 0, len(fe.Details))
	for k := range fe.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, fe.Details[k])
	}
	return attrs
}
