package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// DebugSessionEvent logs one copilot session event at debug level. Wired as
// a session handler so streaming activity shows up under --debug without
// touching the completion path.
func DebugSessionEvent(event copilot.SessionEvent) {
	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}

	attrs := []any{
		"type", event.Type,
	}

	attrs = appendAttr(attrs, "content", event.Data.Content)
	attrs = appendAttr(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = appendAttr(attrs, "toolName", event.Data.ToolName)
	attrs = appendAttr(attrs, "toolResult", event.Data.Result)
	attrs = appendAttr(attrs, "toolCallID", event.Data.ToolCallID)
	attrs = appendAttr(attrs, "reasoningText", event.Data.ReasoningText)

	slog.Debug("copilot session event", attrs...)
}

// appendAttr adds the attribute only when the value is present.
func appendAttr[T any](attrs []any, name string, v *T) []any {
	if v == nil {
		return attrs
	}

	return append(attrs, name, *v)
}
