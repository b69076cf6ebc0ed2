// Package logutil formats business events as single key=value log lines.
package logutil

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/vpoguide/backend/internal/contextkeys"
)

// Event logs "[MODULE] action=... k=v ...". kv is read in pairs; a trailing
// key without a value is logged with an empty value.
func Event(module, action string, kv ...any) {
	log.Print(Format(module, action, kv...))
}

// EventCtx is Event with the request id taken from ctx.
func EventCtx(ctx context.Context, module, action string, kv ...any) {
	if id, ok := ctx.Value(contextkeys.RequestID).(string); ok && id != "" {
		kv = append([]any{"request_id", id}, kv...)
	}
	Event(module, action, kv...)
}

// Format renders the line Event would log.
func Format(module, action string, kv ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] action=%s", strings.ToUpper(module), action)
	for i := 0; i < len(kv); i += 2 {
		var v any = ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		fmt.Fprintf(&b, " %v=%s", kv[i], quote(fmt.Sprint(v)))
	}
	return b.String()
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return fmt.Sprintf("%q", s)
	}
	return s
}
