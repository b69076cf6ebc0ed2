package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/vpoguide/backend/internal/contextkeys"
	"github.com/vpoguide/backend/internal/handler"
)

// Recovery catches panics and returns a 500 error instead of crashing the server.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				reqID, _ := r.Context().Value(contextkeys.RequestID).(string)
				log.Printf("PANIC [%s] %s %s: %v\n%s", reqID, r.Method, r.URL.Path, err, debug.Stack())
				handler.JSON(w, http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
