package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pc1e0/comm/common/logger"
)

const maxStackLen = 4096

// Recovery turns a panicking handler into a 500 JSON answer. The panic is
// logged under comm.http, attached to the request's gin errors, and marked on
// the request span when tracing is on.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("panic: %v", rec)
			}
			// net/http uses this panic to drop the connection on purpose.
			if errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			ctx := logger.WithLogFields(c.Request.Context(), logger.LogFields{Component: "comm.http"})
			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, "handler panicked")

			slog.ErrorContext(ctx, "handler panicked",
				"error", err,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"path", c.Request.URL.Path,
				"stack", logger.Truncate(string(debug.Stack()), maxStackLen))

			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
		}()
		c.Next()
	}
}
