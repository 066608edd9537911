package listener

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

type Drainable interface {
	Drain(ctx context.Context) error
	HasDrained() bool
}

type Listener interface {
	Drainable

	RegisterRoutes(mux *mux.Router) error
}

// HandlerFunc returns what should be written instead of writing it, so that
// middlewares can observe the outcome.
type HandlerFunc func(writer http.ResponseWriter, request *http.Request) (any, error)

type Middleware func(next HandlerFunc) HandlerFunc

// WithMiddlewares chains middlewares, the first one being the outermost.
func WithMiddlewares(middlewares ...Middleware) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

func HTTPHandlerFunc(fn HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		_, _ = fn(writer, request)
	}
}
