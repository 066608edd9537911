package listener

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/nekomeowww/fo"

	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/object"
	"speechrelay.dev/pkg/utils"
)

const (
	DefaultDrainWaitTime = 10 * time.Second

	drainPollInterval = 50 * time.Millisecond
)

func WithAccessLog(enable bool) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			resp, err := next(writer, request)

			if enable {
				rMeta := metadata.RequestMetadataFromCtx(request.Context())

				attrs := []any{
					slog.String("request_id", rMeta.RequestID),
					slog.String("method", request.Method),
					slog.String("protocol", request.Proto),
					slog.String("host", request.Host),
					slog.String("uri", request.RequestURI),
					slog.String("remote_address", request.RemoteAddr),
					slog.String("x_forwarded_for", request.Header.Get("X-Forwarded-For")),
					slog.Duration("response_duration", rMeta.RespondAt.Sub(rMeta.RequestAt)),
					slog.Int("response_status", rMeta.StatusCode),
					slog.Int("text_length", rMeta.TextLength),
					slog.Int("audio_size", rMeta.AudioSize),
				}

				if rMeta.UpstreamProvider != "" {
					attrs = append(attrs,
						slog.String("upstream_provider", rMeta.UpstreamProvider),
						slog.String("upstream_request_id", rMeta.UpstreamRequestID),
						slog.Int("upstream_response_status_code", rMeta.UpstreamResponseStatusCode.OrEmpty()),
					)
				}

				if !rMeta.UpstreamRespondAt.IsZero() {
					attrs = append(attrs,
						slog.Duration("upstream_duration", rMeta.UpstreamRespondAt.Sub(rMeta.UpstreamRequestAt)),
					)
				}

				if rMeta.AuditRecordID.IsPresent() {
					attrs = append(attrs, slog.String("audit_record_id", rMeta.AuditRecordID.MustGet()))
				}

				if rMeta.ErrorKind != "" {
					attrs = append(attrs,
						slog.String("error_kind", rMeta.ErrorKind),
						slog.String("error_message", rMeta.ErrorMessage),
					)
				}

				slog.Info("", attrs...)
			}

			return resp, err
		}
	}
}

func WithInitMetadata() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			return next(writer, request.WithContext(metadata.InitMetadataContext(request)))
		}
	}
}

func WithOptions() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			if request.Method == http.MethodOptions {
				writer.WriteHeader(http.StatusNoContent)
				return nil, nil
			}

			return next(writer, request)
		}
	}
}

// WithRecoverWithError turns a panic into the same {"error": "..."} body
// every other failure gets.
func WithRecoverWithError(errorStatusCodes bool) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			defer func() {
				if r := recover(); r != nil {
					var url string
					if request != nil && request.URL != nil {
						url = request.URL.String()
					}

					slog.Error("Recovered from panic",
						slog.Any("panic", r),
						slog.String("url", url),
						slog.String("stack", string(debug.Stack())),
					)

					internalErr := object.NewErrorSystem(fmt.Errorf("%v", r))

					status := http.StatusOK
					if errorStatusCodes {
						status = internalErr.GetStatus()
					}

					rMeta := metadata.RequestMetadataFromCtx(request.Context())
					rMeta.StatusCode = status
					rMeta.ErrorKind = string(internalErr.Kind)
					rMeta.ErrorMessage = internalErr.Message

					utils.WriteJSONForHTTP(status, internalErr, writer)
				}
			}()

			return next(writer, request)
		}
	}
}

type CancellableRequestMap struct {
	mutex            sync.Mutex
	requestCancelMap map[*http.Request]context.CancelFunc
}

func NewCancellableRequestMap() *CancellableRequestMap {
	return &CancellableRequestMap{
		requestCancelMap: make(map[*http.Request]context.CancelFunc),
	}
}

func (l *CancellableRequestMap) Add(req *http.Request, cancel context.CancelFunc) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.requestCancelMap[req] = cancel
}

func (l *CancellableRequestMap) Remove(req *http.Request) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.requestCancelMap, req)
}

func (l *CancellableRequestMap) Len() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.requestCancelMap)
}

func (l *CancellableRequestMap) CancelAll() {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	for _, cancel := range l.requestCancelMap {
		cancel()
	}
}

// CancelAllAfter waits for in-flight requests to finish and cancels whatever
// is still running once timeout elapsed.
func (l *CancellableRequestMap) CancelAllAfter(timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		if l.Len() == 0 {
			return
		}

		select {
		case <-deadline.C:
			l.CancelAll()
			return
		case <-ticker.C:
		}
	}
}

func (l *CancellableRequestMap) CancelAllAfterWithContext(ctx context.Context, timeout time.Duration) {
	err := fo.Invoke0(ctx, func() error {
		l.CancelAllAfter(timeout)

		return nil
	})
	if err != nil {
		l.CancelAll()
	}
}

func WithCancellable(cancellable *CancellableRequestMap) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			ctx, cancel := context.WithCancel(request.Context())
			defer cancel()

			cancellable.Add(request, cancel)
			defer cancellable.Remove(request)

			return next(writer, request.WithContext(ctx))
		}
	}
}

func WithRejectAfterDrainedWithError(d Drainable) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			if d.HasDrained() {
				return nil, object.NewErrorServiceUnavailable()
			}

			return next(writer, request)
		}
	}
}

func WithRequestTimer() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			metadata.RequestMetadataFromCtx(request.Context()).RequestAt = time.Now()
			resp, err := next(writer, request)
			metadata.RequestMetadataFromCtx(request.Context()).RespondAt = time.Now()

			return resp, err
		}
	}
}

func WithResponseHandler(fn func(resp any, err error, writer http.ResponseWriter, request *http.Request)) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(writer http.ResponseWriter, request *http.Request) (any, error) {
			resp, err := next(writer, request)
			fn(resp, err, writer, request)

			return resp, err
		}
	}
}
