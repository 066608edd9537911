package speech

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"speechrelay.dev/config"
	"speechrelay.dev/pkg/bootkit"
	"speechrelay.dev/pkg/listener"
	speechsvc "speechrelay.dev/pkg/speech"
)

var _ listener.Listener = (*SpeechListener)(nil)
var _ listener.Drainable = (*SpeechListener)(nil)

type SpeechListener struct {
	cfg         config.ListenerConfig
	service     *speechsvc.Service
	cancellable *listener.CancellableRequestMap

	mutex   sync.RWMutex
	drained bool
}

func NewSpeechListener(cfg config.ListenerConfig, service *speechsvc.Service, lifecycle bootkit.LifeCycle) (listener.Listener, error) {
	if service == nil {
		return nil, errors.New("speech service is required")
	}

	l := &SpeechListener{
		cfg:         cfg,
		service:     service,
		cancellable: listener.NewCancellableRequestMap(),
	}

	lifecycle.Append(bootkit.LifeCycleHook{
		OnStop: l.Drain,
	})

	return l, nil
}

func (l *SpeechListener) RegisterRoutes(mux *mux.Router) error {
	middlewares := listener.WithMiddlewares(
		listener.WithCancellable(l.cancellable),
		listener.WithInitMetadata(),
		listener.WithAccessLog(l.cfg.AccessLog),
		listener.WithRequestTimer(),
		listener.WithOptions(),
		listener.WithResponseHandler(listener.ResponseHandler(l.cfg.ErrorStatusCodes)),
		listener.WithRecoverWithError(l.cfg.ErrorStatusCodes),
		listener.WithRejectAfterDrainedWithError(l),
	)

	mux.HandleFunc("/", listener.HTTPHandlerFunc(middlewares(l.synthesize))).
		Methods(http.MethodPost, http.MethodOptions)

	return nil
}

func (l *SpeechListener) HasDrained() bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	return l.drained
}

func (l *SpeechListener) Drain(ctx context.Context) error {
	l.mutex.Lock()
	l.drained = true
	l.mutex.Unlock()

	l.cancellable.CancelAllAfterWithContext(ctx, listener.DefaultDrainWaitTime)

	return nil
}
