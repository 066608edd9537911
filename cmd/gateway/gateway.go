package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/samber/lo"

	"speechrelay.dev/config"
	"speechrelay.dev/pkg/audit"
	"speechrelay.dev/pkg/bootkit"
	"speechrelay.dev/pkg/listener"
	speechlistener "speechrelay.dev/pkg/listener/manager/speech"
	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/speech"
	"speechrelay.dev/pkg/ssml"
	"speechrelay.dev/pkg/types/microsoft/speechservicev1"
)

func NewSpeechService(cfg config.SpeechConfig, auditCfg config.AuditConfig, lifecycle bootkit.LifeCycle) (*speech.Service, error) {
	mode, err := ssml.ParseMode(cfg.SSMLMode)
	if err != nil {
		return nil, err
	}

	client := speechservicev1.NewClient(speechservicev1.Config{
		Endpoint:        cfg.Endpoint,
		SubscriptionKey: cfg.Key,
		OutputFormat:    cfg.OutputFormat,
		ContentType:     cfg.ContentType,
		Voice: ssml.Voice{
			Lang:   cfg.Voice.Lang,
			Gender: cfg.Voice.Gender,
			Name:   cfg.Voice.Name,
		},
		Mode:    mode,
		Timeout: cfg.Timeout,
	}, nil)

	sink, err := audit.NewSinkFromConfig(auditCfg, lifecycle)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit sink: %w", err)
	}

	var recorder *audit.Recorder
	if sink != nil {
		recorder = audit.NewRecorder(sink, auditCfg.IsRequired())
	}

	return speech.NewService(client, recorder), nil
}

func corsHandler(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: lo.Ternary(len(cfg.AllowedOrigins) == 0, []string{"*"}, cfg.AllowedOrigins),
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{metadata.HeaderRequestID},
	})
}

func StartGateway(_ context.Context, lifecycle bootkit.LifeCycle, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("no configuration provided")
	}

	listenerAddr := lo.CoalesceOrEmpty(cfg.Listener.Address, ":8000")

	service, err := NewSpeechService(cfg.Speech, cfg.Audit, lifecycle)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", listenerAddr)
	if err != nil {
		return err
	}

	var server *http.Server

	// appended before the listener so that on stop the listener drains
	// first and the server shuts down afterwards
	lifecycle.Append(bootkit.LifeCycleHook{
		OnStart: func(ctx context.Context) error {
			if server == nil {
				return nil
			}

			slog.Info("Starting gateway ...", "addr", ln.Addr().String())

			err := server.Serve(ln)
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if server == nil {
				return nil
			}

			slog.Info("Stopping gateway ...")

			err := server.Shutdown(ctx)
			if err != nil {
				return err
			}

			slog.Info("Gateway stopped gracefully.")

			return nil
		},
	})

	mux := listener.NewMux()
	mux.Register(speechlistener.NewSpeechListener(cfg.Listener, service, lifecycle))

	if cfg.Listener.CORS.Enable {
		mux.Use(corsHandler(cfg.Listener.CORS))
	}

	server, err = mux.BuildServer(&http.Server{Addr: listenerAddr, ReadHeaderTimeout: time.Minute})
	if err != nil {
		_ = ln.Close()
		return err
	}

	return nil
}
