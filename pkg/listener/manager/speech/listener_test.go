package speech

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speechrelay.dev/config"
	"speechrelay.dev/pkg/audit"
	"speechrelay.dev/pkg/bootkit"
	"speechrelay.dev/pkg/listener"
	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/object"
	speechsvc "speechrelay.dev/pkg/speech"
	"speechrelay.dev/pkg/ssml"
	"speechrelay.dev/pkg/types/microsoft/speechservicev1"
)

type recordingLifeCycle struct {
	hooks []bootkit.LifeCycleHook
}

func (l *recordingLifeCycle) Append(hook bootkit.LifeCycleHook) {
	l.hooks = append(l.hooks, hook)
}

type memorySink struct {
	mutex   sync.Mutex
	records []audit.Record
}

func (s *memorySink) Name() string {
	return "memory"
}

func (s *memorySink) Write(_ context.Context, record audit.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.records = append(s.records, record)

	return nil
}

func (s *memorySink) Close(context.Context) error {
	return nil
}

func (s *memorySink) Records() []audit.Record {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return append([]audit.Record(nil), s.records...)
}

type fakeUpstream struct {
	server *httptest.Server
	calls  atomic.Int32

	mutex sync.Mutex
	texts []string
}

func newFakeUpstream(t *testing.T, status int, body []byte) *fakeUpstream {
	t.Helper()

	u := &fakeUpstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)

		payload, _ := io.ReadAll(r.Body)
		text, err := ssml.Text(string(payload))
		assert.NoError(t, err)

		u.mutex.Lock()
		u.texts = append(u.texts, text)
		u.mutex.Unlock()

		w.WriteHeader(status)
		_, _ = w.Write(body)
	}))

	t.Cleanup(u.server.Close)

	return u
}

func (u *fakeUpstream) Texts() []string {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	return append([]string(nil), u.texts...)
}

type testRelay struct {
	handler  http.Handler
	listener listener.Listener
	upstream *fakeUpstream
	sink     *memorySink
	hooks    *recordingLifeCycle
}

func newTestRelay(t *testing.T, cfg config.ListenerConfig, status int, body []byte, withAudit bool) *testRelay {
	t.Helper()

	upstream := newFakeUpstream(t, status, body)

	client := speechservicev1.NewClient(speechservicev1.Config{
		Endpoint:        upstream.server.URL,
		SubscriptionKey: "test-key",
		OutputFormat:    "riff-24khz-16bit-mono-pcm",
		ContentType:     "application/ssml+xml",
	}, upstream.server.Client())

	var (
		sink     *memorySink
		recorder *audit.Recorder
	)

	if withAudit {
		sink = &memorySink{}
		recorder = audit.NewRecorder(sink, true)
	}

	hooks := &recordingLifeCycle{}

	l, err := NewSpeechListener(cfg, speechsvc.NewService(client, recorder), hooks)
	require.NoError(t, err)

	mux := listener.NewMux().Register(l, nil)

	server, err := mux.BuildServer(&http.Server{})
	require.NoError(t, err)

	return &testRelay{
		handler:  server.Handler,
		listener: l,
		upstream: upstream,
		sink:     sink,
		hooks:    hooks,
	}
}

func (r *testRelay) post(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)

	return rec
}

func TestNewSpeechListener(t *testing.T) {
	t.Parallel()

	t.Run("RegistersDrainHook", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, nil, false)
		require.Len(t, relay.hooks.hooks, 1)
		assert.Nil(t, relay.hooks.hooks[0].OnStart)
		assert.NotNil(t, relay.hooks.hooks[0].OnStop)
	})

	t.Run("MissingService", func(t *testing.T) {
		t.Parallel()

		l, err := NewSpeechListener(config.ListenerConfig{}, nil, &recordingLifeCycle{})
		require.Error(t, err)
		assert.Nil(t, l)
	})
}

func TestSpeechListener_Success(t *testing.T) {
	t.Parallel()

	audio := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x00\x01\x02")
	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, audio, false)

	rec := relay.post(`{"text": "  Olá, mundo  "}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, object.ContentTypeWAV, rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(metadata.HeaderRequestID))
	assert.Equal(t, audio, rec.Body.Bytes())

	assert.Equal(t, int32(1), relay.upstream.calls.Load())
	assert.Equal(t, []string{"Olá, mundo"}, relay.upstream.Texts())
}

func TestSpeechListener_RequestIDIsEchoed(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, []byte("audio"), false)

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"text": "Olá"}`))
	req.Header.Set(metadata.HeaderRequestID, "req-123")

	rec := httptest.NewRecorder()
	relay.handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(metadata.HeaderRequestID))
}

func TestSpeechListener_NoText(t *testing.T) {
	t.Parallel()

	bodies := map[string]string{
		"Empty":      `{"text": ""}`,
		"Whitespace": `{"text": " \t\n "}`,
		"Absent":     `{}`,
		"Null":       `{"text": null}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, []byte("audio"), true)

			rec := relay.post(body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `{"error": "No text provided"}`, rec.Body.String())
			assert.Equal(t, int32(0), relay.upstream.calls.Load())
			assert.Empty(t, relay.sink.Records())
		})
	}
}

func TestSpeechListener_UpstreamFailure(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusServiceUnavailable, []byte("busy"), false)

	rec := relay.post(`{"text": "Olá"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "Azure TTS API failed with status 503"}`, rec.Body.String())
	assert.Equal(t, int32(1), relay.upstream.calls.Load())
}

func TestSpeechListener_InvalidBody(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, []byte("audio"), false)

	rec := relay.post(`{"text": `)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid JSON body")
	assert.Equal(t, int32(0), relay.upstream.calls.Load())

	rec = relay.post(`{"text": 42}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "field text must be a string")
	assert.Equal(t, int32(0), relay.upstream.calls.Load())
}

func TestSpeechListener_ErrorStatusCodes(t *testing.T) {
	t.Parallel()

	cfg := config.ListenerConfig{ErrorStatusCodes: true}

	t.Run("Validation", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, cfg, http.StatusOK, []byte("audio"), false)
		rec := relay.post(`{"text": ""}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error": "No text provided"}`, rec.Body.String())
	})

	t.Run("Upstream", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, cfg, http.StatusUnauthorized, nil, false)
		rec := relay.post(`{"text": "Olá"}`)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.JSONEq(t, `{"error": "Azure TTS API failed with status 401"}`, rec.Body.String())
	})

	t.Run("InvalidBody", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, cfg, http.StatusOK, []byte("audio"), false)
		rec := relay.post(`not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Drained", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, cfg, http.StatusOK, []byte("audio"), false)
		require.NoError(t, relay.listener.Drain(context.Background()))

		rec := relay.post(`{"text": "Olá"}`)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSpeechListener_Audit(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()

		audio := []byte("0123456789")
		relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, audio, true)

		rec := relay.post(`{"text": "Olá"}`)
		require.Equal(t, audio, rec.Body.Bytes())

		records := relay.sink.Records()
		require.Len(t, records, 1)
		assert.NotEmpty(t, records[0].ID)
		assert.Equal(t, "Olá", records[0].RequestText)
		assert.Equal(t, 3, records[0].RequestTextLength)
		assert.Equal(t, http.StatusOK, records[0].TTSResultCode)
		assert.Equal(t, len(audio), records[0].TTSSize)
		assert.GreaterOrEqual(t, records[0].TTSDuration, 0.0)
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		t.Parallel()

		relay := newTestRelay(t, config.ListenerConfig{}, http.StatusTooManyRequests, []byte("slow down"), true)

		rec := relay.post(`{"text": "Olá"}`)
		assert.JSONEq(t, `{"error": "Azure TTS API failed with status 429"}`, rec.Body.String())

		records := relay.sink.Records()
		require.Len(t, records, 1)
		assert.Equal(t, http.StatusTooManyRequests, records[0].TTSResultCode)
		assert.Zero(t, records[0].TTSSize)
	})
}

func TestSpeechListener_Drain(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, []byte("audio"), false)
	assert.False(t, relay.listener.HasDrained())

	require.NoError(t, relay.hooks.hooks[0].Stop(context.Background()))
	assert.True(t, relay.listener.HasDrained())

	rec := relay.post(`{"text": "Olá"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"error": "service unavailable"}`, rec.Body.String())
	assert.Equal(t, int32(0), relay.upstream.calls.Load())
}

func TestSpeechListener_Methods(t *testing.T) {
	t.Parallel()

	relay := newTestRelay(t, config.ListenerConfig{}, http.StatusOK, []byte("audio"), false)

	rec := httptest.NewRecorder()
	relay.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	relay.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	assert.Equal(t, int32(0), relay.upstream.calls.Load())
}
