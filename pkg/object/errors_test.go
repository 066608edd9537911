package object

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeechError_MarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *SpeechError
		expected string
		kind     ErrorKind
		status   int
	}{
		{
			name:     "NoTextProvided",
			err:      NewErrorNoTextProvided(),
			expected: `{"error":"No text provided"}`,
			kind:     ErrorKindValidation,
			status:   http.StatusBadRequest,
		},
		{
			name:     "UpstreamStatus",
			err:      NewErrorUpstreamStatus(http.StatusServiceUnavailable),
			expected: `{"error":"Azure TTS API failed with status 503"}`,
			kind:     ErrorKindUpstream,
			status:   http.StatusBadGateway,
		},
		{
			name:     "System",
			err:      NewErrorSystem(errors.New("dial tcp: connection refused")),
			expected: `{"error":"dial tcp: connection refused"}`,
			kind:     ErrorKindSystem,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "SystemWithoutCause",
			err:      NewErrorSystem(nil),
			expected: `{"error":"internal error"}`,
			kind:     ErrorKindSystem,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := json.Marshal(tt.err)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(body))
			assert.Equal(t, tt.kind, tt.err.GetKind())
			assert.Equal(t, tt.status, tt.err.GetStatus())
		})
	}
}

func TestSpeechError_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var speechErr SpeechError

	require.NoError(t, json.Unmarshal([]byte(`{"error":"No text provided"}`), &speechErr))
	assert.Equal(t, "No text provided", speechErr.Message)
}

func TestAsSpeechError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AsSpeechError(nil))

	upstream := NewErrorUpstreamStatus(http.StatusTooManyRequests)
	wrapped := fmt.Errorf("synthesize: %w", upstream)

	assert.Same(t, upstream, AsSpeechError(wrapped))
	assert.Equal(t, http.StatusTooManyRequests, upstream.UpstreamStatus.MustGet())

	cause := errors.New("boom")
	converted := AsSpeechError(cause)
	assert.Equal(t, ErrorKindSystem, converted.Kind)
	assert.Equal(t, "boom", converted.Message)
	require.ErrorIs(t, converted, cause)
}
