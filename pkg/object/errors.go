package object

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

type ErrorKind string

const (
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindUpstream   ErrorKind = "upstream"
	ErrorKindSystem     ErrorKind = "system"
)

var _ error = (*SpeechError)(nil)

// SpeechError is the only error type that crosses the listener boundary. Kind
// tells the response handler which failure class it is looking at, Message is
// what the caller sees in {"error": "..."}.
type SpeechError struct {
	Kind           ErrorKind      `json:"-"`
	Status         int            `json:"-"`
	UpstreamStatus mo.Option[int] `json:"-"`
	Message        string         `json:"error"`
	Cause          error          `json:"-"`
}

func (e *SpeechError) Error() string {
	return e.Message
}

func (e *SpeechError) Unwrap() error {
	return e.Cause
}

func (e *SpeechError) GetKind() ErrorKind {
	return e.Kind
}

func (e *SpeechError) GetStatus() int {
	return e.Status
}

func (e *SpeechError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		"error": e.Message,
	})
}

func (e *SpeechError) UnmarshalJSON(data []byte) error {
	var parsed map[string]any

	err := json.Unmarshal(data, &parsed)
	if err != nil {
		return err
	}

	msg, ok := parsed["error"].(string)
	if ok {
		e.Message = msg
	}

	return nil
}

func NewErrorNoTextProvided() *SpeechError {
	return &SpeechError{
		Kind:    ErrorKindValidation,
		Status:  http.StatusBadRequest,
		Message: "No text provided",
	}
}

func NewErrorUpstreamStatus(statusCode int) *SpeechError {
	return &SpeechError{
		Kind:           ErrorKindUpstream,
		Status:         http.StatusBadGateway,
		UpstreamStatus: mo.Some(statusCode),
		Message:        fmt.Sprintf("Azure TTS API failed with status %d", statusCode),
	}
}

func NewErrorInvalidBody(err error) *SpeechError {
	return &SpeechError{
		Kind:    ErrorKindSystem,
		Status:  http.StatusBadRequest,
		Message: lo.Must(lo.Coalesce(err, errors.New("invalid request body"))).Error(),
		Cause:   err,
	}
}

func NewErrorSystem(err error) *SpeechError {
	return &SpeechError{
		Kind:    ErrorKindSystem,
		Status:  http.StatusInternalServerError,
		Message: lo.Must(lo.Coalesce(err, errors.New("internal error"))).Error(),
		Cause:   err,
	}
}

func NewErrorServiceUnavailable() *SpeechError {
	return &SpeechError{
		Kind:    ErrorKindSystem,
		Status:  http.StatusServiceUnavailable,
		Message: "service unavailable",
	}
}

// AsSpeechError unwraps err into a SpeechError, falling back to the system
// kind for anything that was never classified.
func AsSpeechError(err error) *SpeechError {
	if err == nil {
		return nil
	}

	var speechErr *SpeechError
	if errors.As(err, &speechErr) {
		return speechErr
	}

	return NewErrorSystem(err)
}
