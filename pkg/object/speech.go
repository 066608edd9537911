package object

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"speechrelay.dev/pkg/utils"
)

const (
	MaxRequestBodyBytes = 1 << 20

	ContentTypeWAV = "audio/x-wav"
)

type SpeechRequest struct {
	Text string `json:"text"`
}

// NewSpeechRequest decodes {"text": "..."} from the request body. An absent or
// null text field is an empty request and answers "No text provided", a text
// field of any other JSON type is a malformed one. The body must hold exactly
// one JSON value.
func NewSpeechRequest(httpRequest *http.Request) (*SpeechRequest, error) {
	if httpRequest.Body == nil {
		return nil, NewErrorInvalidBody(errors.New("request body is empty"))
	}

	defer func() { _ = httpRequest.Body.Close() }()

	var parsed map[string]any

	decoder := json.NewDecoder(io.LimitReader(httpRequest.Body, MaxRequestBodyBytes))

	err := decoder.Decode(&parsed)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewErrorInvalidBody(errors.New("request body is empty"))
		}

		return nil, NewErrorInvalidBody(fmt.Errorf("invalid JSON body: %w", err))
	}

	var trailing json.RawMessage
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, NewErrorInvalidBody(errors.New("invalid JSON body: unexpected data after top-level value"))
	}

	raw, ok := parsed["text"]
	if !ok || raw == nil {
		return &SpeechRequest{}, nil
	}

	text, ok := raw.(string)
	if !ok {
		return nil, NewErrorInvalidBody(fmt.Errorf("field text must be a string, got %T", raw))
	}

	return &SpeechRequest{Text: text}, nil
}

func (r *SpeechRequest) GetText() string {
	return strings.TrimSpace(r.Text)
}

func (r *SpeechRequest) TextLength() int {
	return utf8.RuneCountInString(r.GetText())
}

type AudioResponse struct {
	Status      int
	ContentType string
	RequestID   string
	Body        []byte
}

func NewAudioResponse(body []byte, requestID string) *AudioResponse {
	return &AudioResponse{
		Status:      http.StatusOK,
		ContentType: ContentTypeWAV,
		RequestID:   requestID,
		Body:        body,
	}
}

func (r *AudioResponse) GetStatus() int {
	if r == nil || r.Status == 0 {
		return http.StatusOK
	}

	return r.Status
}

func (r *AudioResponse) WriteResponse(writer http.ResponseWriter) error {
	if r == nil {
		return nil
	}

	return utils.WriteBytesForHTTP(r.GetStatus(), r.ContentType, r.Body, writer)
}
