package speech

import (
	"net/http"

	"speechrelay.dev/pkg/object"
)

func (l *SpeechListener) synthesize(_ http.ResponseWriter, request *http.Request) (any, error) {
	speechRequest, err := object.NewSpeechRequest(request)
	if err != nil {
		return nil, err
	}

	resp, err := l.service.Synthesize(request.Context(), speechRequest)
	if err != nil {
		return nil, err
	}

	return resp, nil
}
