package metadata

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

const HeaderRequestID = "X-Request-Id"

type contextKey struct{}

// RequestMetadata is filled in while a request travels through the listener
// and read back by the access log.
type RequestMetadata struct {
	RequestID string
	RequestAt time.Time
	RespondAt time.Time

	TextLength int

	UpstreamProvider           string
	UpstreamRequestAt          time.Time
	UpstreamRespondAt          time.Time
	UpstreamResponseStatusCode mo.Option[int]
	UpstreamRequestID          string
	AudioSize                  int

	AuditRecordID mo.Option[string]

	StatusCode   int
	ErrorKind    string
	ErrorMessage string
}

func NewRequestMetadata(request *http.Request) *RequestMetadata {
	var requestID string
	if request != nil {
		requestID = request.Header.Get(HeaderRequestID)
	}

	return &RequestMetadata{
		RequestID:                  lo.CoalesceOrEmpty(requestID, uuid.NewString()),
		UpstreamResponseStatusCode: mo.None[int](),
		AuditRecordID:              mo.None[string](),
	}
}

func InitMetadataContext(request *http.Request) context.Context {
	return context.WithValue(request.Context(), contextKey{}, NewRequestMetadata(request))
}

// RequestMetadataFromCtx never returns nil, a throwaway value is handed out
// when the context carries none.
func RequestMetadataFromCtx(ctx context.Context) *RequestMetadata {
	rMeta, ok := ctx.Value(contextKey{}).(*RequestMetadata)
	if !ok || rMeta == nil {
		return NewRequestMetadata(nil)
	}

	return rMeta
}
