package speech

import (
	"context"
	"time"

	"github.com/samber/mo"

	"speechrelay.dev/pkg/audit"
	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/object"
	"speechrelay.dev/pkg/types/microsoft/speechservicev1"
)

type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) (*speechservicev1.Result, error)
}

var _ Synthesizer = (*speechservicev1.Client)(nil)

type Service struct {
	synthesizer Synthesizer
	recorder    *audit.Recorder
}

// NewService builds the relay. A nil recorder disables auditing.
func NewService(synthesizer Synthesizer, recorder *audit.Recorder) *Service {
	return &Service{
		synthesizer: synthesizer,
		recorder:    recorder,
	}
}

func (s *Service) synthesize(ctx context.Context, text string) (*speechservicev1.Result, error) {
	rMeta := metadata.RequestMetadataFromCtx(ctx)
	rMeta.UpstreamProvider = s.synthesizer.Name()
	rMeta.UpstreamRequestAt = time.Now()

	result, err := s.synthesizer.Synthesize(ctx, text)

	rMeta.UpstreamRespondAt = time.Now()

	if result != nil {
		rMeta.UpstreamResponseStatusCode = mo.Some(result.StatusCode)
		rMeta.UpstreamRequestID = result.RequestID
	}

	return result, err
}

// Synthesize validates the request, calls the upstream once and maps its
// answer. Every returned error is an *object.SpeechError.
func (s *Service) Synthesize(ctx context.Context, req *object.SpeechRequest) (*object.AudioResponse, error) {
	rMeta := metadata.RequestMetadataFromCtx(ctx)

	text := req.GetText()
	rMeta.TextLength = req.TextLength()

	if text == "" {
		return nil, object.NewErrorNoTextProvided()
	}

	var (
		result *speechservicev1.Result
		err    error
	)

	if s.recorder != nil {
		result, err = s.recorder.Track(ctx, text, func(ctx context.Context) (*speechservicev1.Result, error) {
			return s.synthesize(ctx, text)
		})
	} else {
		result, err = s.synthesize(ctx, text)
	}

	if err != nil {
		return nil, object.NewErrorSystem(err)
	}

	if !result.OK() {
		return nil, object.NewErrorUpstreamStatus(result.StatusCode)
	}

	rMeta.AudioSize = len(result.Audio)

	return object.NewAudioResponse(result.Audio, rMeta.RequestID), nil
}
