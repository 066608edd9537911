package audit

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/types/microsoft/speechservicev1"
)

type SynthesizeFunc func(ctx context.Context) (*speechservicev1.Result, error)

// WriteError is returned by Track when a required record could not be
// persisted.
type WriteError struct {
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type Recorder struct {
	sink     Sink
	required bool

	now   func() time.Time
	newID func() string
}

func NewRecorder(sink Sink, required bool) *Recorder {
	return &Recorder{
		sink:     sink,
		required: required,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Track runs synthesize once and writes exactly one record for it, whatever
// the outcome. The id and request time are fixed before the upstream call and
// the duration only spans the call itself. A transport failure is recorded
// with result code 0.
func (r *Recorder) Track(ctx context.Context, text string, synthesize SynthesizeFunc) (*speechservicev1.Result, error) {
	record := Record{
		ID:                r.newID(),
		RequestTime:       r.now().UTC(),
		RequestText:       text,
		RequestTextLength: utf8.RuneCountInString(text),
	}

	start := r.now()
	result, callErr := synthesize(ctx)
	record.TTSDuration = max(r.now().Sub(start).Seconds(), 0)

	if result != nil {
		record.TTSResultCode = result.StatusCode
		record.TTSSize = result.Size()
	}

	rMeta := metadata.RequestMetadataFromCtx(ctx)
	rMeta.AuditRecordID = mo.Some(record.ID)

	// a caller that went away must not cost the record
	writeErr := r.sink.Write(context.WithoutCancel(ctx), record)
	if writeErr != nil {
		slog.ErrorContext(ctx, "failed to write audit record",
			slog.String("backend", r.sink.Name()),
			slog.String("id", record.ID),
			slog.Int("tts_result_code", record.TTSResultCode),
			slog.Any("error", writeErr),
		)
	}

	if callErr != nil {
		return result, callErr
	}

	if writeErr != nil && r.required {
		return result, &WriteError{ID: record.ID, Err: writeErr}
	}

	return result, nil
}
