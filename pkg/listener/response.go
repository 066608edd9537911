package listener

import (
	"log/slog"
	"net/http"

	"speechrelay.dev/pkg/metadata"
	"speechrelay.dev/pkg/object"
	"speechrelay.dev/pkg/utils"
)

// ResponseHandler writes what a HandlerFunc returned. Errors are written as
// {"error": "..."} with status 200, unless errorStatusCodes asks for the
// status of the failure class.
func ResponseHandler(errorStatusCodes bool) func(resp any, err error, writer http.ResponseWriter, request *http.Request) {
	return func(resp any, err error, writer http.ResponseWriter, request *http.Request) {
		rMeta := metadata.RequestMetadataFromCtx(request.Context())
		writer.Header().Set(metadata.HeaderRequestID, rMeta.RequestID)

		if err == nil {
			if resp == nil {
				return
			}

			if binaryResp, ok := resp.(interface {
				WriteResponse(writer http.ResponseWriter) error
			}); ok {
				if statuser, ok := resp.(interface{ GetStatus() int }); ok {
					rMeta.StatusCode = statuser.GetStatus()
				} else {
					rMeta.StatusCode = http.StatusOK
				}

				if err := binaryResp.WriteResponse(writer); err != nil {
					slog.Error("failed to write binary response", "error", err)
				}

				return
			}

			rMeta.StatusCode = http.StatusOK
			utils.WriteJSONForHTTP(http.StatusOK, resp, writer)

			return
		}

		speechErr := object.AsSpeechError(err)

		switch speechErr.Kind {
		case object.ErrorKindUpstream:
			slog.Warn("upstream returned an error",
				"request_id", rMeta.RequestID,
				"upstream_status", speechErr.UpstreamStatus.OrEmpty(),
			)
		case object.ErrorKindSystem:
			slog.Error("failed to handle request",
				"request_id", rMeta.RequestID,
				"error", speechErr.Message,
				"cause", speechErr.Cause,
			)
		case object.ErrorKindValidation:
		}

		status := http.StatusOK
		if errorStatusCodes {
			status = speechErr.GetStatus()
		}

		rMeta.StatusCode = status
		rMeta.ErrorKind = string(speechErr.Kind)
		rMeta.ErrorMessage = speechErr.Message

		utils.WriteJSONForHTTP(status, speechErr, writer)
	}
}
