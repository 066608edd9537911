package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func WriteJSONForHTTP(status int, resp any, writer http.ResponseWriter) {
	body, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to marshal response body", "error", err)

		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(http.StatusInternalServerError)
		_, _ = writer.Write([]byte(`{"error":"internal error"}`))

		return
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_, _ = writer.Write(body)
}

func WriteBytesForHTTP(status int, contentType string, body []byte, writer http.ResponseWriter) error {
	writer.Header().Set("Content-Type", contentType)
	writer.WriteHeader(status)
	SafeFlush(writer)

	if len(body) == 0 {
		return nil
	}

	_, err := writer.Write(body)

	return err
}

func SafeFlush(writer http.ResponseWriter) {
	flusher, ok := writer.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}
