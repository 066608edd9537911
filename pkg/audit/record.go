package audit

import (
	"time"
)

// Record describes one synthesis request. It is written once and never
// updated by this service.
type Record struct {
	ID                string    `json:"id"`
	RequestTime       time.Time `json:"request_time"`
	RequestText       string    `json:"request_text"`
	RequestTextLength int       `json:"request_text_length"`
	TTSResultCode     int       `json:"tts_result_code"`
	TTSDuration       float64   `json:"tts_duration"`
	TTSSize           int       `json:"tts_size"`
}
