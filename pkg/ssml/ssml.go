package ssml

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// Mode controls how caller text is embedded into the voice element.
type Mode string

const (
	// ModeEscape escapes XML-significant characters so caller text can not
	// alter the envelope.
	ModeEscape Mode = "escape"
	// ModePassthrough embeds the text verbatim, markup included.
	ModePassthrough Mode = "passthrough"
)

type Voice struct {
	Lang   string `yaml:"lang" json:"lang"`
	Gender string `yaml:"gender" json:"gender"`
	Name   string `yaml:"name" json:"name"`
}

var DefaultVoice = Voice{
	Lang:   "pt-BR",
	Gender: "Female",
	Name:   "pt-BR-LeilaNeural",
}

type voice struct {
	XMLName xml.Name `xml:"voice"`
	Lang    string   `xml:"lang,attr"`
	Gender  string   `xml:"gender,attr"`
	Name    string   `xml:"name,attr"`
	Text    string   `xml:",chardata"`
}

type speak struct {
	XMLName xml.Name `xml:"speak"`
	Version string   `xml:"version,attr"`
	Lang    string   `xml:"lang,attr"`
	Voice   voice    `xml:"voice"`
}

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeEscape:
		return ModeEscape, nil
	case ModePassthrough:
		return ModePassthrough, nil
	default:
		return "", fmt.Errorf("unknown ssml mode %q", s)
	}
}

func escape(text string) string {
	var sb strings.Builder

	// strings.Builder never returns a write error
	_ = xml.EscapeText(&sb, []byte(text))

	return sb.String()
}

// Build wraps text into a speak/voice envelope for the given voice.
func Build(text string, v Voice, mode Mode) string {
	if mode != ModePassthrough {
		text = escape(text)
	}

	return fmt.Sprintf(`<speak version='1.0' xml:lang='%s'>
  <voice xml:lang='%s' xml:gender='%s' name='%s'>
    %s
  </voice>
</speak>`, v.Lang, v.Lang, v.Gender, v.Name, text)
}

// Text extracts the text carried by the voice element of a speak document.
func Text(document string) (string, error) {
	var s speak

	err := xml.Unmarshal([]byte(document), &s)
	if err != nil {
		return "", fmt.Errorf("failed to parse ssml: %w", err)
	}

	return strings.TrimSpace(s.Voice.Text), nil
}

// VoiceOf returns the voice selection of a speak document.
func VoiceOf(document string) (Voice, error) {
	var s speak

	err := xml.Unmarshal([]byte(document), &s)
	if err != nil {
		return Voice{}, fmt.Errorf("failed to parse ssml: %w", err)
	}

	return Voice{
		Lang:   s.Voice.Lang,
		Gender: s.Voice.Gender,
		Name:   s.Voice.Name,
	}, nil
}
