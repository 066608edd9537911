package ssml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("DefaultVoice", func(t *testing.T) {
		t.Parallel()

		doc := Build("Olá", DefaultVoice, ModeEscape)
		assert.Contains(t, doc, "<speak version='1.0' xml:lang='pt-BR'>")
		assert.Contains(t, doc, "<voice xml:lang='pt-BR' xml:gender='Female' name='pt-BR-LeilaNeural'>")
		assert.Contains(t, doc, "Olá")

		text, err := Text(doc)
		require.NoError(t, err)
		assert.Equal(t, "Olá", text)

		v, err := VoiceOf(doc)
		require.NoError(t, err)
		assert.Equal(t, DefaultVoice, v)
	})

	t.Run("EscapesMarkup", func(t *testing.T) {
		t.Parallel()

		input := `a < b & "c" </voice><voice name='evil'>`

		doc := Build(input, DefaultVoice, ModeEscape)
		assert.NotContains(t, doc, "<voice name='evil'>")

		text, err := Text(doc)
		require.NoError(t, err)
		assert.Equal(t, input, text)

		v, err := VoiceOf(doc)
		require.NoError(t, err)
		assert.Equal(t, "pt-BR-LeilaNeural", v.Name)
	})

	t.Run("Passthrough", func(t *testing.T) {
		t.Parallel()

		input := `Olá <break time="500ms"/> mundo`

		doc := Build(input, DefaultVoice, ModePassthrough)
		assert.Contains(t, doc, input)
	})

	t.Run("CustomVoice", func(t *testing.T) {
		t.Parallel()

		doc := Build("hello", Voice{Lang: "en-US", Gender: "Male", Name: "en-US-ChristopherNeural"}, ModeEscape)

		v, err := VoiceOf(doc)
		require.NoError(t, err)
		assert.Equal(t, "en-US", v.Lang)
		assert.Equal(t, "Male", v.Gender)
		assert.Equal(t, "en-US-ChristopherNeural", v.Name)
	})
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected Mode
		wantErr  bool
	}{
		{input: "", expected: ModeEscape},
		{input: "escape", expected: ModeEscape},
		{input: " Passthrough ", expected: ModePassthrough},
		{input: "raw", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			mode, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}
