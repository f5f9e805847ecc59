package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	mod, err := NewModerator(words, '*', logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return mod
}

func TestModerator_Censor(t *testing.T) {
	mod := newTestModerator(t, "spam", "scam", "idiot")

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{name: "plain word", input: "this is spam", expected: "this is ****", words: []string{"spam"}},
		{name: "leet speak", input: "Sp4m and $c4m", expected: "**** and ****", words: []string{"spam", "scam"}},
		{name: "punctuation inside the word", input: "I.D.I.O.T?", expected: "*********?", words: []string{"idiot"}},
		{name: "split by a space", input: "sp am", expected: "*****", words: []string{"spam"}},
		{name: "multibyte runes keep their place", input: "déjà vu spam", expected: "déjà vu ****", words: []string{"spam"}},
		{name: "clean content", input: "see you tomorrow", expected: "see you tomorrow"},
		{name: "empty content", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
		})
	}
}

func TestModerator_Noise_Words_Are_Skipped(t *testing.T) {
	req := require.New(t)

	// Given a dictionary with words made only of noise
	mod := newTestModerator(t, "...", "", "spam")

	// Then real words are still censored
	content, words := mod.Censor("no spam please")
	req.Equal("no **** please", content)
	req.Equal([]string{"spam"}, words)

	// Then the noise itself is left alone
	content, words = mod.Censor("well ...")
	req.Equal("well ...", content)
	req.Nil(words)
}

func TestModerator_Empty_Dictionary(t *testing.T) {
	req := require.New(t)

	// Given no usable word
	mod := newTestModerator(t, "...", "")

	// Then nothing is censored
	content, words := mod.Censor("spam spam spam")
	req.Equal("spam spam spam", content)
	req.Nil(words)
}

func newDictionaryModerator(t *testing.T) *Moderator {
	t.Helper()
	dictionary := &Dictionary{
		Words: []string{"con", "crap"},
		ByLanguage: map[string][]string{
			"fr": {"con"},
			"en": {"crap"},
		},
	}
	mod, err := NewDictionaryModerator(dictionary, '*', logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return mod
}

func TestModerator_Moderate_Prefers_Content_Language(t *testing.T) {
	req := require.New(t)
	mod := newDictionaryModerator(t)

	// Given english content where a french word hides inside english ones
	input := "We will continue reading the contract tomorrow morning because this crap is not finished yet"

	// When the content is moderated
	verdict := mod.Moderate(input)

	// Then only the english dictionary applies
	req.Equal("en", verdict.Language)
	req.Equal([]string{"crap"}, verdict.Words)
	req.Equal("We will continue reading the contract tomorrow morning because this **** is not finished yet", verdict.Content)

	// And the plain Censor still uses every word
	_, words := mod.Censor(input)
	req.Contains(words, "con")
}

func TestModerator_Moderate_Falls_Back_To_Every_Word(t *testing.T) {
	req := require.New(t)
	mod := newDictionaryModerator(t)

	// Given german content and no german dictionary
	verdict := mod.Moderate("Der Vertrag ist leider crap und wir müssen morgen noch einmal gemeinsam darüber sprechen")

	// Then the union of every language is used
	req.Equal("de", verdict.Language)
	req.Equal([]string{"crap"}, verdict.Words)
}

func TestModerator_Moderate_Without_Languages(t *testing.T) {
	req := require.New(t)
	mod := newTestModerator(t, "spam")

	verdict := mod.Moderate("no spam please")
	req.Equal("no **** please", verdict.Content)
	req.Equal([]string{"spam"}, verdict.Words)
}
