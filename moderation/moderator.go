package moderation

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator censors chat content against a dictionary of forbidden words.
// A nil matcher means the dictionary had no usable word.
type Moderator struct {
	log         *slog.Logger
	matcher     *goahocorasick.Machine
	languages   map[string]*goahocorasick.Machine
	replacement rune
}

// Verdict is the outcome of Moderate.
type Verdict struct {
	Content string
	Words   []string
	// Language is the ISO 639-1 code of the content, empty when detection is unreliable
	Language string
}

// NewModerator builds the Aho-Corasick automaton over the folded dictionary.
// Words made only of noise fold to nothing and are ignored.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	matcher, err := build(words, log)
	if err != nil {
		return nil, err
	}
	return &Moderator{log: log, matcher: matcher, replacement: replacement}, nil
}

// NewDictionaryModerator censors with every word of dictionary and, when the
// language of the content is reliably detected, with that language's words only.
func NewDictionaryModerator(dictionary *Dictionary, replacement rune, log *slog.Logger) (*Moderator, error) {
	moderator, err := NewModerator(dictionary.Words, replacement, log)
	if err != nil {
		return nil, err
	}
	moderator.languages = make(map[string]*goahocorasick.Machine, len(dictionary.ByLanguage))
	for language, words := range dictionary.ByLanguage {
		matcher, err := build(words, log)
		if err != nil {
			return nil, err
		}
		if matcher != nil {
			moderator.languages[strings.ToLower(language)] = matcher
		}
	}
	return moderator, nil
}

func build(words []string, log *slog.Logger) (*goahocorasick.Machine, error) {
	patterns := make([][]rune, 0, len(words))
	for _, word := range words {
		folded, _ := fold([]rune(word))
		if len(folded) == 0 {
			log.Debug("Ignoring censored word without letters", "word", word)
			continue
		}
		patterns = append(patterns, folded)
	}
	if len(patterns) == 0 {
		return nil, nil
	}
	matcher := new(goahocorasick.Machine)
	if err := matcher.Build(patterns); err != nil {
		return nil, err
	}
	return matcher, nil
}

// Moderate detects the language of content and censors it with the dictionary
// of that language, or with every word when no dictionary matches.
func (m *Moderator) Moderate(content string) Verdict {
	language, matcher := m.detect(content)
	censored, words := m.censor(matcher, content)
	return Verdict{Content: censored, Words: words, Language: language}
}

// detect returns the language code when reliable and the matcher to use for it.
func (m *Moderator) detect(content string) (string, *goahocorasick.Machine) {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return "", m.matcher
	}
	code := info.Lang.Iso6391()
	// Dictionary files may be named by either ISO code or english name
	for _, key := range []string{code, info.Lang.Iso6393(), strings.ToLower(info.Lang.String())} {
		if matcher, ok := m.languages[key]; ok {
			return code, matcher
		}
	}
	return code, m.matcher
}

// Censor masks every forbidden word found in content, noise between its letters included.
// It returns the censored content and the matched words in order of appearance.
func (m *Moderator) Censor(content string) (string, []string) {
	return m.censor(m.matcher, content)
}

func (m *Moderator) censor(matcher *goahocorasick.Machine, content string) (string, []string) {
	if matcher == nil {
		return content, nil
	}
	runes := []rune(content)
	folded, positions := fold(runes)
	if len(folded) == 0 {
		return content, nil
	}

	var words []string
	for _, term := range matcher.MultiPatternSearch(folded, false) {
		first, last := term.Pos, term.Pos+len(term.Word)-1
		if first < 0 || last >= len(positions) {
			continue
		}
		for i := positions[first]; i <= positions[last]; i++ {
			runes[i] = m.replacement
		}
		words = append(words, string(term.Word))
	}
	if len(words) == 0 {
		return content, nil
	}

	m.log.Debug("Content censored", "words", len(words))
	return string(runes), words
}

// fold lowers letters, maps leet speak back to the alphabet and drops noise.
// positions[i] is the index in input of folded[i].
func fold(input []rune) (folded []rune, positions []int) {
	folded = make([]rune, 0, len(input))
	positions = make([]int, 0, len(input))
	for i, r := range input {
		r = unleet(r)
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			continue
		}
		folded = append(folded, unicode.ToLower(r))
		positions = append(positions, i)
	}
	return folded, positions
}

func unleet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	}
	return r
}
