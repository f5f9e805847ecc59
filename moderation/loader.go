package moderation

import (
	"bufio"
	"bytes"
	"chat-hub/errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Dictionary is the result of loading the censored word files.
// Words is the union of every language, ByLanguage keeps each file apart.
type Dictionary struct {
	Words      []string
	Languages  []string
	ByLanguage map[string][]string
}

// Loader reads one "<language>.txt" file per language, one word per line.
type Loader struct {
	fs fs.FS
}

func NewLoader(f fs.FS) *Loader {
	return &Loader{fs: f}
}

// LoadAll parses every .txt file of dir into a unique, sorted word list.
func (l *Loader) LoadAll(dir string) (*Dictionary, error) {
	entries, err := fs.ReadDir(l.fs, dir)
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})
	byLanguage := make(map[string][]string)

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		language := strings.ToLower(strings.TrimSuffix(entry.Name(), ".txt"))
		languages = append(languages, language)

		data, err := fs.ReadFile(l.fs, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		// ⚠️ Scanner handles \n and \r\n, don't use strings.Split
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
				byLanguage[language] = append(byLanguage[language], line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	sort.Strings(words)

	for language, list := range byLanguage {
		byLanguage[language] = lo.Uniq(list)
		sort.Strings(byLanguage[language])
	}

	return &Dictionary{Words: words, Languages: languages, ByLanguage: byLanguage}, nil
}
