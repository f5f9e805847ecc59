package moderation

import (
	"chat-hub/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestLoader_LoadAll(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("badger\r\nsnake\n\n")},
		"censored/fr.txt":    {Data: []byte("  blaireau \nbadger\n")},
		"censored/README.md": {Data: []byte("not a dictionary")},
	}

	dictionary, err := NewLoader(files).LoadAll("censored")
	req.NoError(err)

	// Then words are trimmed, unique and sorted
	req.Equal([]string{"badger", "blaireau", "snake"}, dictionary.Words)
	req.Equal([]string{"en", "fr"}, dictionary.Languages)
	req.Equal(map[string][]string{
		"en": {"badger", "snake"},
		"fr": {"badger", "blaireau"},
	}, dictionary.ByLanguage)
}

func TestLoader_LoadAll_Empty(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n  \n")},
	}

	_, err := NewLoader(files).LoadAll("censored")
	req.ErrorIs(err, errors.ErrEmptyWords)

	_, err = NewLoader(files).LoadAll("missing")
	req.Error(err)
}
