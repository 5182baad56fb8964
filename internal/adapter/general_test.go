package adapter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneral_Extract(t *testing.T) {
	t.Parallel()

	dom := &fakeDOM{
		title: "Acme Landing",
		texts: map[string]string{
			"body": "  Welcome to   Acme.\n\nWe make things.  ",
		},
		attrs: map[string]string{
			generalDescriptionMeta + "@content": "Acme makes things",
		},
	}

	fields, err := NewGeneral().Extract(context.Background(), dom)
	require.NoError(t, err)
	require.NotNil(t, fields.General)

	general := fields.General
	require.Equal(t, "Acme Landing", general.Title)
	require.Equal(t, "Acme makes things", general.Description)
	require.Equal(t, "Welcome to Acme. We make things.", general.Snippet)
}

func TestGeneral_MissingPiecesAreEmptyNotErrors(t *testing.T) {
	t.Parallel()

	fields, err := NewGeneral().Extract(context.Background(), &fakeDOM{})
	require.NoError(t, err)

	general := fields.General
	require.Empty(t, general.Title)
	require.Empty(t, general.Description)
	require.Empty(t, general.Snippet)
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "short text kept", text: "hello world", limit: 300, want: "hello world"},
		{name: "whitespace collapsed", text: "a\t b\n\nc", limit: 300, want: "a b c"},
		{name: "truncated at limit", text: strings.Repeat("x", 400), limit: 300, want: strings.Repeat("x", 300)},
		{name: "multibyte runes counted once", text: strings.Repeat("한", 10), limit: 5, want: strings.Repeat("한", 5)},
		{name: "empty", text: "   ", limit: 300, want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Snippet(tt.text, tt.limit))
		})
	}
}
