package crawl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "bare host", input: "example.com", want: "https://example.com"},
		{name: "short link", input: "naver.me/abc123", want: "https://naver.me/abc123"},
		{name: "surrounding whitespace", input: "  example.com/path  ", want: "https://example.com/path"},
		{name: "explicit https", input: "https://example.com", want: "https://example.com"},
		{name: "explicit http preserved", input: "http://example.com", want: "http://example.com"},
		{name: "query survives", input: "example.com/a?b=c&d=e", want: "https://example.com/a?b=c&d=e"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := NormalizeURL(tc.input)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeURL_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "\t\n"} {
		_, err := NormalizeURL(input)
		require.Error(t, err)
		var invalid *InvalidInputError
		require.True(t, errors.As(err, &invalid))
	}
}
