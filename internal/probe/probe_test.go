package probe

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProber_Probe(t *testing.T) {
	t.Parallel()

	const page = "<html><head><title>static</title></head><body>plain content</body></html>"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	body, err := New(Config{}).Probe(context.Background(), server.URL)
	require.NoError(t, err)
	require.Equal(t, []byte(page), body)
}

func TestProber_ProbeNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer server.Close()

	_, err := New(Config{}).Probe(context.Background(), server.URL)
	require.Error(t, err)
}

func TestProber_ProbeUnreachableHost(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}).Probe(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
}

func TestProber_ShouldPromote(t *testing.T) {
	t.Parallel()

	padding := strings.Repeat("lorem ipsum ", 300)
	tests := []struct {
		name string
		body []byte
		want bool
	}{
		{name: "empty body", body: nil, want: true},
		{name: "short body", body: []byte("<html><body>hi</body></html>"), want: true},
		{name: "next.js shell", body: []byte(`<div id="__next"></div>` + padding), want: true},
		{name: "react root", body: []byte(`<div id="root"></div>` + padding), want: true},
		{name: "vue app mount", body: []byte(`<div id="app"></div>` + padding), want: true},
		{name: "server rendered react", body: []byte(`<div data-reactroot>` + padding + `</div>`), want: true},
		{name: "long static page", body: []byte("<html><body>" + padding + "</body></html>"), want: false},
	}
	prober := New(Config{})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, prober.ShouldPromote(tt.body))
		})
	}
}

func TestProber_ExtractGeneral(t *testing.T) {
	t.Parallel()

	body := []byte(`<html>
<head>
	<title>Acme Landing</title>
	<meta name="description" content="Acme makes things">
</head>
<body>
	<h1>Welcome</h1>
	<p>We make    things.</p>
</body>
</html>`)

	fields, err := New(Config{}).ExtractGeneral(body)
	require.NoError(t, err)
	require.Equal(t, "Acme Landing", fields.Title)
	require.Equal(t, "Acme makes things", fields.Description)
	require.Equal(t, "Welcome We make things.", fields.Snippet)
}

func TestProber_ExtractGeneralTruncatesSnippet(t *testing.T) {
	t.Parallel()

	var page bytes.Buffer
	page.WriteString("<html><body>")
	page.WriteString(strings.Repeat("word ", 200))
	page.WriteString("</body></html>")

	fields, err := New(Config{SnippetLimit: 40}).ExtractGeneral(page.Bytes())
	require.NoError(t, err)
	require.Len(t, []rune(fields.Snippet), 40)
}
