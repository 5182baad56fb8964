package crawl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		hint Platform
		want Platform
	}{
		{name: "hint wins", url: "https://example.com", hint: PlatformNaverPlace, want: PlatformNaverPlace},
		{name: "unknown hint ignored", url: "https://example.com", hint: Platform("tiktok"), want: PlatformGeneral},
		{name: "naver short link", url: "https://naver.me/abc123", want: PlatformNaverPlace},
		{name: "naver place mobile", url: "https://m.place.naver.com/restaurant/1234/home", want: PlatformNaverPlace},
		{name: "instagram profile", url: "https://www.instagram.com/somecafe", want: PlatformInstagram},
		{name: "plain page", url: "https://example.com/about", want: PlatformGeneral},
		{name: "unparseable falls back", url: "https://%zz", want: PlatformGeneral},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Classify(tc.url, tc.hint))
		})
	}
}
