package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "https://m.place.naver.com/place/12345/home", want: "m.place.naver.com"},
		{raw: "http://Example.COM/path", want: "example.com"},
		{raw: "https://instagram.com?hl=en", want: "instagram.com"},
		{raw: "naver.me/abc123", want: "naver.me"},
		{raw: "https://example.com#frag", want: "example.com"},
		{raw: "example.com", want: "example.com"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, hostOf(tt.raw))
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	require.Equal(t, 2, cfg.MaxParallel)
	require.Equal(t, 45*time.Second, cfg.NavTimeout)

	custom := Config{MaxParallel: 8, NavTimeout: time.Second}.withDefaults()
	require.Equal(t, 8, custom.MaxParallel)
	require.Equal(t, time.Second, custom.NavTimeout)
}

func TestWaitDomainBudget(t *testing.T) {
	t.Parallel()

	m := &Manager{cfg: Config{DomainQPS: 1000}}

	// Distinct hosts get independent limiters; same host reuses one.
	require.NoError(t, m.waitDomainBudget(context.Background(), "https://a.example.com/x"))
	require.NoError(t, m.waitDomainBudget(context.Background(), "https://b.example.com/y"))
	require.NoError(t, m.waitDomainBudget(context.Background(), "https://a.example.com/z"))

	limiters := 0
	m.domainLimiters.Range(func(_, _ any) bool {
		limiters++
		return true
	})
	require.Equal(t, 2, limiters)
}

func TestWaitDomainBudgetDisabled(t *testing.T) {
	t.Parallel()

	m := &Manager{cfg: Config{}}
	require.NoError(t, m.waitDomainBudget(context.Background(), "https://example.com"))

	limiters := 0
	m.domainLimiters.Range(func(_, _ any) bool {
		limiters++
		return true
	})
	require.Zero(t, limiters)
}

func TestWaitDomainBudgetHonorsContext(t *testing.T) {
	t.Parallel()

	m := &Manager{cfg: Config{DomainQPS: 0.001}}
	// Burn the single burst token first.
	require.NoError(t, m.waitDomainBudget(context.Background(), "https://slow.example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, m.waitDomainBudget(ctx, "https://slow.example.com"))
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	cancels := 0
	releases := 0
	s := &session{
		tabCancel: func() { cancels++ },
		release:   func() { releases++ },
	}

	s.close()
	s.close()
	s.close()

	require.Equal(t, 1, cancels)
	require.Equal(t, 1, releases)
}
