package scraper

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCookieParams_ScopesDomainlessCookiesToFeed(t *testing.T) {
	params := cookieParams([]*http.Cookie{
		{Name: "c_user", Value: "1"},
		{Name: "xs", Value: "abc", Domain: ".facebook.com", Path: "/watch", Secure: true, HttpOnly: true},
	}, "https://www.facebook.com/watch/?ref=tab")

	require.Len(t, params, 2)
	assert.Equal(t, "c_user", params[0].Name)
	assert.Equal(t, "https://www.facebook.com/", params[0].URL)
	assert.Empty(t, params[0].Domain)
	assert.Equal(t, "/", params[0].Path)

	assert.Equal(t, ".facebook.com", params[1].Domain)
	assert.Empty(t, params[1].URL)
	assert.Equal(t, "/watch", params[1].Path)
	assert.True(t, params[1].Secure)
	assert.True(t, params[1].HTTPOnly)
}

func TestCookieParams_UnknownTarget(t *testing.T) {
	params := cookieParams([]*http.Cookie{{Name: "a", Value: "b"}}, "")
	require.Len(t, params, 1)
	assert.Empty(t, params[0].URL)
}

func TestToHeadersMap(t *testing.T) {
	m := toHeadersMap(map[string]string{"Accept-Language": "de-DE,de;q=0.9"})
	require.Contains(t, m, "Accept-Language")
	assert.Equal(t, "de-DE,de;q=0.9", m["Accept-Language"].Str())
}
