package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeaders(t *testing.T) {
	got, err := parseHeaders(
		map[string]string{"Accept-Language": "en", "X-Env": "1"},
		[]string{"Accept-Language: de-DE,de;q=0.9", "Referer:https://x/"},
	)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"Accept-Language": "de-DE,de;q=0.9",
		"X-Env":           "1",
		"Referer":         "https://x/",
	}, got)

	_, err = parseHeaders(nil, []string{"no-colon"})
	assert.Error(t, err)
	_, err = parseHeaders(nil, []string{": value"})
	assert.Error(t, err)
}

func TestParseCookies(t *testing.T) {
	cookies, err := parseCookies("c_user=1; xs=abc")
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "c_user", cookies[0].Name)
	assert.Equal(t, "abc", cookies[1].Value)

	cookies, err = parseCookies("  ")
	require.NoError(t, err)
	assert.Nil(t, cookies)

	_, err = parseCookies("bad cookie")
	assert.Error(t, err)
}
