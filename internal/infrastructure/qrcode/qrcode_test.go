package qrcode

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_URL(t *testing.T) {
	r := NewRenderer("https://api.qrserver.com/v1/create-qr-code/", 200)

	got, err := r.URL(map[string]string{"txid": "abc", "amount": "45.90"})
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "api.qrserver.com", u.Host)
	assert.Equal(t, "200x200", u.Query().Get("size"))
	assert.JSONEq(t, `{"txid":"abc","amount":"45.90"}`, u.Query().Get("data"))
}

func TestRenderer_BaseWithQuery(t *testing.T) {
	r := NewRenderer("https://qr.example.com/render?format=png", 0)

	got, err := r.URL("hello")
	require.NoError(t, err)
	assert.Equal(t, "https://qr.example.com/render?format=png&size=200x200&data=%22hello%22", got)
}

func TestRenderer_Unmarshalable(t *testing.T) {
	r := NewRenderer("https://qr.example.com/", 100)

	_, err := r.URL(make(chan int))
	assert.Error(t, err)
}
