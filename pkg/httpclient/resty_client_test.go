package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRestyClientGetSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "1", r.Header.Get("X-Test"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Get(context.Background(), srv.URL, map[string]string{"X-Test": "1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.Equal(t, `{"ok":true}`, string(resp.Body()))
}

func TestRestyClientDoPostsJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "application/json"))
		var got payload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "relay", got.Name)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewRestyClient(2 * time.Second)
	resp, err := client.Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Body:   payload{Name: "relay"},
	})
	require.NoError(t, err)
	assert.NoError(t, CheckStatus(resp))
}

func TestRestyClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewRestyClient(time.Second)
	_, err := client.Get(context.Background(), url, nil)

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.MethodGet, te.Method)
	assert.Equal(t, url, te.URL)
}

type stubResponse struct {
	body   []byte
	status int
}

func (s stubResponse) Body() []byte    { return s.body }
func (s stubResponse) StatusCode() int { return s.status }

func TestCheckStatus(t *testing.T) {
	assert.NoError(t, CheckStatus(stubResponse{status: http.StatusNoContent}))

	var se *StatusError
	err := CheckStatus(stubResponse{status: http.StatusBadRequest, body: []byte(" nope ")})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.StatusCode)
	assert.Equal(t, "nope", se.Snippet)

	err = CheckStatus(stubResponse{status: http.StatusInternalServerError, body: make([]byte, 0)})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "<empty>", se.Snippet)

	long := strings.Repeat("x", maxSnippetLen+10)
	err = CheckStatus(stubResponse{status: http.StatusBadGateway, body: []byte(long)})
	require.ErrorAs(t, err, &se)
	assert.Len(t, se.Snippet, maxSnippetLen+3)
}
