package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHTTPDispatcher_PostsJSON(t *testing.T) {
	var gotPath string
	var got Email
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL+"/", 0)
	err := d.SendEmail(context.Background(), Email{To: "host@example.com", Template: "host_approved", Data: map[string]any{"name": "Ana"}})
	require.NoError(t, err)
	assert.Equal(t, "/email", gotPath)
	assert.Equal(t, "host@example.com", got.To)
	assert.Equal(t, "Ana", got.Data["name"])
}

func TestHTTPDispatcher_NonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewHTTPDispatcher(srv.URL, 0).SendPush(context.Background(), Push{UserID: "h1", Title: "t"})
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestHTTPDispatcher_ThrottleHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	d := NewHTTPDispatcher(srv.URL, 0.001)
	require.NoError(t, d.SendPush(context.Background(), Push{UserID: "h1"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, d.SendPush(ctx, Push{UserID: "h1"}))
}

func TestLogDispatcher_Logs(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	d := LogDispatcher{Logger: zap.New(core)}
	require.NoError(t, d.SendEmail(context.Background(), Email{To: "a@b.c", Template: "x"}))
	require.NoError(t, d.SendPush(context.Background(), Push{UserID: "u"}))
	assert.Equal(t, 2, logs.Len())
}
