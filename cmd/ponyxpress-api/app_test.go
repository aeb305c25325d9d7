package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ponyxpress/ponyxpress/config"
	ponyxpressapi "github.com/ponyxpress/ponyxpress/internal/api/ponyxpress_api"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
	"github.com/ponyxpress/ponyxpress/internal/session"
	"github.com/stretchr/testify/require"
)

func TestResolveAPISettings_Defaults(t *testing.T) {
	s, err := resolveAPISettings(&config.Config{})
	require.NoError(t, err)
	require.Equal(t, ":8080", s.httpAddr)
	require.Equal(t, time.UTC, s.location)
	require.Equal(t, 12*time.Hour, s.sessionTTL)
	require.Equal(t, 3*time.Second, s.storageTimeout)
	require.Equal(t, int64(photostore.DefaultMaxBytes), s.photoMaxBytes)
	require.Equal(t, messages.TopicScanRecorded, s.scanTopic)
	require.Equal(t, messages.TopicRouteSaved, s.routeTopic)
}

func TestResolveAPISettings_FromConfig(t *testing.T) {
	s, err := resolveAPISettings(&config.Config{
		PonyXpress: config.PonyXpressConfig{
			HTTPAddr:         ":9000",
			TimeZone:         "America/Chicago",
			StorageTimeoutMS: 500,
			LoginMaxAttempts: 3,
		},
	})
	require.NoError(t, err)
	require.Equal(t, ":9000", s.httpAddr)
	require.Equal(t, "America/Chicago", s.location.String())
	require.Equal(t, 500*time.Millisecond, s.storageTimeout)
	require.Equal(t, int64(3), s.loginMaxAttempts)

	_, err = resolveAPISettings(&config.Config{PonyXpress: config.PonyXpressConfig{TimeZone: "Mars/Olympus"}})
	require.Error(t, err)
}

func TestRunPonyXpressAPI_ServesSwaggerAndStops(t *testing.T) {
	dir := t.TempDir()
	sw := filepath.Join(dir, "swagger.json")
	require.NoError(t, os.WriteFile(sw, []byte(`{"swagger":"2.0"}`), 0o600))

	sessions, err := session.NewManager("0123456789abcdef", time.Hour, false)
	require.NoError(t, err)
	handler := ponyxpressapi.New(ponyxpressapi.Deps{Sessions: sessions, SwaggerPath: sw}).Router()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		errCh <- runPonyXpressAPI(ctx, apiOpts{
			httpAddr: "127.0.0.1:0",
			onListen: func(addr string) { addrCh <- addr },
		}, handler)
	}()
	addr := <-addrCh

	resp, err := http.Get("http://" + addr + "/swagger.json")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `"swagger"`)

	resp, err = http.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + addr + "/api/me")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting server to stop")
	}
}
