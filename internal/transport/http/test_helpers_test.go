package http

import (
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/messagely/messagely-server/internal/auth"
	"github.com/messagely/messagely-server/internal/config"
	"github.com/messagely/messagely-server/internal/messaging"
	"github.com/messagely/messagely-server/internal/store/sqlite"
)

// newTestServer builds a server over an in-memory store and returns its
// handler together with the auth service for registering fixtures.
func newTestServer(t *testing.T) (stdhttp.Handler, *auth.Service) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      24 * time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)
	messageService := messaging.New(st)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
	}

	disabledLogger := zerolog.New(io.Discard)
	server := NewServer(authService, messageService, &cfg, &disabledLogger)

	return server.Handler, authService
}

// doRequest performs a request against the handler with an optional bearer token.
func doRequest(t *testing.T, handler stdhttp.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	return resp
}
