package sap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type erpStub struct {
	mux *http.ServeMux

	logins   atomic.Int64
	probes   atomic.Int64
	logouts  atomic.Int64
	probeErr atomic.Bool
	loginErr atomic.Bool
}

func newERPStub() *erpStub {
	s := &erpStub{mux: http.NewServeMux()}
	s.mux.HandleFunc("POST /Login", func(w http.ResponseWriter, r *http.Request) {
		n := s.logins.Add(1)
		if s.loginErr.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":{"value":"invalid credentials"}}}`)
			return
		}
		// Distinct ids per login let tests observe re-authentication.
		json.NewEncoder(w).Encode(map[string]string{"SessionId": fmt.Sprintf("session-%d", n)})
	})
	s.mux.HandleFunc("POST /CompanyService_GetCompanyInfo", func(w http.ResponseWriter, r *http.Request) {
		s.probes.Add(1)
		if s.probeErr.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"CompanyName":"Test Co"}`)
	})
	s.mux.HandleFunc("POST /Logout", func(w http.ResponseWriter, r *http.Request) {
		s.logouts.Add(1)
	})
	return s
}

func newTestClient(t *testing.T, stub *erpStub, cfg Config) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub.mux)
	t.Cleanup(srv.Close)

	cfg.BaseURL = srv.URL
	cfg.Username = "automation"
	cfg.Password = "secret"
	cfg.CompanyDB = "TESTDB"
	if cfg.FetchRetryDelay == 0 {
		cfg.FetchRetryDelay = time.Millisecond
	}
	if cfg.PostRetryDelay == 0 {
		cfg.PostRetryDelay = time.Millisecond
	}
	return NewClient(cfg, quietLogger()), srv
}

func TestEnsureSessionReusesWithinTTL(t *testing.T) {
	stub := newERPStub()
	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	first, err := client.EnsureSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "session-1", first)
	assert.EqualValues(t, 1, stub.logins.Load())

	second, err := client.EnsureSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, stub.logins.Load(), "cached session must be reused without a second login")
	assert.EqualValues(t, 1, stub.probes.Load(), "reuse inside the TTL validates via the cheap probe")
}

func TestEnsureSessionConcurrentCallersShareOneLogin(t *testing.T) {
	stub := newERPStub()
	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := client.EnsureSession(ctx)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, stub.logins.Load(), "concurrent callers must collapse into a single login")
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestEnsureSessionProbeFailureForcesRelogin(t *testing.T) {
	stub := newERPStub()
	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	first, err := client.EnsureSession(ctx)
	require.NoError(t, err)

	stub.probeErr.Store(true)
	second, err := client.EnsureSession(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "a rejected probe must yield a fresh session")
	assert.EqualValues(t, 2, stub.logins.Load())
}

func TestEnsureSessionExpiredTTLRelogins(t *testing.T) {
	stub := newERPStub()
	client, _ := newTestClient(t, stub, Config{SessionTTL: 10 * time.Millisecond})
	ctx := context.Background()

	_, err := client.EnsureSession(ctx)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = client.EnsureSession(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stub.logins.Load())
	assert.EqualValues(t, 0, stub.probes.Load(), "an expired session is replaced without probing")
}

func TestEnsureSessionRejectedCredentials(t *testing.T) {
	stub := newERPStub()
	stub.loginErr.Store(true)
	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})

	_, err := client.EnsureSession(context.Background())
	require.Error(t, err)
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestLogoutReleasesSession(t *testing.T) {
	stub := newERPStub()
	client, _ := newTestClient(t, stub, Config{SessionTTL: time.Hour})
	ctx := context.Background()

	_, err := client.EnsureSession(ctx)
	require.NoError(t, err)

	client.Close(ctx)
	assert.EqualValues(t, 1, stub.logouts.Load())

	// The next ensure starts over with a full login.
	_, err = client.EnsureSession(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stub.logins.Load())
}
