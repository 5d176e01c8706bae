package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/goliatone/cinebase/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggingContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(LoggingContext(zap.New(core)))
	r.Get("/movies/{id}", func(w http.ResponseWriter, r *http.Request) {
		logging.L(r.Context()).Info("handling")
		w.Header().Set("X-Cache", "HIT")
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	handling := logs.FilterMessage("handling").All()
	require.Len(t, handling, 1)
	fields := handling[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/movies/42", fields["path"])
	assert.NotEmpty(t, fields["request_id"])

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	assert.EqualValues(t, http.StatusOK, completed[0].ContextMap()["status"])
	assert.Equal(t, "HIT", completed[0].ContextMap()["cache_result"])
}

func TestRecoverer(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)

	h := LoggingContext(zap.New(core))(Recoverer()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal_server_error")
	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestTimeout(t *testing.T) {
	slow := Timeout(10 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	rec := httptest.NewRecorder()
	slow.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	fast := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec = httptest.NewRecorder()
	fast.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Error(t, readErr)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
	assert.NoError(t, readErr)
}
