package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZerologMiddleware(t *testing.T) {
	require.NoError(t, InitSlog("DEBUG", LogDiscard))
	lg := LoggerWithTopic("http")

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	ts := httptest.NewServer(ZerologMiddleware(lg)(mux))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/ok")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A panicking handler is recovered and reported as a 500.
	resp, err = http.Get(ts.URL + "/panic")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestGetRequestIDFallback(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Equal(t, "-", GetRequestID(r))
}
