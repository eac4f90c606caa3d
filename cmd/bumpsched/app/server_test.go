// Copyright 2023, DASH-Industry Forum. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/sleepyshows/bumpsched/cmd/bumpsched/app"
	"github.com/sleepyshows/bumpsched/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"scripts", "music", "outro", "playlists"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}
	scriptSrc := "<bump music=any>\n<card>Hello there</card>\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "scripts", "a.txt"), []byte(scriptSrc), 0o644))

	args := []string{"bumpsched", "--port", "0"}
	cfg, err := app.LoadConfig(args, root)
	require.NoError(t, err)

	require.NoError(t, logging.InitSlog(cfg.LogLevel, logging.LogDiscard))

	server, err := app.SetupServer(context.Background(), cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Router)
	defer ts.Close()

	resp, _ := testRequest(t, ts, "GET", "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "healthz")

	resp, body := testRequest(t, ts, "GET", "/api/queue", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "queue")
	assert.Contains(t, string(body), "\"length\"")

	resp, body = testRequest(t, ts, "GET", "/api/scheduler", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "scheduler")
	assert.Contains(t, string(body), "\"loaded\":false")

	// No music on disk means the lone audio script can't be composed.
	resp, _ = testRequest(t, ts, "POST", "/api/queue/pop", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "pop on empty queue")

	// No playlist document was found, so navigation has nothing to act on.
	resp, _ = testRequest(t, ts, "POST", "/api/scheduler/advance", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "advance without scheduler")
}

func testRequest(t *testing.T, ts *httptest.Server, method, path string, reqBody io.Reader) (*http.Response, []byte) {
	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp, respBody
}
