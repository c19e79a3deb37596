package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestLoadSpec(t *testing.T) {
	spec, err := LoadSpec()
	require.NoError(t, err)
	require.NotNil(t, spec.Info)
	assert.Equal(t, "0.1.0", spec.Info.Version)
	for _, path := range []string{"/documents", "/documents/{id}/commands", "/documents/{id}/drop", "/documents/{id}/events"} {
		assert.NotNil(t, spec.Paths.Find(path), path)
	}
}

func TestServer_ServesSpec(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/yaml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = do(t, s, "GET", "/swagger", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "url: '/openapi.yaml'")

	w = do(t, s, "GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"api_version":"0.1.0"`)
}

func TestServer_ValidatesRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		target string
		body   string
	}{
		{"Envelope Without Type", "POST", "/documents/doc/commands", `{"payload":{}}`},
		{"Payload Not An Object", "POST", "/documents/doc/commands", `{"type":"InsertNode","payload":[1]}`},
		{"Empty Batch", "POST", "/documents/doc/commands", `[]`},
		{"Drop Position", "POST", "/documents/doc/drop", `{"node":"n1","target":"n1","position":"sideways"}`},
		{"Drop Missing Target", "POST", "/documents/doc/drop", `{"node":"n1","position":"inside"}`},
		{"Drop Negative Index", "POST", "/documents/doc/drop", `{"node":"n1","target":"n1","position":"inside","index":-2}`},
		{"Numeric Document ID", "POST", "/documents", `{"id":5}`},
		{"Document Without Root", "PUT", "/documents/doc", `{"version":1,"nodes":{},"slots":{}}`},
		{"Unknown Format", "GET", "/documents/doc?format=xml", ""},
		{"Unknown Watch Kind", "GET", "/documents/doc/events?watch=bogus", ""},
		{"Missing Drop Zone Node", "GET", "/documents/doc/dropzones", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "Invalid request")
		})
	}

	w := do(t, s, "GET", "/documents/doc/history", "")
	assert.JSONEq(t, `{"can_undo":false,"can_redo":false}`, w.Body.String(), "rejected requests never reach the editor")

	w = doJSON(t, s, "POST", "/documents/doc/commands", insertText)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decodeEdit(t, w).History.CanUndo)

	w = doJSON(t, s, "POST", "/documents/doc/commands", `[`+insertText+`]`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, s, "GET", "/documents/doc/graph?changed=n1,n3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "class n1 changed;")
	assert.Contains(t, w.Body.String(), "class n3 changed;")
}
