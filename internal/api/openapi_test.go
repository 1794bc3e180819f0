package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocument_Validates(t *testing.T) {
	doc := Document()
	require.NoError(t, doc.Validate(context.Background()))

	for _, path := range []string{
		"/api/dependencies",
		"/api/dependencies/{file}",
		"/api/affected/{file}",
		"/api/query",
		"/api/analyze",
		"/api/build-graph",
		"/api/history",
		"/api/risk-summary",
		"/health",
	} {
		assert.NotNil(t, doc.Paths.Find(path), path)
	}
}

func TestDocument_ServedAndReloadable(t *testing.T) {
	s := newTestServer(t, newFakeService(), Options{})
	w := do(t, s, http.MethodGet, "/api/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Equal(t, "3.0.3", raw["openapi"])

	loaded, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, loaded.Validate(context.Background()))

	analyze := loaded.Paths.Find("/api/analyze")
	require.NotNil(t, analyze)
	assert.NotNil(t, analyze.Post.Responses.Status(http.StatusConflict))
}
