package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBodiesEqualIgnoresVolatileKeys(t *testing.T) {
	ignored := parseIgnored("meta, generatedAt")
	a := []byte(`{"data":{"totalLaws":3,"generatedAt":"2024-03-15T09:00:00Z"},"meta":{"request_id":"a"}}`)
	b := []byte(`{"data":{"totalLaws":3.0,"generatedAt":"2024-03-15T09:00:05Z"},"meta":{"request_id":"b"}}`)
	assert.True(t, bodiesEqual(a, b, ignored))

	c := []byte(`{"data":{"totalLaws":4}}`)
	assert.False(t, bodiesEqual(a, c, ignored))
	assert.False(t, bodiesEqual([]byte("not json"), c, ignored))
}

func TestLoadTargets(t *testing.T) {
	targets, err := loadTargets(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, defaultTargets, targets)

	path := filepath.Join(t.TempDir(), "targets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"targets":[{"method":"PUT","path":"/api/law-amendments/1/status"}]}`), 0o600))
	_, err = loadTargets(path)
	assert.Error(t, err)
}

func TestCompareTargetReportsDiff(t *testing.T) {
	baseline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"1","status":"REVIEW"}]}`))
	}))
	defer baseline.Close()
	candidate := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":"1","status":"COMPLETED"}]}`))
	}))
	defer candidate.Close()

	tgt := target{Method: http.MethodGet, Path: "api/law-amendments", Critical: true}
	comp := compareTarget(baseline.Client(), baseline.URL, candidate.URL, tgt, nil)
	require.NoError(t, comp.Error)
	assert.True(t, comp.StatusMatch)
	assert.False(t, comp.BodyMatch)

	var out bytes.Buffer
	printReport(&out, []comparison{comp})
	assert.Contains(t, out.String(), "[DIFF] GET api/law-amendments")
}
