package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/differential-privacy/privacy-on-beam/v3/pbeam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/htried/taxi-diff-privacy/tdp"
)

const dataDir = "../../data"

func TestRootCommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "initdb", "cleandb", "batch"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("v"), "glog flags are exposed")
}

func TestFlagDefaultsFromEnv(t *testing.T) {
	t.Setenv(envDataDir, "/srv/tdp")
	t.Setenv(envAddr, ":8080")
	t.Setenv(envMechanism, "secure")

	root := newRootCmd()
	assert.Equal(t, "/srv/tdp", root.PersistentFlags().Lookup("data").DefValue)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, ":8080", serve.Flags().Lookup("addr").DefValue)
	assert.Equal(t, "secure", serve.Flags().Lookup("mechanism").DefValue)
}

func TestGetenv(t *testing.T) {
	t.Setenv(envPolicy, "")
	assert.Equal(t, "fallback", getenv(envPolicy, "fallback"))
	t.Setenv(envPolicy, "policy.yaml")
	assert.Equal(t, "policy.yaml", getenv(envPolicy, "fallback"))
}

func TestDatasetFile(t *testing.T) {
	opts := &initDBOptions{globalOptions: &globalOptions{dataDir: "data"}, dataset: tdp.CelebrityDataset}
	path, err := opts.datasetFile()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "celebrity.csv"), path)

	opts.dataset = "march"
	_, err = opts.datasetFile()
	assert.Error(t, err)

	opts.file = "march.csv"
	path, err = opts.datasetFile()
	require.NoError(t, err)
	assert.Equal(t, "march.csv", path)
}

func TestCutoff(t *testing.T) {
	now := time.Date(2024, 3, 2, 15, 4, 5, 0, time.UTC)

	opts := &cleanDBOptions{}
	got, err := opts.cutoff(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	opts.before = "2024-02-20"
	got, err = opts.cutoff(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), got)

	opts.before = "20/02/2024"
	_, err = opts.cutoff(now)
	assert.Error(t, err)
}

func TestBatchOptions(t *testing.T) {
	o := &batchOptions{
		globalOptions: &globalOptions{dataDir: "data"},
		output:        "counts.txt",
		epsilon:       0.5,
		side:          4,
		maxCells:      2,
		maxValue:      3,
		noNoise:       true,
	}
	opts, err := o.options()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("data", "trips.csv"), opts.Input)
	assert.Equal(t, 4, opts.Grid.Side)
	assert.Equal(t, tdp.Manhattan, opts.Grid.Bounds)
	assert.Equal(t, pbeam.TestModeWithContributionBounding, opts.Params.TestMode)
	assert.Empty(t, opts.DSN)

	o.epsilon = 0
	_, err = o.options()
	assert.Error(t, err)
}

func TestBuildServer(t *testing.T) {
	opts := &serveOptions{
		globalOptions: &globalOptions{dataDir: dataDir, policy: filepath.Join(dataDir, "policy.yaml")},
		mechanism:     string(tdp.Secure),
	}
	srv, store, err := buildServer(context.Background(), opts, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, store.Get().Rules)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/pages/hours?eps=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestBuildServerErrors(t *testing.T) {
	for name, opts := range map[string]*serveOptions{
		"missing data":  {globalOptions: &globalOptions{dataDir: t.TempDir()}},
		"bad policy":    {globalOptions: &globalOptions{dataDir: dataDir, policy: "no-such-policy.yaml"}},
		"bad mechanism": {globalOptions: &globalOptions{dataDir: dataDir}, mechanism: "gaussian"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := buildServer(context.Background(), opts, nil)
			assert.Error(t, err)
		})
	}
}
