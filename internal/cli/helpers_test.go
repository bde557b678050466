package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/config"
)

var (
	testCatalog   = filepath.Join("testdata", "catalog.yaml")
	wrongRateFile = filepath.Join("testdata", "wrong-rate.yaml")
	invalidFile   = filepath.Join("testdata", "invalid.yaml")
)

// newTestRootOptions returns options with config and logging preset so
// tests do not depend on the process environment.
func newTestRootOptions(format string) *RootOptions {
	return &RootOptions{
		Format: format,
		Config: config.Default(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData unmarshals the data payload of a JSON CLIResponse.
func decodeData(t *testing.T, output string, data any) string {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp.Status
}
