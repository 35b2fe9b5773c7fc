package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/minq/internal/store"
)

const longLensQuery = `name: long_lens
from: { type: [camera] }
steps:
  - where: { attr: focalLength, op: ">", value: 40 }
`

const byFocalQuery = `name: by_focal
from: { type: [camera] }
group_by: { attr: focalLength }
`

func runQueryCmd(t *testing.T, format string, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewQueryCommand(&RootOptions{Format: format})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestQueryCommand_Scene(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	out, _, err := runQueryCmd(t, "text", "--scene", demoScene, doc)
	require.NoError(t, err)
	assert.Equal(t, "topShape\n", out)
}

func TestQueryCommand_Database(t *testing.T) {
	db := loadDemo(t)
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	out, _, err := runQueryCmd(t, "text", "--db", db, doc)
	require.NoError(t, err)
	assert.Equal(t, "topShape\n", out)
}

func TestQueryCommand_Groups(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", byFocalQuery)

	out, _, err := runQueryCmd(t, "text", "--scene", demoScene, doc)
	require.NoError(t, err)
	assert.Equal(t, "35.0:\n  perspShape\n  frontShape\n  sideShape\n50.0:\n  topShape\n", out)
}

func TestQueryCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	values := writeFile(t, dir, "values.yaml", longLensQuery)
	groups := writeFile(t, dir, "groups.yaml", byFocalQuery)

	out, _, err := runQueryCmd(t, "json", "--scene", demoScene, values)
	require.NoError(t, err)
	var resp struct {
		Status string      `json:"status"`
		Data   QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "long_lens", resp.Data.Name)
	assert.Equal(t, []any{"topShape"}, resp.Data.Values)
	assert.Nil(t, resp.Data.Groups)

	out, _, err = runQueryCmd(t, "json", "--scene", demoScene, groups)
	require.NoError(t, err)
	resp.Data = QueryResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Groups, 2)
	assert.Equal(t, 35.0, resp.Data.Groups[0].Key)
	assert.Equal(t, []any{"perspShape", "frontShape", "sideShape"}, resp.Data.Groups[0].Members)
}

func TestQueryCommand_Explain(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	// No scene is needed to explain a plan.
	out, _, err := runQueryCmd(t, "text", "--explain", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "camera")
	assert.Contains(t, out, "focalLength")
}

func TestQueryCommand_Stats(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	out, errOut, err := runQueryCmd(t, "text", "--stats", "--scene", demoScene, doc)
	require.NoError(t, err)
	assert.Equal(t, "topShape\n", out, "stats never reach stdout")
	assert.Contains(t, errOut, "backend calls: 2")

	out, _, err = runQueryCmd(t, "json", "--stats", "--scene", demoScene, doc)
	require.NoError(t, err)
	var resp struct {
		Data QueryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 1, resp.Data.Stats["query_by_type"])
	assert.Equal(t, 1, resp.Data.Stats["read_attribute_bulk"])
}

func TestQueryCommand_NoBulk(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	out, errOut, err := runQueryCmd(t, "text", "--stats", "--no-bulk", "--scene", demoScene, doc)
	require.NoError(t, err)
	assert.Equal(t, "topShape\n", out, "per-element evaluation gives the same answer")
	assert.NotContains(t, errOut, "backend calls: 2")
}

func TestQueryCommand_MaxElements(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", "name: all\nfrom: { everything: true }\n")

	out, _, err := runQueryCmd(t, "json", "--max-elements", "3", "--scene", demoScene, doc)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeQueryFailed, resp.Error.Code)
}

func TestQueryCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	valid := writeFile(t, dir, "valid.yaml", longLensQuery)
	badPattern := writeFile(t, dir, "pattern.yaml", "name: q\nfrom: { everything: true }\nsteps: [ { like: '(' } ]\n")
	unknownType := writeFile(t, dir, "gizmo.yaml", "name: q\nfrom: { type: [gizmo] }\n")
	garbled := writeFile(t, dir, "garbled.yaml", "name: q\nfrom: [\n")

	emptyDB := filepath.Join(dir, "empty.db")
	st, err := store.Open(emptyDB)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	testCases := []struct {
		name     string
		args     []string
		exitCode int
		code     string
		contains string
	}{
		{"undecodable document", []string{"--scene", demoScene, garbled}, ExitCommandError, ErrCodeInvalidQuery, "failed to parse YAML"},
		{"missing document", []string{"--scene", demoScene, filepath.Join(dir, "missing.yaml")}, ExitCommandError, ErrCodeInvalidQuery, "failed to read query file"},
		{"invalid plan", []string{"--scene", demoScene, badPattern}, ExitFailure, ErrCodeInvalidQuery, "invalid pattern"},
		{"unknown type", []string{"--scene", demoScene, unknownType}, ExitFailure, ErrCodeQueryFailed, "gizmo"},
		{"missing database", []string{"--db", filepath.Join(dir, "missing.db"), valid}, ExitCommandError, ErrCodeNotFound, "run 'minq load' first"},
		{"empty database", []string{"--db", emptyDB, valid}, ExitCommandError, ErrCodeNotFound, "holds no scene"},
		{"missing scene", []string{"--scene", filepath.Join(dir, "missing.cue"), valid}, ExitCommandError, ErrCodeNotFound, "scene not found"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, _, err := runQueryCmd(t, "json", tc.args...)
			require.Error(t, err)
			assert.Equal(t, tc.exitCode, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.code, resp.Error.Code)
			assert.Contains(t, resp.Error.Message, tc.contains)
		})
	}
}

func TestQueryCommand_ExclusiveSources(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", longLensQuery)

	_, _, err := runQueryCmd(t, "text", "--db", "scene.db", "--scene", demoScene, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}

func TestDescribeQueryError(t *testing.T) {
	doc := writeFile(t, t.TempDir(), "q.yaml", "name: q\nfrom: { type: [gizmo] }\n")

	out, _, err := runQueryCmd(t, "text", "--scene", demoScene, doc)
	require.Error(t, err)
	assert.Contains(t, out, "Error [E202]")
	assert.Contains(t, out, "unknown node type")
}
