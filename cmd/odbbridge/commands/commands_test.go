package commands

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odbbridge/internal/domain"
	"odbbridge/internal/resultsdb"
	"odbbridge/internal/store"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("ODBBRIDGE_LOG_LEVEL", "")
	t.Setenv("ODBBRIDGE_FIELD", "")
	var stdout, stderr bytes.Buffer
	err := execute(append([]string{"--log-level", "error"}, args...), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// buildStore writes a one-bar store with a Heat and a Cool step, each with
// one NT11 frame.
func buildStore(t *testing.T, path string) {
	t.Helper()
	g, err := resultsdb.Create(path, domain.StoreMeta{Name: "cli"}, resultsdb.Options{})
	require.NoError(t, err)
	defer g.Close()
	p, err := g.Part("BAR")
	require.NoError(t, err)
	require.NoError(t, g.AddNodes(p, []domain.Node{{Label: 1}, {Label: 2, X: 1}}))
	require.NoError(t, g.AddElements(p, "DC1D2", []domain.Element{{Label: 1, Connectivity: []int{1, 2}}}))
	_, err = g.Instance("BAR-1", p)
	require.NoError(t, err)
	require.NoError(t, g.Save())
	require.NoError(t, g.Close())

	r, err := resultsdb.OpenWritable(path)
	require.NoError(t, err)
	defer r.Close()
	insts, err := r.Instances()
	require.NoError(t, err)
	for i, name := range []string{"Heat", "Cool"} {
		st, err := r.Step(name, "", "TIME", 1)
		require.NoError(t, err)
		fr, err := r.Frame(st, 0, 1, "")
		require.NoError(t, err)
		fo, err := r.FieldOutput(fr, "NT11", "")
		require.NoError(t, err)
		require.NoError(t, r.AddData(fo, domain.DataBlock{
			Position: domain.Nodal, Instance: insts["BAR-1"],
			Labels: []int{1, 2}, Data: [][]float64{{float64(10 * i)}, {float64(10*i + 1)}},
		}))
	}
	require.NoError(t, r.Save())
}

func catalogSteps(t *testing.T, dir string) []string {
	t.Helper()
	cat, err := store.NewCatalogFileStore(filepath.Join(dir, store.DefaultCatalogFile)).LoadCatalog()
	require.NoError(t, err)
	var names []string
	for _, st := range cat.Steps {
		names = append(names, st.Name)
	}
	return names
}

func TestStepList_TrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"Thermal_Step", "OtherStep"}, stepList([]string{"Thermal_Step", " OtherStep"}))
	assert.Equal(t, []string{"A", "B"}, stepList([]string{" A ", "", "  ", "B"}))
	assert.Nil(t, stepList(nil))
}

func TestExport_StepsFlagToleratesSpaces(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.db")
	buildStore(t, src)

	both := filepath.Join(tmp, "both")
	_, _, err := run(t, "export", "--odb", src, "--out", both, "--steps", "Heat, Cool")
	require.NoError(t, err)
	assert.Equal(t, []string{"Heat", "Cool"}, catalogSteps(t, both))

	cool := filepath.Join(tmp, "cool")
	_, _, err = run(t, "export", "-i", src, "-o", cool, "-s", " Cool ,")
	require.NoError(t, err)
	assert.Equal(t, []string{"Cool"}, catalogSteps(t, cool))

	out, _, err := run(t, "import", "--in", both, "--out", filepath.Join(tmp, "rebuilt.db"), "--steps", "Heat,  Cool")
	require.NoError(t, err)
	assert.Contains(t, out, "2 steps")
	assert.NotContains(t, out, "Skipped")

	out, _, err = run(t, "import", "--in", both, "--out", filepath.Join(tmp, "heat.db"), "--steps", " Heat")
	require.NoError(t, err)
	assert.Contains(t, out, "1 steps")
	assert.Contains(t, out, "Skipped 1 buckets")

	out, _, err = run(t, "inspect", both)
	require.NoError(t, err)
	assert.Contains(t, out, "Buckets:   2 (4 values)")
}

func TestUsageErrors(t *testing.T) {
	dir := t.TempDir()
	for name, args := range map[string][]string{
		"export without --out":    {"export", "--odb", filepath.Join(dir, "src.db")},
		"export without --odb":    {"export", "--out", dir},
		"import with only --mesh": {"import", "--mesh", filepath.Join(dir, "mesh.json"), "--out", filepath.Join(dir, "x.db")},
		"import without --out":    {"import", "--in", dir},
		"inspect without dir":     {"inspect"},
		"inspect with two dirs":   {"inspect", dir, dir},
		"unknown flag":            {"export", "--bogus"},
	} {
		t.Run(name, func(t *testing.T) {
			_, stderr, err := run(t, args...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrUsage), "got %v", err)
			assert.Equal(t, 2, ExitCode(err))
			assert.Contains(t, stderr, "Usage:")
		})
	}
}

func TestRuntimeFailureExitsOne(t *testing.T) {
	_, stderr, err := run(t, "inspect", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, 1, ExitCode(err))
	assert.Contains(t, stderr, "Error:")
	assert.NotContains(t, stderr, "Usage:")

	assert.Equal(t, 0, ExitCode(nil))
}

func TestImport_RefusesExistingTarget(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src.db")
	buildStore(t, src)
	_, _, err := run(t, "export", "--odb", src, "--out", tmp)
	require.NoError(t, err)

	_, _, err = run(t, "import", "--in", tmp, "--out", src)
	assert.True(t, errors.Is(err, resultsdb.ErrExists))
	assert.Equal(t, 1, ExitCode(err))

	_, _, err = run(t, "import", "--mesh", filepath.Join(tmp, "mesh.json"), "--catalog", filepath.Join(tmp, "steps.json"),
		"--fields", filepath.Join(tmp, "nt11.jsonl"), "--out", src, "--overwrite")
	assert.NoError(t, err)
}
