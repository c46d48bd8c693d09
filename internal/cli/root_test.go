package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/symten/internal/dense"
	"github.com/born-ml/symten/internal/serialization"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"version", "inspect", "svd", "combine", "contract", "random", "config"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"config", "log-level", "log-format", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "symten "+Version+"\n", out)
}

func TestInvalidLogFlags(t *testing.T) {
	_, _, err := execute(t, "--log-format", "xml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")

	_, _, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "version")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRandomInspectSvd(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "psi.symt")

	out, _, err := execute(t, "random", "--legs", "2", "--seed", "7", "--out", src)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+src)

	out, _, err = execute(t, "inspect", src)
	require.NoError(t, err)
	assert.Contains(t, out, "seed=7")
	assert.Contains(t, out, "kind=block rank=3 rowrank=2")

	out, stderr, err := execute(t, "--verbose", "svd", src, "--keepdim", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "kept 3 singular values")
	assert.Contains(t, stderr, "block svd")

	prefix := filepath.Join(dir, "psi")
	for _, part := range []string{"U", "S", "V"} {
		_, h, err := serialization.LoadFile(prefix+"."+part+".symt", serialization.DefaultReaderOptions())
		require.NoError(t, err, part)
		assert.Equal(t, "3", h.Metadata["kept"])
	}

	s, _, err := serialization.LoadFile(prefix+".S.symt", serialization.DefaultReaderOptions())
	require.NoError(t, err)
	assert.True(t, s.IsDiag())
	assert.Equal(t, []int{3, 3}, s.Shape())
}

func TestSvdUsesConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "psi.symt")
	cfgPath := filepath.Join(dir, "symten.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("svd:\n  keepdim: 2\n"), 0o600))

	_, _, err := execute(t, "random", "--out", src)
	require.NoError(t, err)

	out, _, err := execute(t, "--config", cfgPath, "svd", src, "--out", filepath.Join(dir, "f"))
	require.NoError(t, err)
	assert.Contains(t, out, "kept 2 singular values")

	out, _, err = execute(t, "--config", cfgPath, "svd", src, "--keepdim", "0", "--out", filepath.Join(dir, "g"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "kept 16 singular values"), out)
}

func TestCombineAndContract(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "psi.symt")
	_, _, err := execute(t, "random", "--legs", "3", "--out", src)
	require.NoError(t, err)

	dst := filepath.Join(dir, "fused.symt")
	out, _, err := execute(t, "combine", src, "--labels", "p0,p1", "--out", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "rank=3")

	fused, _, err := serialization.LoadFile(dst, serialization.DefaultReaderOptions())
	require.NoError(t, err)
	assert.Equal(t, []string{"p0", "p2", "out"}, fused.Labels())

	// The U and V factors contract back to the original tensor.
	_, _, err = execute(t, "svd", src)
	require.NoError(t, err)
	prefix := filepath.Join(dir, "psi")
	us := filepath.Join(dir, "us.symt")
	_, _, err = execute(t, "contract", prefix+".U.symt", prefix+".S.symt", "--out", us)
	require.NoError(t, err)
	rebuilt := filepath.Join(dir, "rebuilt.symt")
	out, _, err = execute(t, "contract", us, prefix+".V.symt", "--out", rebuilt)
	require.NoError(t, err)
	assert.Contains(t, out, "rank=4")

	want, _, err := serialization.LoadFile(src, serialization.DefaultReaderOptions())
	require.NoError(t, err)
	got, _, err := serialization.LoadFile(rebuilt, serialization.DefaultReaderOptions())
	require.NoError(t, err)
	wd, err := want.ToDense()
	require.NoError(t, err)
	gd, err := got.ToDense()
	require.NoError(t, err)
	wa, err := wd.BlockView(0)
	require.NoError(t, err)
	ga, err := gd.BlockView(0)
	require.NoError(t, err)
	assert.True(t, dense.AllClose(wa, ga, 1e-10))
}

func TestRandomRejectsBadFlags(t *testing.T) {
	_, _, err := execute(t, "random", "--qnums", "0,1", "--degs", "1", "--out", filepath.Join(t.TempDir(), "x.symt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "differ in length")

	_, _, err = execute(t, "random", "--legs", "0", "--out", filepath.Join(t.TempDir(), "x.symt"))
	require.Error(t, err)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symten.yaml")
	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Equal(t, "wrote "+path+"\n", out)

	_, _, err = execute(t, "--config", path, "version")
	assert.NoError(t, err)
}
