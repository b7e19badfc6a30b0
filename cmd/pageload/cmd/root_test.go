package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := RootCmd()
	for _, name := range []string{"plan", "run", "invoke", "serve", "collage"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestPlanCmd_MissingRunFile(t *testing.T) {
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"plan", filepath.Join(t.TempDir(), "missing.yaml")})

	err := root.Execute()
	var notFound *loaderrors.ErrNotFound
	assert.ErrorAs(t, err, &notFound)
}

func TestRunCmd_RequiresPayload(t *testing.T) {
	root := RootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run"})
	assert.Error(t, root.Execute())
}
