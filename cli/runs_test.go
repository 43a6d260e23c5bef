package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunsWatchRequiresID(t *testing.T) {
	out := &bytes.Buffer{}
	cmd := NewRunsCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"watch"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "watch <id>")
}

func TestRunsCommandTree(t *testing.T) {
	cmd := NewRunsCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, want := range []string{"create", "view", "list", "start", "report", "watch", "delete"} {
		assert.Contains(t, names, want)
	}
}
