package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/bdboard/internal/types"
	"github.com/steveyegge/bdboard/internal/validation"
)

func TestArgvCreateOrderAndSeparator(t *testing.T) {
	argv, err := argvCreate(CreateFields{
		Title:       "--evil title",
		Description: "does things",
		Priority:    1,
		IssueType:   types.TypeBug,
		Labels:      []string{"ui", "urgent"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create", "--json",
		"--priority", "1",
		"--type", "bug",
		"--description", "does things",
		"--label", "ui",
		"--label", "urgent",
		"--", "--evil title",
	}, argv)
}

func TestArgvCreateStripsNULFromTitle(t *testing.T) {
	argv, err := argvCreate(CreateFields{Title: "a\x00b", Priority: 2})
	require.NoError(t, err)
	assert.Equal(t, "ab", argv[len(argv)-1])
}

func TestArgvUpdateOnlySetFields(t *testing.T) {
	status := types.StatusInProgress
	pri := 0
	argv, err := argvUpdate("bd-7", UpdateFields{Status: &status, Priority: &pri})
	require.NoError(t, err)
	assert.Equal(t, []string{"update", "bd-7", "--json", "--priority", "0", "--status", "in_progress"}, argv)
}

func TestArgvUpdateRejectsBadID(t *testing.T) {
	var invalid *validation.InvalidInputError
	_, err := argvUpdate("-rf", UpdateFields{})
	require.ErrorAs(t, err, &invalid)
}

func TestArgvLabelSeparatesUserText(t *testing.T) {
	argv, err := argvLabel("add", "bd-3", "needs-triage")
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "add", "bd-3", "--", "needs-triage"}, argv)
}

func TestArgvDepAdd(t *testing.T) {
	argv, err := argvDepAdd("bd-2", "bd-1", types.DepBlocks)
	require.NoError(t, err)
	assert.Equal(t, []string{"dep", "add", "bd-2", "bd-1", "--type", "blocks"}, argv)

	var invalid *validation.InvalidInputError
	_, err = argvDepAdd("bd-2", "bd-1", "-blocks")
	require.ErrorAs(t, err, &invalid, "leading hyphen reads as a flag")
	_, err = argvDepAdd("bd-2", "bd-1", "")
	require.ErrorAs(t, err, &invalid, "empty type")
}

func TestArgvCommentAdd(t *testing.T) {
	argv, err := argvCommentAdd("bd-5", "--not-a-flag", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"comment", "add", "bd-5", "--author", "alice", "--", "--not-a-flag"}, argv)
}

func TestArgvShowValidatesEveryID(t *testing.T) {
	argv, err := argvShow("bd-1", "bd-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"show", "--json", "bd-1", "bd-2"}, argv)

	var invalid *validation.InvalidInputError
	_, err = argvShow("bd-1", "$(reboot)")
	require.ErrorAs(t, err, &invalid)
}
