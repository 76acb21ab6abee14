package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "costbook", cmd.Use)
	assert.Contains(t, cmd.Long, "margin")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{
		"list", "show", "create", "switch", "delete", "rename",
		"edit", "add-row", "delete-row", "save",
		"margin", "favorite", "folder", "folders",
		"export", "import", "test",
	}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("data-dir"))
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	modeFlag := importCmd.Flags().Lookup("mode")
	require.NotNil(t, modeFlag)
	assert.Equal(t, "merge", modeFlag.DefValue)
}

func TestListCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	listCmd, _, err := cmd.Find([]string{"list"})
	require.NoError(t, err)

	require.NotNil(t, listCmd.Flags().Lookup("folder"))
	require.NotNil(t, listCmd.Flags().Lookup("favorites"))
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("json"))
	assert.True(t, isValidFormat("text"))
	assert.False(t, isValidFormat("yaml"))
}

// executeRoot runs a full costbook invocation through Execute.
func executeRoot(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	code := Execute(context.Background(), cmd)
	return code, out.String(), errOut.String()
}

func TestExecute_JSONErrorEnvelope(t *testing.T) {
	code, out, errOut := executeRoot(t, "--data-dir", t.TempDir(), "--format", "json", "rename", "Nope", "Other")
	assert.Equal(t, ExitCommandError, code)
	assert.NotContains(t, errOut, "Error:")

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response), out)
	assert.Equal(t, "error", response.Status)
	require.NotNil(t, response.Error)
	assert.Equal(t, ExitCommandError, response.Error.Code)
	assert.Contains(t, response.Error.Message, "failed to rename recipe")
}

func TestExecute_TextErrorGoesToStderr(t *testing.T) {
	code, out, errOut := executeRoot(t, "--data-dir", t.TempDir(), "rename", "Nope", "Other")
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Error: failed to rename recipe")
}

func TestExecute_InvalidFormatFallsBackToText(t *testing.T) {
	code, out, errOut := executeRoot(t, "--format", "yaml", "list")
	assert.Equal(t, ExitCommandError, code)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "invalid format")
}

func TestExecute_Success(t *testing.T) {
	code, out, errOut := executeRoot(t, "--data-dir", t.TempDir(), "--format", "json", "list")
	assert.Equal(t, ExitSuccess, code)
	assert.NotContains(t, errOut, "Error:")

	var response CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &response), out)
	assert.Equal(t, "ok", response.Status)
}
