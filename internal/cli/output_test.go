package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf, TraceID: testTraceID}

	require.NoError(t, f.Success(map[string]int{"applied": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testTraceID, resp.TraceID)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"applied": float64(2)}, resp.Data)
}

func TestOutputFormatterErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error(ErrCodeCompile, "bad condition", map[string]string{"kind": "EMPTY_SET"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeCompile, resp.Error.Code)
	assert.Equal(t, "bad condition", resp.Error.Message)
	assert.Equal(t, map[string]any{"kind": "EMPTY_SET"}, resp.Error.Details)
	assert.Empty(t, resp.TraceID)
}

func TestOutputFormatterErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeReadFailed, "no such file", "hidden"))
	assert.Contains(t, buf.String(), "Error [E002]: no such file")
	assert.NotContains(t, buf.String(), "hidden")

	buf.Reset()
	f.Verbose = true
	require.NoError(t, f.Error(ErrCodeReadFailed, "no such file", "shown"))
	assert.Contains(t, buf.String(), "Details: shown")
}

func TestOutputFormatterFail(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	cause := errors.New("boom")

	err := f.Fail(ExitCommandError, ErrCodeDatabase, cause, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, buf.String(), "Error [E006]: boom")
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	f.VerboseLog("quiet %d", 1)
	assert.Empty(t, errOut.String())

	f.Verbose = true
	f.VerboseLog("loud %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "loud 2\n", errOut.String())

	f.ErrWriter = nil
	assert.Same(t, out, f.GetErrWriter())
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "scenarios failed")
	assert.Equal(t, "scenarios failed", err.Error())
	assert.Nil(t, err.Unwrap())

	wrapped := WrapExitError(ExitCommandError, "E002", errors.New("missing"))
	assert.Equal(t, "E002: missing", wrapped.Error())

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}
