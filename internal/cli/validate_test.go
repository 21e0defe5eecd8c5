package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factview/internal/compiler"
)

func TestValidateValidSpecs(t *testing.T) {
	specsDir, _ := newWorkspace(t)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), specsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All specs valid (1 view(s))")
}

func TestValidateValidSpecsJSON(t *testing.T) {
	specsDir, _ := newWorkspace(t)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), specsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, []string{"Home"}, resp.Data.Views)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateCUESyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.cue", "package views\n\nview: Home: {\n")

	_, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateNoViews(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "other.cue", "package views\n\nsettings: debug: true\n")

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no views found")
}

func TestValidateCollectsSchemaErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "views.cue", `package views

view: Broken: {
	fields: {
		title: {kind: "label"}
		count: {kind: "field"}
	}
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrViewRootMissing+": view.Broken.root")
	assert.Contains(t, out, compiler.ErrUnknownKind+": view.Broken.fields.title.kind")
	assert.Contains(t, out, compiler.ErrMissingSelect+": view.Broken.fields.count.select")
}

func TestValidateSchemaErrorsJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "views.cue", `package views

view: Broken: fields: title: {kind: "field", select: "title"}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 1)
	assert.Equal(t, compiler.ErrViewRootMissing, resp.Error.Code)
}

func TestValidateFloatRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "views.cue", `package views

view: Home: {
	root: "Application.Root"
	fields: score: {
		kind:    "property"
		query:   {type: "Application.Score", role: "root"}
		select:  "value"
		initial: 1.5
	}
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, "line 9")
	assert.Contains(t, out, compiler.ErrInvalidValue)
	assert.Contains(t, out, "float values are not allowed")
}

func TestValidateContinuesAfterParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "views.cue", `package views

view: First: {
	root: "Application.Root"
	fields: title: {select: "title"}
}

view: Second: {
	fields: title: {kind: "field", select: "title"}
}
`)

	out, err := execute(NewValidateCommand(&RootOptions{Format: "text"}), dir)
	require.Error(t, err)
	assert.Contains(t, out, compiler.ErrUnknownKind+": view.First.fields.title.kind: kind is required")
	assert.Contains(t, out, compiler.ErrViewRootMissing+": view.Second.root")
}

func TestMapFieldToErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeBuildFailed, MapFieldToErrorCode("cue"))
	assert.Equal(t, compiler.ErrUnknownKind, MapFieldToErrorCode("fields.items.fields.hash.kind"))
	assert.Equal(t, compiler.ErrInvalidValue, MapFieldToErrorCode("fields.score.initial"))
}

func TestLoadSpecs(t *testing.T) {
	specsDir, _ := newWorkspace(t)

	result, errs := LoadSpecs(specsDir, LoadModeCollectAll)
	require.Empty(t, errs)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Views, 1)

	view, err := result.View("")
	require.NoError(t, err)
	assert.Equal(t, "Application.Root", view.Root)
	assert.Equal(t, []string{"identifier", "name", "items"}, view.Mapping.FieldNames())

	_, err = result.View("Work")
	assert.EqualError(t, err, `view "Work" not found`)
}

func TestLoadSpecsBuildErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "views.cue", `package views

view: A: fields: title: {kind: "field", select: "title"}
view: B: fields: title: {kind: "field", select: "title"}
`)

	_, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Len(t, errs, 1)

	result, errs := LoadSpecs(dir, LoadModeCollectAll)
	require.Len(t, errs, 2)
	assert.Empty(t, result.Views)
	var loadErr *LoadError
	require.ErrorAs(t, errs[0], &loadErr)
	assert.Equal(t, compiler.ErrViewRootMissing, loadErr.Code)
	assert.Contains(t, loadErr.Message, "view.A")
}
