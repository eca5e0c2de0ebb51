package presenter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillcms/pkg/lifecycle"
	"github.com/jingkaihe/skillcms/pkg/types/skills"
)

func TestNewWithOptions(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)

	assert.Equal(t, &output, presenter.output)
	assert.Equal(t, &errorOutput, presenter.errorOutput)
	assert.Equal(t, ColorNever, presenter.colorMode)
	assert.False(t, presenter.IsQuiet())
}

func TestDetectColorMode(t *testing.T) {
	tests := []struct {
		name          string
		noColor       string
		skillcmsColor string
		expected      ColorMode
	}{
		{"NO_COLOR set", "1", "", ColorNever},
		{"SKILLCMS_COLOR always", "", "always", ColorAlways},
		{"SKILLCMS_COLOR force", "", "force", ColorAlways},
		{"SKILLCMS_COLOR never", "", "never", ColorNever},
		{"SKILLCMS_COLOR off", "", "off", ColorNever},
		{"SKILLCMS_COLOR auto", "", "auto", ColorAuto},
		{"default", "", "", ColorAuto},
		{"invalid value", "", "rainbow", ColorAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("NO_COLOR", tt.noColor)
			t.Setenv("SKILLCMS_COLOR", tt.skillcmsColor)

			assert.Equal(t, tt.expected, detectColorMode())
		})
	}
}

func TestError(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	presenter.Error(errors.New("test error"), "test context")
	assert.Equal(t, "[ERROR] test context: test error\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(errors.New("test error"), "")
	assert.Equal(t, "[ERROR] test error\n", errorOutput.String())

	errorOutput.Reset()
	presenter.Error(nil, "context")
	assert.Empty(t, errorOutput.String())
}

func TestError_UsesUserMessage(t *testing.T) {
	var errorOutput bytes.Buffer
	presenter := NewWithOptions(nil, &errorOutput, ColorNever)

	presenter.Error(skills.NewTransportError("modify", errors.New("dial tcp: connection refused")), "save")

	assert.Contains(t, errorOutput.String(), skills.MsgTransport)
	assert.NotContains(t, errorOutput.String(), "connection refused")
}

func TestQuietModeSuppressesOutput(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetQuiet(true)

	presenter.Success("done")
	presenter.Warning("careful")
	presenter.Info("fyi")
	presenter.Section("Title")
	presenter.Diff("+added\n")
	presenter.Separator()

	assert.Empty(t, output.String())
}

func TestMessages(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Success("Operation completed")
	presenter.Warning("This is a warning")
	presenter.Info("Information message")

	assert.Equal(t, "✓ Operation completed\n⚠ This is a warning\nInformation message\n", output.String())
}

func TestSection(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Section("History")

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "History", lines[0])
	assert.Equal(t, "-------", lines[1])
}

func TestSeparator(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	presenter.Separator()

	assert.Equal(t, strings.Repeat("-", 60)+"\n", output.String())
}

func TestNotify(t *testing.T) {
	var output, errorOutput bytes.Buffer
	presenter := NewWithOptions(&output, &errorOutput, ColorNever)
	ctx := context.Background()

	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelSuccess, Message: lifecycle.MsgSaved})
	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelWarning, Message: lifecycle.MsgDeployLocked})
	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelInfo, Message: "loading"})
	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelError, Message: lifecycle.MsgFetchSkillFailed})

	assert.Equal(t, "✓ "+lifecycle.MsgSaved+"\n⚠ "+lifecycle.MsgDeployLocked+"\nloading\n", output.String())
	assert.Equal(t, "✗ "+lifecycle.MsgFetchSkillFailed+"\n", errorOutput.String())

	output.Reset()
	errorOutput.Reset()
	presenter.SetQuiet(true)
	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelInfo, Message: "hidden"})
	presenter.Notify(ctx, lifecycle.Notification{Level: lifecycle.LevelError, Message: "shown"})
	assert.Empty(t, output.String())
	assert.Contains(t, errorOutput.String(), "shown")
}

func TestDiff(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)

	diff := "--- commit a\n+++ commit b\n@@ -1 +1 @@\n-old\n+new\n"
	presenter.Diff(diff)
	assert.Equal(t, diff, output.String())

	output.Reset()
	presenter.Diff("")
	assert.Equal(t, "(no changes)\n", output.String())

	output.Reset()
	presenter.Diff("+tail")
	assert.Equal(t, "+tail\n", output.String())
}

func TestDiff_Colored(t *testing.T) {
	t.Setenv("NO_COLOR", "")
	oldNoColor := color.NoColor
	t.Cleanup(func() { color.NoColor = oldNoColor })

	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorAlways)

	presenter.Diff("-old\n+new\n")

	assert.Contains(t, output.String(), "\x1b[31m-old")
	assert.Contains(t, output.String(), "\x1b[32m+new")
}

func TestPrompt(t *testing.T) {
	var output bytes.Buffer
	presenter := NewWithOptions(&output, nil, ColorNever)
	presenter.SetInput(strings.NewReader("  yes \n"))

	answer := presenter.Prompt("Roll back", "y", "N")

	assert.Equal(t, "yes", answer)
	assert.Equal(t, "Roll back [y/N]: ", output.String())

	presenter.SetInput(strings.NewReader(""))
	assert.Empty(t, presenter.Prompt("Again"))
}

func TestGlobalFunctions(t *testing.T) {
	originalPresenter := defaultPresenter
	t.Cleanup(func() { defaultPresenter = originalPresenter })

	var output, errorOutput bytes.Buffer
	defaultPresenter = NewWithOptions(&output, &errorOutput, ColorNever)

	Error(errors.New("boom"), "ctx")
	assert.Contains(t, errorOutput.String(), "[ERROR] ctx: boom")

	Success("ok")
	Warning("warn")
	Info("info")
	Section("Head")
	Diff("+x\n")
	Separator()
	out := output.String()
	for _, want := range []string{"✓ ok", "⚠ warn", "info", "Head", "+x", "----"} {
		assert.Contains(t, out, want)
	}

	SetQuiet(true)
	assert.True(t, IsQuiet())
	output.Reset()
	Info("should not appear")
	assert.Empty(t, output.String())
	SetQuiet(false)
	assert.False(t, IsQuiet())
	assert.Same(t, defaultPresenter, Default())
}
