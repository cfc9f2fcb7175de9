package presenter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func newTestPresenter(input string) (*TerminalPresenter, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	p := NewWithOptions(&out, &errOut, strings.NewReader(input), ColorNever)
	return p, &out, &errOut
}

func TestErrorGoesToStderr(t *testing.T) {
	p, out, errOut := newTestPresenter("")

	p.Error(errors.New("boom"), "scanning failed")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "[ERROR] scanning failed: boom")
}

func TestErrorNilIsNoop(t *testing.T) {
	p, _, errOut := newTestPresenter("")
	p.Error(nil, "context")
	assert.Empty(t, errOut.String())
}

func TestQuietSuppressesNonErrors(t *testing.T) {
	p, out, errOut := newTestPresenter("")
	p.SetQuiet(true)

	p.Success("done")
	p.Warning("careful")
	p.Info("fyi")
	p.Section("title")
	p.Separator()
	p.Stats(&RunStats{FilesScanned: 3})

	assert.Empty(t, out.String())

	p.Error(errors.New("still shown"), "")
	assert.Contains(t, errOut.String(), "still shown")
}

func TestPromptReadsAndTrims(t *testing.T) {
	p, out, _ := newTestPresenter("  2  \n")

	got := p.Prompt("Select a strategy", "1-3", "c")

	assert.Equal(t, "2", got)
	assert.Contains(t, out.String(), "Select a strategy [1-3/c]: ")
}

func TestStatsOutput(t *testing.T) {
	p, out, _ := newTestPresenter("")

	p.Stats(&RunStats{
		FilesScanned: 10,
		TotalBytes:   2048,
		Unreadable:   1,
		Degraded:     2,
		Strategies:   3,
		Applied:      8,
		Failed:       1,
		DryRun:       true,
	})

	s := out.String()
	assert.Contains(t, s, "Files: 10 (2.0 KB)")
	assert.Contains(t, s, "Degraded analyses: 2")
	assert.Contains(t, s, "[Execution (dry run)] Applied: 8 | Skipped: 0 | Failed: 1")
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0.0 B"},
		{512, "512.0 B"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanSize(tt.n))
	}
}
