package msg

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevNoColor := Output, color.NoColor
	Output, color.NoColor = &buf, true
	t.Cleanup(func() { Output, color.NoColor = prevOut, prevNoColor })
	return &buf
}

func TestLevels(t *testing.T) {
	buf := captureOutput(t)

	Info("scanned %d files", 3)
	Warn("skipping %s", "src/link")
	Error("boom")

	assert.Equal(t, "info: scanned 3 files\nwarn: skipping src/link\nerror: boom\n", buf.String())
}

func TestDebugRespectsVerbose(t *testing.T) {
	buf := captureOutput(t)

	Verbose = false
	Debug("hidden")
	assert.Empty(t, buf.String())

	Verbose = true
	t.Cleanup(func() { Verbose = false })
	Debug("shown %s", "now")
	assert.Equal(t, "debug: shown now\n", buf.String())
}

func TestIndentWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &IndentWriter{Indent: "  ", W: &buf}

	_, err := w.Write([]byte("one\ntw"))
	assert.NoError(t, err)
	_, err = w.Write([]byte("o\nthree\n"))
	assert.NoError(t, err)

	assert.Equal(t, "  one\n  two\n  three\n", buf.String())
}

func TestCounterFinish(t *testing.T) {
	var buf bytes.Buffer
	c := NewCounter("Scanning", 2, &buf)
	c.Add(2)
	c.Add(3)
	c.Finish()

	out := buf.String()
	assert.True(t, strings.HasSuffix(out, "\n"))
	assert.Contains(t, out, "\r  Scanning 5 files  (")
	assert.Equal(t, int64(5), c.Current)
}
