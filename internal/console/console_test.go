package console

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferConsole(debug bool) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := New(Options{Out: &out, Err: &errOut, Debug: debug})
	return c, &out, &errOut
}

func TestConsole_Errorf_WritesToErrorWriter_When_Called(t *testing.T) {
	t.Parallel()

	c, out, errOut := newBufferConsole(false)
	c.Errorf("bad %s", "thing")

	assert.Empty(t, out.String())
	assert.Equal(t, "ERROR: bad thing\n", errOut.String())
}

func TestConsole_Warnf_UsesDistinctLabel_When_Called(t *testing.T) {
	t.Parallel()

	c, out, errOut := newBufferConsole(false)
	c.Warnf("careful")

	assert.Equal(t, "WARNING: careful\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestConsole_Debugf_IsSilent_When_DebugDisabled(t *testing.T) {
	t.Parallel()

	c, out, _ := newBufferConsole(false)
	c.Debugf("hidden")
	assert.Empty(t, out.String())

	d, dout, _ := newBufferConsole(true)
	d.Debugf("shown %d", 1)
	assert.Equal(t, "DEBUG: shown 1\n", dout.String())
}

func TestConsole_NoColor_When_WriterIsNotTerminal(t *testing.T) {
	t.Parallel()

	c, out, _ := newBufferConsole(false)
	c.Infof("plain")

	assert.NotContains(t, out.String(), "\x1b[")
	assert.Equal(t, "mono", c.Theme().Name)
}

func TestConsole_ClearScreen_IsNoop_When_NotTerminal(t *testing.T) {
	t.Parallel()

	c, out, _ := newBufferConsole(false)
	c.ClearScreen()
	assert.Empty(t, out.String())
}

func TestConsole_Lines_AreNotInterleaved_When_WrittenConcurrently(t *testing.T) {
	t.Parallel()

	c, out, _ := newBufferConsole(false)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Lines([]string{"a", "b", "c"})
		}()
	}
	wg.Wait()

	got := out.String()
	assert.Equal(t, 20, strings.Count(got, "a\nb\nc\n"))
}
