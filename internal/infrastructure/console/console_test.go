package console

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineBufferWraps(t *testing.T) {
	var b lineBuffer
	for i := 0; i < Lines+3; i++ {
		b.Append(fmt.Sprint(i))
	}

	got := b.Read(2)
	assert.Equal(t, []string{fmt.Sprint(Lines + 2), fmt.Sprint(Lines + 1)}, got)
	assert.Len(t, b.Read(0), Lines)
	assert.Len(t, b.Read(Lines*2), Lines)
}

func TestLineBufferEmpty(t *testing.T) {
	var b lineBuffer
	assert.Nil(t, b.Read(10))
}

func TestConsoleSplitsLines(t *testing.T) {
	c := New(nil)

	fmt.Fprint(c, "first line\nsecond ")
	assert.Equal(t, []string{"first line"}, c.Read(0))

	fmt.Fprint(c, "half\n")
	assert.Equal(t, []string{"second half", "first line"}, c.Read(0))
}

func TestConsoleProcOutput(t *testing.T) {
	c := New(nil)

	w := c.Proc(4)
	fmt.Fprintf(w, "hello %d\n", 1)
	fmt.Fprintf(w, "bye\n")

	out, ok := c.ProcOutput(4, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"bye", "hello 1"}, out)
	assert.Equal(t, "[4] bye", c.Read(1)[0])

	_, ok = c.ProcOutput(5, 0)
	assert.False(t, ok)
}
