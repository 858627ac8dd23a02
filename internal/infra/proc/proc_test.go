//go:build unix

package proc

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_CapturesOutput(t *testing.T) {
	res, err := Run(context.Background(), Spec{
		Tool: "sh",
		Bin:  "sh",
		Args: []string{"-c", "echo out; echo warn >&2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "out\n", string(res.Stdout))
	assert.Equal(t, []string{"warn"}, res.Stderr)
}

func TestRun_ExitErrorCarriesStderrTail(t *testing.T) {
	_, err := Run(context.Background(), Spec{
		Tool: "sh",
		Bin:  "sh",
		Args: []string{"-c", "echo first >&2; echo 'No such file' >&2; exit 3"},
	})
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "sh", exitErr.Tool)
	assert.True(t, strings.HasSuffix(err.Error(), "No such file"))
}

func TestRun_MissingBinary(t *testing.T) {
	_, err := Run(context.Background(), Spec{Bin: "amgplay-definitely-missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRun_CancelTerminates(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	_, err := Run(ctx, Spec{Bin: "sh", Args: []string{"-c", "sleep 30"}, Grace: 200 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), 5*time.Second)
}

func TestRingBuffer_KeepsNewest(t *testing.T) {
	r := NewRingBuffer(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Add(s)
	}
	assert.Equal(t, []string{"c", "d", "e"}, r.Lines())

	r = NewRingBuffer(3)
	r.Add("x")
	assert.Equal(t, []string{"x"}, r.Lines())
}
