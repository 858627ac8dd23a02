//go:build linux

package procgroup

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func start(t *testing.T, script string) (*exec.Cmd, <-chan error) {
	t.Helper()
	cmd := exec.Command("sh", "-c", script)
	Set(cmd)
	require.NoError(t, cmd.Start())

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()
	return cmd, waitCh
}

func TestSet_MakesGroupLeader(t *testing.T) {
	cmd, waitCh := start(t, "sleep 10")
	defer func() { _ = Terminate(cmd, waitCh, time.Second) }()

	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	require.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pgid)
}

// running reports whether pid exists and is not a zombie. Orphans are
// reparented to an init that may never reap them, so a zombie counts as
// stopped.
func running(pid int) bool {
	stat, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "stat"))
	if err != nil {
		return false
	}
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return false
	}
	state := stat[i+2]
	return state != 'Z' && state != 'X'
}

func TestTerminate_StopsWholeGroup(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "child.pid")
	cmd, waitCh := start(t, "sleep 100 & echo $! > "+pidFile+"; wait")

	var child int
	require.Eventually(t, func() bool {
		b, err := os.ReadFile(pidFile)
		if err != nil {
			return false
		}
		child, err = strconv.Atoi(strings.TrimSpace(string(b)))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	require.True(t, running(child))

	err := Terminate(cmd, waitCh, 500*time.Millisecond)
	require.Error(t, err, "a signalled process exits non-zero")

	assert.Eventually(t, func() bool { return !running(child) },
		2*time.Second, 20*time.Millisecond, "background child of the group should be stopped")
}

func TestTerminate_EscalatesToSIGKILL(t *testing.T) {
	cmd, waitCh := start(t, "trap '' TERM; sleep 100")
	time.Sleep(50 * time.Millisecond)

	begin := time.Now()
	err := Terminate(cmd, waitCh, 100*time.Millisecond)
	require.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(begin), 100*time.Millisecond)

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	status, ok := exitErr.Sys().(syscall.WaitStatus)
	require.True(t, ok)
	assert.Equal(t, syscall.SIGKILL, status.Signal())
}

func TestTerminate_NilCommand(t *testing.T) {
	assert.NoError(t, Terminate(nil, nil, time.Second))
	assert.NoError(t, Kill(&exec.Cmd{}, syscall.SIGTERM))
}

func TestKill_ExitedProcess(t *testing.T) {
	cmd, waitCh := start(t, "exit 0")
	require.NoError(t, <-waitCh)
	assert.NoError(t, Kill(cmd, syscall.SIGTERM))
}
