package cmd

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ferama/ptyctl/pkg/rpty"
)

func requirePty(t *testing.T) {
	t.Helper()
	if _, err := os.Stat("/dev/ptmx"); err != nil {
		t.Skip("no pseudo terminal support")
	}
}

// execWithInput runs the exec command with input as a redirected stdin
// and returns its exit code and output
func execWithInput(t *testing.T, input string, args ...string) (int, string) {
	t.Helper()

	stdinR, stdinW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	stdinW.Write([]byte(input))
	stdinW.Close()

	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	oldStdin, oldStdout := os.Stdin, os.Stdout
	os.Stdin, os.Stdout = stdinR, stdoutW
	defer func() {
		os.Stdin, os.Stdout = oldStdin, oldStdout
		stdinR.Close()
	}()

	var out bytes.Buffer
	readDone := make(chan struct{})
	go func() {
		io.Copy(&out, stdoutR)
		close(readDone)
	}()

	codeCh := make(chan int, 1)
	go func() {
		codeCh <- runExec(execCmd, args)
	}()

	var code int
	select {
	case code = <-codeCh:
	case <-time.After(10 * time.Second):
		t.Fatal("exec did not return")
	}
	stdoutW.Close()
	<-readDone
	stdoutR.Close()
	return code, out.String()
}

func TestExecPipedInput(t *testing.T) {
	requirePty(t)

	code, out := execWithInput(t, "hello\n", "cat")
	if code != 0 {
		t.Fatalf("exit code %d", code)
	}
	if strings.Count(out, "hello") != 1 {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestExecExitCode(t *testing.T) {
	requirePty(t)

	if code, _ := execWithInput(t, "", "sh", "-c", "exit 3"); code != 3 {
		t.Fatalf("exit code %d", code)
	}
	if code, _ := execWithInput(t, "", "sh", "-c", "kill -TERM $$"); code != 128+15 {
		t.Fatalf("exit code %d", code)
	}
	if code, _ := execWithInput(t, "", "ptyctl-no-such-command"); code != rpty.ExecFailedStatus {
		t.Fatalf("exit code %d", code)
	}
}
