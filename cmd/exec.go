package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/ferama/ptyctl/cmd/cmnflags"
	"github.com/ferama/ptyctl/pkg/rpty"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// how long output is still drained after the process exited
const execDrainTimeout = 250 * time.Millisecond

func init() {
	rootCmd.AddCommand(execCmd)
	cmnflags.AddLaunchFlags(execCmd.Flags())
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] [-- command args...]",
	Short: "Runs a command on a pseudo terminal attached to this terminal",
	Long: `Runs a command on a pseudo terminal attached to this terminal.
The configured shell is launched when no command is given. When stdin
is not a terminal the command reads it directly.
The exit status of the command is the exit status of ptyctl (128+N when
the command was killed by signal N).`,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runExec(cmd, args))
	},
}

func runExec(cmd *cobra.Command, args []string) int {
	launch, err := cmnflags.GetLaunchConf(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	req, err := launch.Request(args, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	stdinFd := int(os.Stdin.Fd())
	isTerm := term.IsTerminal(stdinFd)
	if isTerm && !cmd.Flags().Changed("rows") && !cmd.Flags().Changed("cols") {
		if size, err := pty.GetsizeFull(os.Stdin); err == nil {
			req.Size = rpty.WindowSize{Rows: size.Rows, Cols: size.Cols}
		}
	}
	if !isTerm {
		// the child reads the redirected input itself and sees its end
		req.Stdin = os.Stdin
	}

	rs, err := rpty.Launch(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, rpty.ErrExecFailed) {
			return rpty.ExecFailedStatus
		}
		return 1
	}
	defer rs.Close()

	stream, err := rs.File()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		rs.Signal(syscall.SIGKILL)
		return rs.Wait().ShellCode()
	}
	defer stream.Close()

	if isTerm {
		oldState, err := term.MakeRaw(stdinFd)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		} else {
			defer term.Restore(stdinFd, oldState)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGWINCH, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	defer signal.Stop(sigs)
	go func() {
		for sig := range sigs {
			if sig == syscall.SIGWINCH {
				if !isTerm {
					continue
				}
				size, err := pty.GetsizeFull(os.Stdin)
				if err == nil {
					rs.Resize(rpty.WindowSize{Rows: size.Rows, Cols: size.Cols})
				}
				continue
			}
			rs.Signal(sig.(syscall.Signal))
		}
	}()

	if isTerm {
		go io.Copy(stream, os.Stdin)
	}
	copyDone := make(chan struct{})
	go func() {
		io.Copy(os.Stdout, stream)
		close(copyDone)
	}()

	status := rs.Wait()
	// grandchildren may still hold the terminal open
	stream.SetReadDeadline(time.Now().Add(execDrainTimeout))
	<-copyDone

	return status.ShellCode()
}
