package remoteexec

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// ExecInteractive runs argv on the remote host attached to a PTY, proxying
// the local terminal's raw input/output to it for the duration — used for
// `rv ssh` and `rv exec` against a running job's allocation. The local
// terminal is put into raw mode and restored on return regardless of how
// the remote command exits.
func (e *Executor) ExecInteractive(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return 0, rverrors.New(rverrors.KindConfig, "ExecInteractive requires a non-empty command")
	}

	session, err := e.client.NewSession()
	if err != nil {
		return 0, rverrors.WrapConnection(err)
	}
	defer session.Close()

	fd := int(os.Stdin.Fd())
	width, height := 80, 24
	if term.IsTerminal(fd) {
		if w, h, sizeErr := term.GetSize(fd); sizeErr == nil {
			width, height = w, h
		}
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := session.RequestPty("xterm-256color", height, width, modes); err != nil {
		return 0, rverrors.Wrap(rverrors.KindConnection, err, "requesting remote pty")
	}

	session.Stdin = os.Stdin
	session.Stdout = os.Stdout
	session.Stderr = os.Stderr

	var restore func() error
	if term.IsTerminal(fd) {
		oldState, rawErr := term.MakeRaw(fd)
		if rawErr == nil {
			restore = func() error { return term.Restore(fd, oldState) }
			defer restore()
		}
	}

	command := strings.Join(argv, " ")
	runErr := session.Run(command)

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	if runErr == nil {
		return 0, nil
	}
	if exitErr, ok := runErr.(*ssh.ExitError); ok {
		return exitErr.ExitStatus(), nil
	}
	return 0, rverrors.Wrap(rverrors.KindConnection, runErr, fmt.Sprintf("interactive exec of %q failed", command))
}
