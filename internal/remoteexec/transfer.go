package remoteexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	rverrors "github.com/rvcli/rv/pkg/errors"
)

// WriteFile writes data to remotePath on the remote host by piping it
// through a single "cat > path" session — no intermediate temp file on
// either side.
func (e *Executor) WriteFile(ctx context.Context, remotePath string, data []byte, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	session, err := e.client.NewSession()
	if err != nil {
		return rverrors.WrapConnection(err)
	}
	defer session.Close()

	session.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() { done <- session.Run(fmt.Sprintf("cat > %s", shellQuote(remotePath))) }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return rverrors.New(rverrors.KindConnection, "writeFile timed out")
	case err := <-done:
		if err != nil {
			return rverrors.Wrap(rverrors.KindConnection, err, "writeFile: "+stderr.String())
		}
		return nil
	}
}

// PullStream reads remotePath from the remote host and writes it to the
// local file at localPath, streaming through the session's stdout pipe
// rather than buffering the whole file in memory.
func (e *Executor) PullStream(ctx context.Context, remotePath, localPath string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	session, err := e.client.NewSession()
	if err != nil {
		return rverrors.WrapConnection(err)
	}
	defer session.Close()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return rverrors.WrapConnection(err)
	}

	local, err := os.Create(localPath)
	if err != nil {
		return rverrors.Wrap(rverrors.KindConnection, err, "creating local file for pull")
	}
	defer local.Close()

	if err := session.Start(fmt.Sprintf("cat %s", shellQuote(remotePath))); err != nil {
		return rverrors.WrapConnection(err)
	}

	copyDone := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(local, stdout)
		copyDone <- copyErr
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return rverrors.New(rverrors.KindConnection, "pullStream timed out")
	case copyErr := <-copyDone:
		waitErr := session.Wait()
		if copyErr != nil {
			return rverrors.Wrap(rverrors.KindConnection, copyErr, "pullStream copy")
		}
		if waitErr != nil {
			if exitErr, ok := waitErr.(interface{ ExitStatus() int }); ok {
				return rverrors.RemoteExit(exitErr.ExitStatus(), waitErr.Error())
			}
			return rverrors.WrapConnection(waitErr)
		}
		return nil
	}
}

// PushStream writes the local file at localPath to remotePath on the remote
// host, streaming through the session's stdin pipe.
func (e *Executor) PushStream(ctx context.Context, localPath, remotePath string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	local, err := os.Open(localPath)
	if err != nil {
		return rverrors.Wrap(rverrors.KindConnection, err, "opening local file for push")
	}
	defer local.Close()

	session, err := e.client.NewSession()
	if err != nil {
		return rverrors.WrapConnection(err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return rverrors.WrapConnection(err)
	}

	if err := session.Start(fmt.Sprintf("cat > %s", shellQuote(remotePath))); err != nil {
		return rverrors.WrapConnection(err)
	}

	copyDone := make(chan error, 1)
	go func() {
		_, copyErr := io.Copy(stdin, local)
		stdin.Close()
		copyDone <- copyErr
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return rverrors.New(rverrors.KindConnection, "pushStream timed out")
	case copyErr := <-copyDone:
		waitErr := session.Wait()
		if copyErr != nil {
			return rverrors.Wrap(rverrors.KindConnection, copyErr, "pushStream copy")
		}
		if waitErr != nil {
			return rverrors.WrapConnection(waitErr)
		}
		return nil
	}
}

// PushStreamWithList packages the named files under localDir into a tar
// stream and unpacks it into remoteDir on the remote host in one round
// trip, instead of one PushStream call per file. fileList entries are
// relative to localDir.
func (e *Executor) PushStreamWithList(ctx context.Context, localDir, remoteDir string, fileList []string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if len(fileList) == 0 {
		return nil
	}

	session, err := e.client.NewSession()
	if err != nil {
		return rverrors.WrapConnection(err)
	}
	defer session.Close()

	stdin, err := session.StdinPipe()
	if err != nil {
		return rverrors.WrapConnection(err)
	}

	mkdir := fmt.Sprintf("mkdir -p %s", shellQuote(remoteDir))
	untar := fmt.Sprintf("tar -xzf - -C %s", shellQuote(remoteDir))
	cmd := mkdir + " && " + untar

	if err := session.Start(cmd); err != nil {
		return rverrors.WrapConnection(err)
	}

	copyDone := make(chan error, 1)
	go func() {
		copyDone <- writeTarArchive(stdin, localDir, fileList)
	}()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL)
		return rverrors.New(rverrors.KindConnection, "pushStreamWithList timed out")
	case copyErr := <-copyDone:
		waitErr := session.Wait()
		if copyErr != nil {
			return rverrors.Wrap(rverrors.KindConnection, copyErr, "pushStreamWithList archive")
		}
		if waitErr != nil {
			return rverrors.WrapConnection(waitErr)
		}
		return nil
	}
}

// shellQuote wraps a path in single quotes for safe use in a remote shell
// command, escaping any embedded single quote.
func shellQuote(path string) string {
	escaped := ""
	for _, r := range path {
		if r == '\'' {
			escaped += `'\''`
		} else {
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}
