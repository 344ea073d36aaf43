package remoteexec

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"net"
	"testing"

	"golang.org/x/crypto/ssh"
)

// testSSHServer is a minimal in-process SSH server used to exercise
// Executor without a real cluster login node. It accepts any
// password/public-key auth, and for each "exec" request runs the command
// through a tiny built-in shell that understands ";"-joined "echo"/"cat"/
// "cat >"/"false" statements and the "mkdir -p ... && tar -xzf -" upload
// form — just enough to drive the Executor methods
// under test.
type testSSHServer struct {
	listener net.Listener
	config   *ssh.ServerConfig
	files    *fakeFS
}

func newTestSSHServer(t *testing.T) *testSSHServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generating host key: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(key)
	if err != nil {
		t.Fatalf("building signer: %v", err)
	}

	config := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	config.AddHostKey(signer)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	srv := &testSSHServer{listener: listener, config: config, files: newFakeFS()}
	go srv.serve(t)
	t.Cleanup(func() { listener.Close() })
	return srv
}

func (s *testSSHServer) addr() string {
	return s.listener.Addr().String()
}

func (s *testSSHServer) serve(t *testing.T) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(t, conn)
	}
}

func (s *testSSHServer) handleConn(t *testing.T, conn net.Conn) {
	sc, chans, reqs, err := ssh.NewServerConn(conn, s.config)
	if err != nil {
		return
	}
	defer sc.Close()
	go ssh.DiscardRequests(reqs)

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		channel, requests, err := newChannel.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(channel, requests)
	}
}

// handleSession implements just enough of the "exec" and "pty-req" request
// types to drive Exec, ExecBatch, WriteFile, PullStream, PushStream and
// ExecInteractive in tests.
func (s *testSSHServer) handleSession(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			ssh.Unmarshal(req.Payload, &payload)
			req.Reply(true, nil)

			exitCode := runFakeShell(payload.Command, channel, channel, channel.Stderr(), s.files)
			channel.CloseWrite()
			sendExitStatus(channel, exitCode)
			return
		case "pty-req", "shell":
			req.Reply(true, nil)
		default:
			req.Reply(false, nil)
		}
	}
}

func sendExitStatus(channel ssh.Channel, code int) {
	payload := struct{ Status uint32 }{Status: uint32(code)}
	channel.SendRequest("exit-status", false, ssh.Marshal(&payload))
}

// runFakeShell interprets a tiny subset of shell syntax: ";"-separated
// statements of the form `echo 'literal'`, `cat > 'path'` (reads stdin into
// the fake filesystem), `cat 'path'` (writes fake file content to out),
// `false` (nonzero exit), and `mkdir -p 'dir' && tar -xzf - -C 'dir'`
// (reads the stdin archive bytes verbatim into the fake filesystem under
// dir's synthetic archive key). Good enough to validate ExecBatch's
// delimiter framing and the transfer methods' piping without a real
// remote shell.
func runFakeShell(command string, in io.Reader, out io.Writer, errOut io.Writer, files *fakeFS) int {
	stmts := splitStatements(command)
	lastCode := 0
	for _, stmt := range stmts {
		lastCode = runStatement(stmt, in, out, errOut, files)
	}
	return lastCode
}
