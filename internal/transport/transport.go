// Package transport implements the LSP base protocol: Content-Length
// framed JSON-RPC 2.0 messages exchanged over a language server's
// stdin/stdout, plus the subprocess plumbing to launch that server.
package transport

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/mcp-broker/lsp-broker/internal/protocol"
)

// stdioReadWriteCloser joins a process's stdin and stdout pipes into a
// single ReadWriteCloser, which is what jsonrpc2's ObjectStream wants.
type stdioReadWriteCloser struct {
	stdin  io.WriteCloser
	stdout io.ReadCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error)  { return s.stdout.Read(p) }
func (s *stdioReadWriteCloser) Write(p []byte) (int, error) { return s.stdin.Write(p) }

func (s *stdioReadWriteCloser) Close() error {
	err1 := s.stdin.Close()
	err2 := s.stdout.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// sanitizeArgs rejects argument strings carrying shell metacharacters.
// Command and args come from language recipes and workspace paths, not
// arbitrary user text; a recipe that trips this is misconfigured.
func sanitizeArgs(args []string) error {
	for _, arg := range args {
		if strings.ContainsAny(arg, ";|&$`") {
			return fmt.Errorf("disallowed shell metacharacter in argument: %q", arg)
		}
	}
	return nil
}

// Transport owns a language server subprocess and the framed JSON-RPC
// byte stream connecting to it. It knows nothing about LSP semantics
// (request IDs, method dispatch) -- that's lspclient.Client's job.
type Transport struct {
	cmd    *exec.Cmd
	stream jsonrpc2.ObjectStream

	writeMu sync.Mutex

	stderrDone chan struct{}
}

// Spawn starts command with args as a language server subprocess and
// wires up a framed JSON-RPC stream to its stdin/stdout. stderr lines
// are forwarded to onStderr as they arrive.
func Spawn(command string, args []string, env []string, onStderr func(line string)) (*Transport, error) {
	if err := sanitizeArgs(args); err != nil {
		return nil, err
	}

	cmd := exec.Command(command, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	rwc := &stdioReadWriteCloser{stdin: stdin, stdout: stdout}
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})

	t := &Transport{
		cmd:        cmd,
		stream:     stream,
		stderrDone: make(chan struct{}),
	}

	go t.pumpStderr(stderr, onStderr)

	return t, nil
}

func (t *Transport) pumpStderr(r io.ReadCloser, onStderr func(string)) {
	defer close(t.stderrDone)
	buf := make([]byte, 4096)
	var partial []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			partial = append(partial, buf[:n]...)
			for {
				idx := indexByte(partial, '\n')
				if idx < 0 {
					break
				}
				if onStderr != nil {
					onStderr(string(partial[:idx]))
				}
				partial = partial[idx+1:]
			}
		}
		if err != nil {
			return
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// ReadMessage blocks until the next framed message arrives on stdout.
func (t *Transport) ReadMessage() (*protocol.Message, error) {
	var msg protocol.Message
	if err := t.stream.ReadObject(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// WriteMessage frames and writes msg to the subprocess's stdin. Writes
// are serialized: jsonrpc2's codec is not safe for concurrent writers.
func (t *Transport) WriteMessage(msg *protocol.Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.stream.WriteObject(msg)
}

// PID returns the subprocess's process ID, or 0 if it never started.
func (t *Transport) PID() int {
	if t.cmd == nil || t.cmd.Process == nil {
		return 0
	}
	return t.cmd.Process.Pid
}

// Wait blocks until the subprocess exits and returns its exit error, if any.
func (t *Transport) Wait() error {
	return t.cmd.Wait()
}

// Terminate sends SIGTERM to the subprocess's entire process group.
func (t *Transport) Terminate() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-t.cmd.Process.Pid, syscall.SIGTERM)
}

// Kill sends SIGKILL to the subprocess's entire process group.
func (t *Transport) Kill() error {
	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-t.cmd.Process.Pid, syscall.SIGKILL)
}

// CloseStream closes the underlying object stream, which in turn closes
// the subprocess's stdin/stdout pipes.
func (t *Transport) CloseStream() error {
	return t.stream.Close()
}
