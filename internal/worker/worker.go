// Package worker runs face verification in a long-lived Python subprocess.
//
// Protocol: each message is a big-endian uint32 length followed by a JSON body.
// Requests go to the child's stdin, responses come back on file descriptor 3 so
// that library chatter on stdout never corrupts the stream.
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/kozaktomas/faceverify/internal/constants"
	"github.com/kozaktomas/faceverify/internal/verify"
)

// maxResponseSize guards against reading garbage as a length header.
const maxResponseSize = 16 << 20

// ErrWorkerDead is returned when the worker process has exited or its
// response stream is out of sync.
var ErrWorkerDead = errors.New("worker process is not running")

// PythonWorker is a Verifier backed by a Python script. One request is in
// flight at a time. A worker that dies is restarted on the next request.
type PythonWorker struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	stderr   *syncBuffer
	stdin    io.WriteCloser
	dataPipe io.ReadCloser
	model    string
	command  string
	script   string
	dead     bool
}

// Start launches the worker script with the given interpreter.
func Start(command, script, model string) (*PythonWorker, error) {
	w := &PythonWorker{model: model, command: command, script: script}
	if err := w.spawn(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *PythonWorker) spawn() error {
	cmd := exec.Command(w.command, "-u", w.script)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	// Side-channel pipe for responses. The child sees the write end as FD 3.
	r, pw, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("failed to create pipe: %w", err)
	}
	cmd.ExtraFiles = []*os.File{pw}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		r.Close()
		return fmt.Errorf("worker failed to start: %w", err)
	}

	// Only the child holds the write end now.
	pw.Close()

	w.cmd = cmd
	w.stderr = stderr
	w.stdin = stdin
	w.dataPipe = r
	w.dead = false
	return nil
}

// restart reaps a dead child and starts a fresh one. Callers hold w.mu.
func (w *PythonWorker) restart() error {
	if w.command == "" {
		return ErrWorkerDead
	}
	w.stop()
	if err := w.spawn(); err != nil {
		return fmt.Errorf("%w: restart failed: %w", ErrWorkerDead, err)
	}
	return nil
}

// stop closes the pipes and reaps the child. Callers hold w.mu.
func (w *PythonWorker) stop() error {
	var errs []error
	if w.stdin != nil {
		errs = append(errs, w.stdin.Close())
	}
	if w.dataPipe != nil {
		errs = append(errs, w.dataPipe.Close())
	}
	if w.cmd != nil {
		if w.dead && w.cmd.Process != nil {
			w.cmd.Process.Kill()
		}
		errs = append(errs, w.cmd.Wait())
		w.cmd = nil
	}
	return errors.Join(errs...)
}

type request struct {
	Img1             string `json:"img1"`
	Img2             string `json:"img2"`
	Model            string `json:"model_name,omitempty"`
	EnforceDetection bool   `json:"enforce_detection"`
}

type response struct {
	Verified  bool    `json:"verified"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
	Model     string  `json:"model"`
	Error     string  `json:"error,omitempty"`
}

// Verify sends both faces to the worker and returns its decision.
func (w *PythonWorker) Verify(ctx context.Context, a, b image.Image, opts verify.Options) (*verify.Result, error) {
	img1, err := encodeBase64JPEG(a)
	if err != nil {
		return nil, err
	}
	img2, err := encodeBase64JPEG(b)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(request{Img1: img1, Img2: img2, Model: w.model, EnforceDetection: opts.EnforceDetection})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// The pipe protocol has no cancellation; only refuse work that is already abandoned.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if w.dead {
		if err := w.restart(); err != nil {
			return nil, err
		}
	}

	body, err := w.communicate(payload)
	if err != nil {
		// The stream can't be resynchronized after a partial exchange.
		w.dead = true
		if logs := w.Stderr(); logs != "" {
			return nil, fmt.Errorf("%w: %w\n%s", ErrWorkerDead, err, logs)
		}
		return nil, fmt.Errorf("%w: %w", ErrWorkerDead, err)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse worker response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("worker error: %s", resp.Error)
	}
	return &verify.Result{
		Verified:  resp.Verified,
		Distance:  resp.Distance,
		Threshold: resp.Threshold,
		Model:     resp.Model,
	}, nil
}

func (w *PythonWorker) communicate(data []byte) ([]byte, error) {
	if err := binary.Write(w.stdin, binary.BigEndian, uint32(len(data))); err != nil {
		return nil, err
	}
	if _, err := w.stdin.Write(data); err != nil {
		return nil, err
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(w.dataPipe, header); err != nil {
		return nil, err // the child crashed or exited
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > maxResponseSize {
		return nil, fmt.Errorf("response of %d bytes exceeds limit", respLen)
	}
	respBody := make([]byte, respLen)
	_, err := io.ReadFull(w.dataPipe, respBody)
	return respBody, err
}

// Stderr returns everything the child wrote to stderr so far.
func (w *PythonWorker) Stderr() string {
	if w.stderr == nil {
		return ""
	}
	return w.stderr.String()
}

// Close stops the worker and waits for it to exit.
func (w *PythonWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.stop()
}

func encodeBase64JPEG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// syncBuffer is a bytes.Buffer that exec may write to while we read.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
