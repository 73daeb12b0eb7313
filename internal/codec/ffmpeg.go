package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/logger"
)

// stderrLimit caps how much FFmpeg diagnostic output is kept for error messages
const stderrLimit = 4096

// ValidateFFmpegPath resolves the FFmpeg binary. An empty path searches PATH.
func ValidateFFmpegPath(path string) (string, error) {
	if path == "" {
		path = "ffmpeg"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", errors.New(ErrFFmpegNotFound).
			Component("codec").
			Category(errors.CategoryConfiguration).
			Context("ffmpeg_path", path).
			Context("cause", err.Error()).
			Build()
	}
	return resolved, nil
}

// FFmpeg encodes through an ffmpeg child process running libmp3lame. PCM is
// streamed to stdin as interleaved s32le and MP3 bytes are collected from
// stdout in the background, so Encode never blocks on unread output.
type FFmpeg struct {
	path      string
	frameSize int
	log       logger.Logger

	params  Params
	started time.Time
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  *cappedBuffer
	pcm     []byte
	done    chan struct{}
	flushed bool

	mu      sync.Mutex
	pending bytes.Buffer
	readErr error
}

// NewFFmpeg returns a codec that runs the binary at path, which should
// already be validated with ValidateFFmpegPath
func NewFFmpeg(path string) *FFmpeg {
	return &FFmpeg{
		path:      path,
		frameSize: DefaultFrameSize,
		log:       logger.Global().Module("codec"),
	}
}

// FFmpegFactory returns a Factory producing FFmpeg codecs for path
func FFmpegFactory(path string) Factory {
	return func() Codec {
		return NewFFmpeg(path)
	}
}

// FrameSize returns the MPEG-1 Layer III frame length
func (f *FFmpeg) FrameSize() int {
	return f.frameSize
}

// MaxOutputSize returns LAME's worst case for one frame
func (f *FFmpeg) MaxOutputSize() int {
	return MaxOutputFor(f.frameSize)
}

// Init starts the encoder process for a new stream
func (f *FFmpeg) Init(p Params) error {
	if f.cmd != nil {
		if err := f.Close(); err != nil {
			f.log.Warn("previous encoder process did not exit cleanly", logger.Error(err))
		}
	}

	if p.Channels != 1 && p.Channels != 2 {
		return newError(CodeNotInitialized, fmt.Errorf("%w: %d channels", ErrInvalidParams, p.Channels), "init")
	}
	if p.SampleRate <= 0 {
		return newError(CodeNotInitialized, fmt.Errorf("%w: sample rate %d", ErrInvalidParams, p.SampleRate), "init")
	}
	p.BitrateKbps = clampInt(p.BitrateKbps, MinBitrateKbps, MaxBitrateKbps)

	args := buildArgs(p)
	cmd := exec.Command(f.path, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return newError(CodeNotInitialized, err, "stdin pipe")
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return newError(CodeNotInitialized, err, "stdout pipe")
	}
	stderr := &cappedBuffer{limit: stderrLimit}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return newError(CodeNotInitialized, err, "start")
	}

	f.params = p
	f.started = time.Now()
	f.cmd = cmd
	f.stdin = stdin
	f.stderr = stderr
	f.flushed = false
	f.done = make(chan struct{})
	f.mu.Lock()
	f.pending.Reset()
	f.readErr = nil
	f.mu.Unlock()

	if need := f.frameSize * p.Channels * 4; cap(f.pcm) < need {
		f.pcm = make([]byte, need)
	}

	go f.collect(stdout, f.done)

	f.log.Debug("encoder process started",
		logger.Int("pid", cmd.Process.Pid),
		logger.Int("channels", p.Channels),
		logger.Int("sample_rate", p.SampleRate),
		logger.Int("bitrate_kbps", p.BitrateKbps))
	return nil
}

// Encode feeds one block of samples and returns whatever output is ready
func (f *FFmpeg) Encode(left, right []int32, frames int, out []byte) (int, error) {
	if f.cmd == nil || f.flushed {
		return 0, newError(CodeNotInitialized, nil, "encode")
	}
	if frames > f.frameSize {
		return 0, newError(CodeBufferTooSmall, fmt.Errorf("%d frames exceed frame size %d", frames, f.frameSize), "encode")
	}

	pcm := f.pcm[:frames*f.params.Channels*4]
	if f.params.Channels == 2 {
		for i := range frames {
			binary.LittleEndian.PutUint32(pcm[i*8:], uint32(left[i]))
			binary.LittleEndian.PutUint32(pcm[i*8+4:], uint32(right[i]))
		}
	} else {
		for i := range frames {
			binary.LittleEndian.PutUint32(pcm[i*4:], uint32(left[i]))
		}
	}

	if _, err := f.stdin.Write(pcm); err != nil {
		return 0, f.processError(f.withStderr(err), "encode")
	}
	return f.take(out)
}

// Flush ends the input stream on the first call, waits for the process and
// then hands out the remaining bytes across as many calls as needed
func (f *FFmpeg) Flush(out []byte) (int, error) {
	if f.cmd == nil {
		return 0, newError(CodeNotInitialized, nil, "flush")
	}

	if !f.flushed {
		f.flushed = true
		closeErr := f.stdin.Close()
		<-f.done
		if err := f.cmd.Wait(); err != nil {
			return 0, f.processError(f.withStderr(err), "flush")
		}
		if closeErr != nil {
			return 0, f.processError(closeErr, "flush")
		}
		f.mu.Lock()
		readErr := f.readErr
		f.mu.Unlock()
		if readErr != nil {
			return 0, f.processError(readErr, "flush")
		}
	}

	return f.take(out)
}

// processError reports a failure of the running process together with how
// long it had been running
func (f *FFmpeg) processError(cause error, operation string) error {
	return errors.New(&Error{Code: CodeProcessFailed, Err: cause}).
		Component("codec").
		Category(errors.CategoryCodec).
		Timing(operation, time.Since(f.started)).
		Context("code", int(CodeProcessFailed)).
		Build()
}

// Close stops the encoder process if it is still running
func (f *FFmpeg) Close() error {
	if f.cmd == nil {
		return nil
	}
	cmd := f.cmd
	f.cmd = nil

	if f.flushed {
		return nil
	}

	_ = f.stdin.Close()
	_ = cmd.Process.Kill()
	<-f.done
	// A killed process always reports an exit error
	_ = cmd.Wait()
	f.log.Debug("encoder process stopped before flush", logger.Int("pid", cmd.Process.Pid))
	return nil
}

func (f *FFmpeg) take(out []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := f.pending.Read(out)
	return n, nil
}

func (f *FFmpeg) collect(r io.Reader, done chan<- struct{}) {
	defer close(done)
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			f.mu.Lock()
			f.pending.Write(buf[:n])
			f.mu.Unlock()
		}
		if err != nil {
			if err != io.EOF {
				f.mu.Lock()
				f.readErr = err
				f.mu.Unlock()
			}
			return
		}
	}
}

func (f *FFmpeg) withStderr(err error) error {
	if msg := bytes.TrimSpace(f.stderr.Bytes()); len(msg) > 0 {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// buildArgs constructs the ffmpeg command line for a raw PCM to MP3 pipe
func buildArgs(p Params) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", "s32le", // left-justified 32-bit samples
		"-ar", strconv.Itoa(p.SampleRate),
		"-ac", strconv.Itoa(p.Channels),
		"-i", "pipe:0",
		"-c:a", "libmp3lame",
		"-b:a", strconv.Itoa(p.BitrateKbps) + "k",
		"-f", "mp3",
		"pipe:1",
	}
}

// cappedBuffer keeps the first limit bytes written to it
type cappedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if room := c.limit - c.buf.Len(); room > 0 {
		c.buf.Write(p[:min(len(p), room)])
	}
	return len(p), nil
}

func (c *cappedBuffer) Bytes() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Clone(c.buf.Bytes())
}
