package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/wavenc/internal/codec"
	"github.com/tphakala/wavenc/internal/errors"
	"github.com/tphakala/wavenc/internal/wave"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeStereoWAV renders a 16-bit stereo ramp of frames samples per channel
func writeStereoWAV(t *testing.T, dir, name string, frames int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, frames*2)
	for i := range frames {
		data[2*i] = i % 0x7FFF
		data[2*i+1] = -(i % 0x7FFF)
	}
	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: 44100, NumChannels: 2},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func newTestTask(t *testing.T, id int, src, dstDir string) *Task {
	t.Helper()
	info, err := wave.Probe(src)
	require.NoError(t, err)
	return NewTask(id, src, filepath.Join(dstDir, fmt.Sprintf("out-%d.mp3", id)), info)
}

// collect drains notifications until want tasks have finished
func collect(t *testing.T, p *Pool, want int) (started, finished []Notification) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, f := p.DrainNotifications()
		started = append(started, s...)
		finished = append(finished, f...)
		return len(finished) >= want
	}, 10*time.Second, 5*time.Millisecond)
	return started, finished
}

func TestPhaseAdvance(t *testing.T) {
	t.Parallel()

	task := NewTask(1, "a.wav", "a.mp3", wave.Info{})
	assert.Equal(t, PhaseQueued, task.Phase())
	assert.False(t, task.Advance(PhaseFinished), "skipping Started is refused")
	assert.True(t, task.Advance(PhaseStarted))
	assert.False(t, task.Advance(PhaseQueued), "regression is refused")
	assert.False(t, task.Advance(PhaseStarted))
	assert.True(t, task.Advance(PhaseFinished))
	assert.Equal(t, PhaseFinished, task.Phase())
}

func TestEnumStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "started", PhaseStarted.String())
	assert.Equal(t, "bad_destination", ResultBadDestination.String())
	assert.Equal(t, "running", WorkerRunning.String())

	text, err := ResultSystemError.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "system_error", string(text))
}

func TestCancelToken(t *testing.T) {
	t.Parallel()

	var tok CancelToken
	assert.False(t, tok.Cancelled())
	tok.RequestCancel()
	tok.RequestCancel()
	assert.True(t, tok.Cancelled())
	tok.Reset()
	assert.False(t, tok.Cancelled())
}

func TestEndToEndSingleStereoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeStereoWAV(t, dir, "in.wav", 1000)
	task := newTestTask(t, 1, src, dir)
	assert.Equal(t, int64(1000), task.Info.SampleCount)

	shared := newFakeShared(64)
	pool := NewPool(1, shared.factory())
	require.NoError(t, pool.Start())
	defer pool.Stop()

	require.True(t, pool.Submit(task))
	started, finished := collect(t, pool, 1)

	require.Len(t, started, 1)
	require.Len(t, finished, 1)
	assert.Equal(t, Notification{TaskID: 1, Phase: PhaseStarted, Result: ResultSuccess}, started[0])
	assert.Equal(t, ResultSuccess, finished[0].Result)
	assert.Empty(t, finished[0].Message)

	stat, err := os.Stat(task.DestinationPath)
	require.NoError(t, err)
	assert.Equal(t, int64(1000+4), stat.Size(), "one byte per frame plus trailer")
	assert.Equal(t, int64(1000+4), task.BytesWritten())
	assert.Equal(t, ResultSuccess, task.Result())
	assert.False(t, task.Cancelled())
}

func TestTaskFailures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	good := writeStereoWAV(t, dir, "good.wav", 300)

	raw, err := os.ReadFile(good)
	require.NoError(t, err)

	corrupted := filepath.Join(dir, "corrupted.wav")
	bad := slices.Clone(raw)
	copy(bad[8:12], "WAVX")
	require.NoError(t, os.WriteFile(corrupted, bad, 0o600))

	truncated := filepath.Join(dir, "truncated.wav")
	require.NoError(t, os.WriteFile(truncated, raw[:len(raw)/2], 0o600))

	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	tests := []struct {
		name      string
		src       string
		dst       string
		encodeErr error
		want      Result
	}{
		{"corrupted form id", corrupted, filepath.Join(dir, "c.mp3"), nil, ResultBadSource},
		{"truncated data", truncated, filepath.Join(dir, "t.mp3"), nil, ResultBadSource},
		{"destination not creatable", good, filepath.Join(blocker, "x.mp3"), nil, ResultBadDestination},
		{"codec failure", good, filepath.Join(dir, "e.mp3"), &codec.Error{Code: codec.CodePsychoAcoustic}, ResultSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			shared := newFakeShared(64)
			shared.encodeErr = tt.encodeErr
			pool := NewPool(1, shared.factory())
			require.NoError(t, pool.Start())
			defer pool.Stop()

			task := NewTask(7, tt.src, tt.dst, wave.Info{})
			require.True(t, pool.Submit(task))
			_, finished := collect(t, pool, 1)

			require.Len(t, finished, 1)
			assert.Equal(t, tt.want, finished[0].Result)
			assert.NotEmpty(t, finished[0].Message)
			assert.Equal(t, tt.want, task.Result())
		})
	}
}

func TestCorruptedSourceWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := filepath.Join(dir, "bad.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF\x10\x00\x00\x00WAVXjunkjunk"), 0o600))

	shared := newFakeShared(64)
	pool := NewPool(1, shared.factory())
	require.NoError(t, pool.Start())
	defer pool.Stop()

	task := NewTask(1, src, filepath.Join(dir, "bad.mp3"), wave.Info{})
	require.True(t, pool.Submit(task))
	_, finished := collect(t, pool, 1)

	assert.Equal(t, ResultBadSource, finished[0].Result)
	assert.Zero(t, task.BytesWritten())
	assert.NoFileExists(t, task.DestinationPath)
}

func TestAtMostPoolSizeInFlight(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	const workers, tasks = 3, 12

	shared := newFakeShared(32)
	pool := NewPool(workers, shared.factory())
	require.NoError(t, pool.Start())
	defer pool.Stop()

	for i := range tasks {
		src := writeStereoWAV(t, dir, fmt.Sprintf("in-%d.wav", i), 2000)
		require.True(t, pool.Submit(newTestTask(t, i, src, dir)))
	}

	inProgress := map[int]bool{}
	maxInProgress := 0
	var started, finished []Notification
	require.Eventually(t, func() bool {
		s, f := pool.DrainNotifications()
		started = append(started, s...)
		finished = append(finished, f...)

		finishedNow := map[int]bool{}
		for _, n := range f {
			finishedNow[n.TaskID] = true
			delete(inProgress, n.TaskID)
		}
		for _, n := range s {
			if !finishedNow[n.TaskID] {
				inProgress[n.TaskID] = true
			}
		}
		maxInProgress = max(maxInProgress, len(inProgress))
		return len(finished) == tasks
	}, 20*time.Second, time.Millisecond)

	assert.LessOrEqual(t, maxInProgress, workers)
	assert.LessOrEqual(t, int(shared.maxActive.Load()), workers)
	assert.Len(t, started, tasks)
	assert.Equal(t, int32(tasks), shared.inits.Load())
	for _, n := range finished {
		assert.Equal(t, ResultSuccess, n.Result)
	}
}

func TestStopWithQueuedTasks(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	const workers, total = 3, 8

	shared := newFakeShared(16)
	shared.gate = make(chan struct{})
	defer shared.release()

	pool := NewPool(workers, shared.factory())
	require.NoError(t, pool.Start())

	var all []*Task
	for i := range total {
		src := writeStereoWAV(t, dir, fmt.Sprintf("in-%d.wav", i), 1000)
		task := newTestTask(t, i, src, dir)
		all = append(all, task)
		require.True(t, pool.Submit(task))
	}

	// every worker is parked inside Encode, so 5 of 8 tasks remain queued
	var started []Notification
	require.Eventually(t, func() bool {
		s, _ := pool.DrainNotifications()
		started = append(started, s...)
		return len(started) == workers
	}, 5*time.Second, time.Millisecond)
	assert.Equal(t, total-workers, pool.QueueLen())

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()
	require.Eventually(t, func() bool { return !pool.Running() }, time.Second, time.Millisecond)
	assert.False(t, pool.Submit(all[0]))

	shared.release()
	select {
	case <-stopped:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not stop")
	}

	lateStarted, finished := pool.DrainNotifications()
	assert.Empty(t, lateStarted, "no queued task starts after stop")
	require.Len(t, finished, workers)

	startedIDs := make([]int, 0, workers)
	for _, n := range started {
		startedIDs = append(startedIDs, n.TaskID)
	}
	finishedIDs := make([]int, 0, workers)
	for _, n := range finished {
		finishedIDs = append(finishedIDs, n.TaskID)
		assert.Equal(t, messageCancelled, n.Message)
	}
	slices.Sort(startedIDs)
	slices.Sort(finishedIDs)
	assert.Equal(t, startedIDs, finishedIDs)

	abandoned := pool.Abandoned()
	require.Len(t, abandoned, total-workers)
	for _, task := range abandoned {
		assert.NotContains(t, startedIDs, task.ID)
	}
	assert.Equal(t, int32(workers), shared.inits.Load())
}

func TestStartIsAllOrNothing(t *testing.T) {
	t.Parallel()

	calls := 0
	factory := func() codec.Codec {
		calls++
		if calls == 3 {
			return &fakeCodec{shared: newFakeShared(0)}
		}
		return &fakeCodec{shared: newFakeShared(64)}
	}

	pool := NewPool(4, factory)
	err := pool.Start()
	require.ErrorIs(t, err, ErrCodecLimits)
	assert.True(t, errors.IsCategory(err, errors.CategoryWorker))
	assert.False(t, pool.Running())
	assert.False(t, pool.Submit(NewTask(1, "a", "b", wave.Info{})))

	// goleak in TestMain confirms the two started workers exited
	pool.Stop()
}

func TestStartValidation(t *testing.T) {
	t.Parallel()

	pool := NewPool(0, newFakeShared(64).factory())
	require.ErrorIs(t, pool.Start(), ErrInvalidPoolSize)

	pool = NewPool(1, newFakeShared(64).factory())
	require.NoError(t, pool.Start())
	require.ErrorIs(t, pool.Start(), ErrPoolRunning)
	pool.Stop()
	pool.Stop()

	started, finished := pool.DrainNotifications()
	assert.Empty(t, started)
	assert.Empty(t, finished)
}

func TestCancelledBeforeFirstBlock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := writeStereoWAV(t, dir, "in.wav", 500)
	shared := newFakeShared(64)

	w, err := newWorker(0, shared.factory(), nil, nil, defaultOptions())
	require.NoError(t, err)
	w.token.RequestCancel()

	o := w.process(NewTask(1, src, filepath.Join(dir, "out.mp3"), wave.Info{}))
	assert.True(t, o.cancelled)
	assert.Equal(t, ResultSuccess, o.result)
	assert.Equal(t, messageCancelled, o.message)
	assert.Zero(t, o.bytesWritten)
	assert.Zero(t, shared.active.Load(), "codec closed after cancellation")
}

type countingRecorder struct {
	started  int
	finished map[string]int
}

func (r *countingRecorder) TaskStarted() { r.started++ }

func (r *countingRecorder) TaskFinished(result string, _ float64, _ int64) {
	r.finished[result]++
}

func TestRecorderSeesEveryTask(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := &countingRecorder{finished: map[string]int{}}
	pool := NewPool(1, newFakeShared(64).factory(), WithRecorder(rec), WithBitrate(128), WithCancelCheckInterval(5))
	require.NoError(t, pool.Start())

	src := writeStereoWAV(t, dir, "in.wav", 100)
	require.True(t, pool.Submit(newTestTask(t, 1, src, dir)))
	require.True(t, pool.Submit(NewTask(2, filepath.Join(dir, "missing.wav"), filepath.Join(dir, "m.mp3"), wave.Info{})))
	collect(t, pool, 2)
	pool.Stop()

	// a single worker makes the recorder effectively single-threaded
	assert.Equal(t, 2, rec.started)
	assert.Equal(t, map[string]int{"success": 1, "bad_source": 1}, rec.finished)
}
