package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/fsindex/internal/index"
)

func TestPlainRenderer_Update(t *testing.T) {
	tests := []struct {
		name string
		p    index.Progress
		want string
	}{
		{
			name: "known total",
			p:    index.Progress{Stage: index.StageWriting, Processed: 120, Total: 500, CurrentPath: "/data/a.pdf"},
			want: "[WRITE] 120/500 (24%) /data/a.pdf\n",
		},
		{
			name: "unknown total",
			p:    index.Progress{Stage: index.StageScanning, Processed: 7, CurrentPath: "/data/b.txt"},
			want: "[SCAN] 7 /data/b.txt\n",
		},
		{
			name: "done is left to Complete",
			p:    index.Progress{Stage: index.StageDone, Processed: 500, Total: 500},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			r := NewPlainRenderer(Config{Output: buf})

			r.Update(tt.p)

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestPlainRenderer_Complete(t *testing.T) {
	t.Run("completed run", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(Config{Output: buf})

		r.Complete(&index.Result{
			Indexed: 10, Embedded: 8, Skipped: 2, Errors: 1, Deleted: 3,
			Duration: 1500 * time.Millisecond, State: index.StateCompleted,
		}, nil)

		out := buf.String()
		assert.Contains(t, out, "Complete: 10 indexed, 8 embedded, 2 skipped, 1 errors in 1.5s")
		assert.Contains(t, out, "Removed 3 vanished entries")
		assert.NotContains(t, out, "\x1b[")
	})

	t.Run("failed run shows the error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(Config{Output: buf})

		r.Complete(&index.Result{State: index.StateFailed}, errors.New("disk full"))

		assert.Contains(t, buf.String(), "Failed: 0 indexed")
		assert.Contains(t, buf.String(), "Error: disk full")
	})

	t.Run("cancelled run", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(Config{Output: buf})

		r.Complete(&index.Result{Indexed: 4, State: index.StateCancelled}, errors.New("cancelled"))

		assert.Contains(t, buf.String(), "Cancelled: 4 indexed")
		assert.NotContains(t, buf.String(), "Error:")
	})

	t.Run("run that never started", func(t *testing.T) {
		buf := &bytes.Buffer{}
		r := NewPlainRenderer(Config{Output: buf})

		r.Complete(nil, errors.New("already running"))

		assert.Equal(t, "Indexing failed: already running\n", buf.String())
	})
}

func TestDrive(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(Config{Output: buf})
	ch := make(chan index.Progress, 3)
	ch <- index.Progress{Stage: index.StageWriting, Processed: 1, Total: 2}
	ch <- index.Progress{Stage: index.StageWriting, Processed: 2, Total: 2}
	ch <- index.Progress{Stage: index.StageDone, Processed: 2, Total: 2}
	close(ch)

	Drive(r, ch, nil)

	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}

func TestDrive_StopsWhenChannelStaysOpen(t *testing.T) {
	// Given: a progress channel nobody will close
	r := NewPlainRenderer(Config{Output: &bytes.Buffer{}})
	ch := make(chan index.Progress)
	stop := make(chan struct{})
	done := make(chan struct{})

	// When
	go func() {
		defer close(done)
		Drive(r, ch, stop)
	}()
	close(stop)

	// Then: Drive returns
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Drive did not return after stop")
	}
}

func TestNewRenderer_PlainForNonTTY(t *testing.T) {
	r := NewRenderer(Config{Output: &bytes.Buffer{}})
	assert.IsType(t, &PlainRenderer{}, r)

	r = NewRenderer(Config{Output: &bytes.Buffer{}, ForcePlain: true})
	assert.IsType(t, &PlainRenderer{}, r)
}

func TestDetectCI(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	assert.True(t, DetectCI())
}

func TestIsTTY_NonFile(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}
