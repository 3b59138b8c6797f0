package reembed

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressTracker_Add(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(25)
	tracker.Add(25)
	tracker.Add(50)

	assert.Equal(t, 100, tracker.Current())
	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	assert.Contains(t, buf.String(), "100/100 chunks (100.0%)")
}

func TestProgressTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 100)
	tracker.Start()

	tracker.Add(50)
	assert.Empty(t, buf.String(), "should not print under interval")

	tracker.Add(50)
	assert.Contains(t, buf.String(), "100/1000")

	buf.Reset()
	tracker.Add(150)
	assert.Contains(t, buf.String(), "250/1000")
}

func TestProgressTracker_CapsAtTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(150)

	assert.Equal(t, 100, tracker.Current())
	assert.Contains(t, buf.String(), "100/100")
}

func TestProgressTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Start()
	tracker.Add(75)
	tracker.Finish(true)

	output := buf.String()
	assert.Contains(t, output, "100/100")
	assert.True(t, strings.HasSuffix(output, "\n"))
}

func TestProgressTracker_FinishIncomplete(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 1000)

	tracker.Start()
	tracker.Add(40)
	tracker.Finish(false)

	assert.Contains(t, buf.String(), "40/100 chunks (40.0%)")
	assert.NotContains(t, buf.String(), "100/100")
}

func TestProgressTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 0, 10)

	tracker.Start()
	tracker.Finish(true)
	assert.Contains(t, buf.String(), "0/0 chunks (0.0%)")
}

func TestProgressTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 100, 10)

	tracker.Add(10)
	tracker.Finish(true)

	assert.Empty(t, buf.String())
	assert.Zero(t, tracker.Elapsed())
}

func TestProgressTracker_Concurrent(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewProgressTracker(&buf, 1000, 100)
	tracker.Start()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				tracker.Add(10)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1000, tracker.Current())
}
