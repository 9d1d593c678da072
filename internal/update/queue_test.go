package update

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vscripting/internal/uiexec"
)

const testDelay = 40 * time.Millisecond

func waitForFlush(t *testing.T, m *uiexec.Manual) {
	t.Helper()
	require.Eventually(t, func() bool { return m.Pending() > 0 }, time.Second, time.Millisecond)
	m.RunPending()
}

func TestScheduleCoalescesSameKey(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	var got []int
	for i := 1; i <= 5; i++ {
		i := i
		q.Schedule("refresh", func() { got = append(got, i) })
	}
	assert.Equal(t, 1, q.Pending())

	waitForFlush(t, m)
	assert.Equal(t, []int{5}, got)
	assert.True(t, q.IsEmpty())
}

func TestScheduleRestartsDeadline(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	start := time.Now()
	fired := time.Time{}
	var last time.Time
	for i := 0; i < 4; i++ {
		if i > 0 {
			time.Sleep(testDelay / 2)
		}
		last = time.Now()
		q.Schedule("k", func() { fired = time.Now() })
	}

	waitForFlush(t, m)
	require.False(t, fired.IsZero())
	assert.GreaterOrEqual(t, fired.Sub(last), testDelay-5*time.Millisecond)
	assert.Greater(t, fired.Sub(start), testDelay+testDelay/2)
}

func TestNoRestartMeasuresFromFirst(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m, WithRestartTimerOnAdd(false))
	defer q.Dispose()

	q.Schedule("k", func() {})
	first, ok := q.Deadline()
	require.True(t, ok)
	time.Sleep(testDelay / 4)
	q.Schedule("k", func() {})
	second, ok := q.Deadline()
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestDistinctKeysFlushInOrder(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	var got []string
	q.Schedule("a", func() { got = append(got, "a1") })
	q.Schedule("b", func() { got = append(got, "b") })
	q.Schedule("a", func() { got = append(got, "a2") })

	waitForFlush(t, m)
	assert.Equal(t, []string{"a2", "b"}, got)
}

func TestCancel(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	q.Schedule("a", func() { t.Error("cancelled update ran") })
	assert.True(t, q.Cancel("a"))
	assert.False(t, q.Cancel("a"))
	_, armed := q.Deadline()
	assert.False(t, armed)

	time.Sleep(2 * testDelay)
	assert.Equal(t, 0, m.Pending())
}

func TestDisposeDropsPending(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)

	q.Schedule("a", func() { t.Error("update ran after dispose") })
	q.Dispose()
	q.Schedule("b", func() { t.Error("update scheduled after dispose ran") })

	time.Sleep(2 * testDelay)
	m.RunPending()
	assert.True(t, q.IsEmpty())
}

func TestFlushRunsImmediately(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", time.Hour, m)
	defer q.Dispose()

	ran := false
	q.Schedule("a", func() { ran = true })
	q.Flush()
	assert.True(t, ran)
	_, armed := q.Deadline()
	assert.False(t, armed)
}

func TestScheduleDuringFlushWaitsForNextFlush(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	runs := 0
	q.Schedule("a", func() {
		runs++
		q.Schedule("a", func() { runs++ })
	})
	q.Flush()
	assert.Equal(t, 1, runs)
	assert.Equal(t, 1, q.Pending())

	waitForFlush(t, m)
	assert.Equal(t, 2, runs)
}

func TestScheduleWhileFlushQueuedWaitsFullDelay(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m)
	defer q.Dispose()

	var got []int
	var fired time.Time
	q.Schedule("k", func() { got = append(got, 1) })
	require.Eventually(t, func() bool { return m.Pending() > 0 }, time.Second, time.Millisecond)

	last := time.Now()
	q.Schedule("k", func() {
		got = append(got, 2)
		fired = time.Now()
	})
	m.RunPending()
	assert.Empty(t, got)
	assert.Equal(t, 1, q.Pending())
	_, armed := q.Deadline()
	assert.True(t, armed)

	waitForFlush(t, m)
	assert.Equal(t, []int{2}, got)
	assert.GreaterOrEqual(t, fired.Sub(last), testDelay-5*time.Millisecond)
}

func TestNoRestartJoinsQueuedFlush(t *testing.T) {
	m := uiexec.NewManual()
	q := New("test", testDelay, m, WithRestartTimerOnAdd(false))
	defer q.Dispose()

	var got []string
	q.Schedule("a", func() { got = append(got, "a") })
	require.Eventually(t, func() bool { return m.Pending() > 0 }, time.Second, time.Millisecond)

	q.Schedule("b", func() { got = append(got, "b") })
	_, armed := q.Deadline()
	assert.False(t, armed)

	m.RunPending()
	assert.Equal(t, []string{"a", "b"}, got)
	assert.True(t, q.IsEmpty())
}

func TestWithExecutor(t *testing.T) {
	e := uiexec.NewExecutor()
	defer e.Close()
	q := New("test", testDelay, e)
	defer q.Dispose()

	done := make(chan int, 1)
	for i := 0; i < 10; i++ {
		i := i
		q.Schedule("k", func() { done <- i })
	}
	select {
	case v := <-done:
		assert.Equal(t, 9, v)
	case <-time.After(time.Second):
		t.Fatal("update never flushed")
	}
}
