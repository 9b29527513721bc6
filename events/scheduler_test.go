package events

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nop(int, float64) error { return nil }

// run drives the scheduler the way the solve loop does, with a fixed stable step
func run(t *testing.T, s *Scheduler, t0, dtStable float64) (iters int) {
	tt := t0
	for iter := 0; iter < 100000; iter++ {
		finished, err := s.Fire(iter, tt)
		require.NoError(t, err)
		if finished {
			return iter
		}
		tt += s.ClampDt(tt, dtStable)
	}
	t.Fatal("terminal event never fired")
	return
}

func times(s *Scheduler, name string) (ts []float64) {
	for _, f := range s.History() {
		if f.Name == name {
			ts = append(ts, f.T)
		}
	}
	return
}

func TestOutputSchedule(t *testing.T) {
	s, err := NewScheduler(
		Event{Name: "init", Phase: Init, Trigger: AtTime(0), Action: nop},
		Event{Name: "timeseries", Phase: Periodic, Trigger: EveryTime(0.1), Action: nop},
		Event{Name: "end", Phase: Terminal, Trigger: AtTime(6), Action: nop},
	)
	require.NoError(t, err)
	run(t, s, 0, 0.03)
	assert.Equal(t, 61, s.Count("timeseries"))
	var want []float64
	for n := 0; n <= 60; n++ {
		want = append(want, float64(n)*0.1)
	}
	if diff := cmp.Diff(want, times(s, "timeseries"), cmpopts.EquateApprox(0, 1.e-9)); diff != "" {
		t.Errorf("firing times mismatch (-want +got):\n%s", diff)
	}
	h := s.History()
	assert.Equal(t, "init", h[0].Name)
	assert.Equal(t, "timeseries", h[1].Name)
	assert.Equal(t, "end", h[len(h)-1].Name)
	assert.Equal(t, "timeseries", h[len(h)-2].Name)
	assert.Equal(t, 1, s.Count("init"))
	assert.True(t, s.Finished())
	{ // Nothing fires after termination
		finished, err := s.Fire(1.e6, 7)
		assert.NoError(t, err)
		assert.True(t, finished)
		assert.Equal(t, len(h), len(s.History()))
	}
}

func TestOrder(t *testing.T) {
	s, err := NewScheduler(
		Event{Name: "end", Phase: Terminal, Trigger: AtTime(0), Action: nop},
		Event{Name: "b", Phase: Periodic, Trigger: EveryIter(1), Action: nop},
		Event{Name: "a", Phase: Periodic, Trigger: EveryTime(1), Action: nop},
		Event{Name: "init", Phase: Init, Trigger: AtStart(), Action: nop},
	)
	require.NoError(t, err)
	finished, err := s.Fire(0, 0)
	require.NoError(t, err)
	assert.True(t, finished)
	want := []Firing{
		{Name: "init"}, {Name: "b"}, {Name: "a"}, {Name: "end"},
	}
	if diff := cmp.Diff(want, s.History()); diff != "" {
		t.Errorf("firing order mismatch (-want +got):\n%s", diff)
	}
}

func TestIterationTriggers(t *testing.T) {
	var seen []int
	s, err := NewScheduler(
		Event{Name: "adapt", Phase: Periodic, Trigger: EveryIterFrom(3, 5), Action: func(iter int, _ float64) error {
			seen = append(seen, iter)
			return nil
		}},
		Event{Name: "end", Phase: Terminal, Trigger: AtTime(1), Action: nop},
	)
	require.NoError(t, err)
	assert.Equal(t, 100, run(t, s, 0, 0.01))
	assert.Equal(t, []int{3, 8, 13, 18}, seen[:4])
	assert.Equal(t, 20, len(seen))
	{ // At most once per step
		n := len(s.History())
		s.finished = false
		_, err = s.Fire(103, 2)
		require.NoError(t, err)
		_, err = s.Fire(103, 2)
		require.NoError(t, err)
		assert.Equal(t, n+1, len(s.History()))
	}
}

func TestRestart(t *testing.T) {
	s, err := NewScheduler(
		Event{Name: "init", Phase: Init, Trigger: AtTime(0), Action: nop},
		Event{Name: "start", Phase: Init, Trigger: AtStart(), Action: nop},
		Event{Name: "out", Phase: Periodic, Trigger: EveryTime(0.1), Action: nop},
		Event{Name: "end", Phase: Terminal, Trigger: AtTime(2.5), Action: nop},
	)
	require.NoError(t, err)
	run(t, s, 2.05, 0.02)
	assert.Equal(t, 0, s.Count("init"))
	assert.Equal(t, 1, s.Count("start"))
	got := times(s, "out")
	require.Equal(t, 5, len(got))
	assert.InDelta(t, 2.1, got[0], 1.e-9)
	assert.InDelta(t, 2.5, got[4], 1.e-9)
	{ // A terminal time already behind a restart still ends the run
		s, err = NewScheduler(
			Event{Name: "end", Phase: Terminal, Trigger: AtTime(0.2), Action: nop},
			Event{Name: "mark", Phase: Init, Trigger: AtTime(0.1), Action: nop},
		)
		require.NoError(t, err)
		finished, err := s.Fire(7, 0.5)
		require.NoError(t, err)
		assert.True(t, finished)
		assert.Equal(t, 1, s.Count("end"))
		assert.Equal(t, 0, s.Count("mark"))
	}
	{ // Restarting exactly on an output time fires it
		s, err = NewScheduler(Event{Name: "out", Phase: Periodic, Trigger: EveryTime(0.1), Action: nop})
		require.NoError(t, err)
		_, err = s.Fire(0, 2)
		require.NoError(t, err)
		assert.Equal(t, 1, s.Count("out"))
	}
}

func TestClampDt(t *testing.T) {
	s, err := NewScheduler(
		Event{Name: "out", Phase: Periodic, Trigger: EveryTime(0.1), Action: nop},
		Event{Name: "end", Phase: Terminal, Trigger: AtTime(0.25), Action: nop},
	)
	require.NoError(t, err)
	_, err = s.Fire(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.025, s.ClampDt(0, 0.03), 1.e-15)
	assert.InDelta(t, 0.1, s.ClampDt(0, 0.2), 1.e-15)
	assert.InDelta(t, 0.01, s.ClampDt(0.05, 0.01), 1.e-15)
	assert.InDelta(t, 0.05, s.ClampDt(0.2, 1), 1.e-15)
	assert.InDelta(t, 0.25, s.NextTime(0.2), 1.e-15)
	{
		empty, _ := NewScheduler(Event{Name: "adapt", Trigger: EveryIter(1), Action: nop})
		assert.Equal(t, 0.7, empty.ClampDt(3, 0.7))
		assert.True(t, math.IsInf(empty.NextTime(0), 1))
	}
}

func TestErrors(t *testing.T) {
	errBoom := errors.New("boom")
	s, err := NewScheduler(Event{Name: "bad", Trigger: AtStart(), Action: func(int, float64) error { return errBoom }})
	require.NoError(t, err)
	finished, err := s.Fire(0, 0)
	assert.True(t, finished)
	assert.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), "bad")

	_, err = NewScheduler(Event{Name: "x", Trigger: EveryTime(0), Action: nop})
	assert.Error(t, err)
	_, err = NewScheduler(Event{Name: "x", Trigger: EveryIter(0), Action: nop})
	assert.Error(t, err)
	_, err = NewScheduler(Event{Name: "x", Trigger: AtStart()})
	assert.Error(t, err)
	assert.Equal(t, "terminal", Terminal.String())
}
