package events

import (
	"fmt"
	"math"
	"sort"
)

// Phase orders events that are due at the same step
type Phase uint8

const (
	Init Phase = iota
	Periodic
	Terminal
)

func (ph Phase) String() string {
	return [...]string{"init", "periodic", "terminal"}[ph]
}

type TriggerKind uint8

const (
	OnStart TriggerKind = iota
	OnTime
	OnTimeInterval
	OnIterInterval
)

// Trigger is the predicate over (iteration, time) that makes an event due
type Trigger struct {
	Kind   TriggerKind
	Time   float64 // OnTime target, or first firing of OnTimeInterval
	Period float64 // OnTimeInterval
	Every  int     // OnIterInterval
	Offset int     // First iteration of OnIterInterval
}

// AtStart fires on the first step of a run
func AtStart() Trigger { return Trigger{Kind: OnStart} }

func AtTime(t float64) Trigger { return Trigger{Kind: OnTime, Time: t} }

// EveryTime fires at t = 0, dt, 2dt, ...
func EveryTime(dt float64) Trigger { return EveryTimeFrom(0, dt) }

func EveryTimeFrom(start, dt float64) Trigger {
	return Trigger{Kind: OnTimeInterval, Time: start, Period: dt}
}

func EveryIter(k int) Trigger { return EveryIterFrom(0, k) }

func EveryIterFrom(offset, k int) Trigger {
	return Trigger{Kind: OnIterInterval, Every: k, Offset: offset}
}

type Action func(iter int, t float64) error

type Event struct {
	Name    string
	Phase   Phase
	Trigger Trigger
	Action  Action
}

type Firing struct {
	Name string
	Iter int
	T    float64
}

type entry struct {
	Event
	order    int
	done     bool // One shot triggers that fired or were skipped
	n        int  // Next OnTimeInterval firing is Time + n*Period
	lastIter int
}

// Scheduler owns the ordered event list of a case
type Scheduler struct {
	entries  []*entry
	history  []Firing
	started  bool
	finished bool
}

func NewScheduler(evs ...Event) (s *Scheduler, err error) {
	s = &Scheduler{}
	for _, ev := range evs {
		if err = s.Add(ev); err != nil {
			return nil, err
		}
	}
	return
}

func (s *Scheduler) Add(ev Event) error {
	tr := ev.Trigger
	switch {
	case ev.Action == nil:
		return fmt.Errorf("event %s has no action", ev.Name)
	case tr.Kind == OnTimeInterval && !(tr.Period > 0):
		return fmt.Errorf("event %s: time interval must be positive, have %g", ev.Name, tr.Period)
	case tr.Kind == OnIterInterval && tr.Every < 1:
		return fmt.Errorf("event %s: iteration interval must be positive, have %d", ev.Name, tr.Every)
	}
	s.entries = append(s.entries, &entry{Event: ev, order: len(s.entries), lastIter: -1})
	return nil
}

// tEps is the tolerance used to decide that time has reached a target
func tEps(target float64) float64 { return 1.e-9 * math.Max(1, math.Abs(target)) }

func reached(t, target float64) bool { return t >= target-tEps(target) }

func (e *entry) target() float64 {
	switch e.Trigger.Kind {
	case OnTime:
		if !e.done {
			return e.Trigger.Time
		}
	case OnTimeInterval:
		return e.Trigger.Time + float64(e.n)*e.Trigger.Period
	}
	return math.Inf(1)
}

// start positions the triggers for a run beginning at t, which is not zero
// after a restart: targets already behind are skipped, except terminal ones
// which fire on the first step so that the run still ends
func (s *Scheduler) start(t float64) {
	for _, e := range s.entries {
		tr := e.Trigger
		switch tr.Kind {
		case OnTime:
			e.done = e.Phase != Terminal && t > tr.Time+tEps(tr.Time)
		case OnTimeInterval:
			if t > tr.Time {
				e.n = int(math.Max(0, math.Ceil((t-tEps(t)-tr.Time)/tr.Period)))
			}
		}
	}
	s.started = true
}

func (e *entry) due(iter int, t float64, first bool) bool {
	if iter == e.lastIter {
		return false
	}
	tr := e.Trigger
	switch tr.Kind {
	case OnStart:
		return first && !e.done
	case OnTime:
		return !e.done && reached(t, tr.Time)
	case OnTimeInterval:
		return reached(t, e.target())
	case OnIterInterval:
		return iter >= tr.Offset && (iter-tr.Offset)%tr.Every == 0
	}
	return false
}

func (e *entry) fired(iter int, t float64) {
	e.lastIter = iter
	switch e.Trigger.Kind {
	case OnStart, OnTime:
		e.done = true
	case OnTimeInterval:
		for reached(t, e.target()) {
			e.n++
		}
	}
}

// Fire runs every event due at (iter, t) in phase, then declaration order.
// It returns true once a terminal event has fired. An action error aborts.
func (s *Scheduler) Fire(iter int, t float64) (finished bool, err error) {
	if s.finished {
		return true, nil
	}
	first := !s.started
	if first {
		s.start(t)
	}
	var due []*entry
	for _, e := range s.entries {
		if e.due(iter, t, first) {
			due = append(due, e)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Phase != due[j].Phase {
			return due[i].Phase < due[j].Phase
		}
		return due[i].order < due[j].order
	})
	for _, e := range due {
		e.fired(iter, t)
		s.history = append(s.history, Firing{Name: e.Name, Iter: iter, T: t})
		if err = e.Action(iter, t); err != nil {
			return true, fmt.Errorf("event %s at t = %g: %w", e.Name, t, err)
		}
		if e.Phase == Terminal {
			s.finished = true
		}
	}
	return s.finished, nil
}

// NextTime is the earliest timed target strictly after t, +Inf if none
func (s *Scheduler) NextTime(t float64) (tnext float64) {
	tnext = math.Inf(1)
	for _, e := range s.entries {
		target := e.target()
		if e.Trigger.Kind == OnTimeInterval {
			for reached(t, target) {
				target += e.Trigger.Period
			}
		}
		if !reached(t, target) && target < tnext {
			tnext = target
		}
	}
	return
}

// ClampDt shortens dt so that time lands exactly on the next timed event. The
// remaining interval is split into equal steps rather than leaving a sliver.
func (s *Scheduler) ClampDt(t, dt float64) float64 {
	tnext := s.NextTime(t)
	if math.IsInf(tnext, 1) {
		return dt
	}
	var (
		span = tnext - t
		n    = math.Floor(span / dt)
	)
	if n == 0 {
		return span
	}
	dt1 := span / n
	if dt1 > dt*(1+1.e-6) {
		return span / (n + 1)
	}
	return dt1
}

func (s *Scheduler) Finished() bool { return s.finished }

func (s *Scheduler) History() []Firing { return s.history }

// Count is the number of firings of the named event
func (s *Scheduler) Count(name string) (n int) {
	for _, f := range s.history {
		if f.Name == name {
			n++
		}
	}
	return
}
