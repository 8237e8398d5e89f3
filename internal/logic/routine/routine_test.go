package routine

import (
	"testing"
	"time"

	"github.com/cjeanneret/daisy/internal/hw/actuator"
	"github.com/cjeanneret/daisy/internal/logic/indexer"
	"github.com/cjeanneret/daisy/internal/logic/presence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIndexer records calls and answers AtSetpoint/IsFull from fields.
type fakeIndexer struct {
	calls []string
	at    bool
	full  bool
	tols  []float64
}

func (f *fakeIndexer) AdvanceOneSlot()          { f.calls = append(f.calls, "advance") }
func (f *fakeIndexer) RetreatOneSlot()          { f.calls = append(f.calls, "retreat") }
func (f *fakeIndexer) DischargeFullRevolution() { f.calls = append(f.calls, "discharge") }
func (f *fakeIndexer) MoveForwardSlowly()       { f.calls = append(f.calls, "jog") }
func (f *fakeIndexer) Stop()                    { f.calls = append(f.calls, "stop") }
func (f *fakeIndexer) IsFull() bool             { return f.full }

func (f *fakeIndexer) AtSetpoint(tol float64) bool {
	f.tols = append(f.tols, tol)
	return f.at
}

type fakeSensor struct {
	dark    bool
	warming bool
}

func (s *fakeSensor) IsDark() bool { return s.dark }
func (s *fakeSensor) Filled() bool { return !s.warming }

func TestMoveRoutines(t *testing.T) {
	cases := []struct {
		name string
		make func(Indexer) Routine
		call string
	}{
		{"discharge", func(ix Indexer) Routine { return NewDischarge(ix, 0.05) }, "discharge"},
		{"advance", func(ix Indexer) Routine { return NewAdvance(ix, 0.05) }, "advance"},
		{"retreat", func(ix Indexer) Routine { return NewRetreat(ix, 0.05) }, "retreat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ix := &fakeIndexer{}
			r := tc.make(ix)
			assert.Equal(t, tc.name, r.Name())

			r.Initialize()
			assert.Equal(t, []string{tc.call}, ix.calls)

			r.Execute()
			assert.False(t, r.IsFinished())
			ix.at = true
			assert.True(t, r.IsFinished())
			r.End(false)

			assert.Equal(t, []string{tc.call}, ix.calls, "the move is commanded once")
			assert.Equal(t, []float64{0.05, 0.05}, ix.tols)
		})
	}
}

func TestJog(t *testing.T) {
	ix := &fakeIndexer{at: true}
	j := NewJog(ix)
	j.Initialize()
	j.Execute()
	j.Execute()
	assert.False(t, j.IsFinished())
	j.End(true)
	assert.Equal(t, []string{"jog", "stop"}, ix.calls, "output is set once, not every tick")
}

func TestLoad(t *testing.T) {
	ix := &fakeIndexer{at: true}
	s := &fakeSensor{}
	l := NewLoad(ix, s, 0.05)
	l.Initialize()

	l.Execute()
	assert.Empty(t, ix.calls, "light station: nothing to load")

	s.dark = true
	l.Execute()
	assert.Equal(t, []string{"advance"}, ix.calls)

	// still dark after the move: wait for the station to clear
	l.Execute()
	assert.Len(t, ix.calls, 1)

	s.dark = false
	l.Execute()
	s.dark = true
	ix.at = false
	l.Execute()
	assert.Len(t, ix.calls, 1, "never advance while moving")

	ix.at = true
	l.Execute()
	assert.Equal(t, []string{"advance", "advance"}, ix.calls)
	assert.Equal(t, 2, l.Loaded())

	assert.False(t, l.IsFinished())
	ix.full = true
	assert.True(t, l.IsFinished())
	s.dark = false
	l.Execute()
	s.dark = true
	l.Execute()
	assert.Len(t, ix.calls, 2, "a full daisy does not advance")
}

func TestLoad_WaitsForFilledWindow(t *testing.T) {
	ix := &fakeIndexer{at: true}
	s := &fakeSensor{dark: true, warming: true}
	l := NewLoad(ix, s, 0.05)
	l.Initialize()

	l.Execute()
	l.Execute()
	assert.Empty(t, ix.calls, "zero-filled window reads dark but holds no item")

	s.warming = false
	l.Execute()
	assert.Equal(t, []string{"advance"}, ix.calls)
}

func TestLoad_FilterWarmUp(t *testing.T) {
	ix := &fakeIndexer{at: true}
	f := presence.NewFilter(10, 0.5)
	l := NewLoad(ix, f, 0.05)
	l.Initialize()

	// lit station: the first nine ticks see zeros in the window
	for i := 0; i < 12; i++ {
		f.Sample(3.0)
		l.Execute()
	}
	assert.Empty(t, ix.calls)
}

func TestLoad_FillsRealController(t *testing.T) {
	drv := actuator.NewSimDriver()
	ctl := indexer.New(drv, indexer.Config{
		Geometry:          indexer.Geometry{Slots: 6, UnitsPerRevolution: 4096},
		ToleranceFraction: 0.05,
		FullSlot:          5,
		Limits:            indexer.OutputLimits{Min: -1, Max: 1},
	})
	s := &fakeSensor{}
	sched := NewScheduler()
	sched.Start(NewLoad(ctl, s, 0.05))

	for tick := 0; tick < 2000 && sched.Active() != nil; tick++ {
		// an item shows up every 50 ticks and stays until the slot moves away
		if tick%50 == 0 {
			s.dark = true
		}
		if drv.Position > 1 && !ctl.AtSetpoint(0.05) {
			s.dark = false
		}
		drv.Step()
		sched.Tick()
	}
	require.Nil(t, sched.Active())
	assert.True(t, ctl.IsFull())
	assert.Equal(t, int64(5), ctl.SlotIndex())
}

func TestWithTimeout(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	ix := &fakeIndexer{}
	j := NewJog(ix)
	r := WithTimeout(j, time.Second, clock)
	assert.Equal(t, "jog", r.Name())

	r.Initialize()
	r.Execute()
	assert.False(t, r.IsFinished())
	now = now.Add(time.Second)
	assert.True(t, r.IsFinished())
	r.End(false)
	assert.Equal(t, []string{"jog", "stop"}, ix.calls)
}

type recorder struct {
	name     string
	events   []string
	finished bool
}

func (r *recorder) Name() string     { return r.name }
func (r *recorder) Initialize()      { r.events = append(r.events, "init") }
func (r *recorder) Execute()         { r.events = append(r.events, "exec") }
func (r *recorder) IsFinished() bool { return r.finished }

func (r *recorder) End(interrupted bool) {
	if interrupted {
		r.events = append(r.events, "interrupted")
	} else {
		r.events = append(r.events, "end")
	}
}

func TestWithTimeout_ExpiryInterrupts(t *testing.T) {
	now := time.Unix(0, 0)
	inner := &recorder{name: "slow"}
	r := WithTimeout(inner, 100*time.Millisecond, func() time.Time { return now })

	s := NewScheduler()
	s.Start(r)
	assert.False(t, s.Tick())
	now = now.Add(150 * time.Millisecond)
	assert.True(t, s.Tick())
	assert.Equal(t, []string{"init", "exec", "exec", "interrupted"}, inner.events)

	// restarting resets the deadline
	inner.events = nil
	s.Start(r)
	assert.False(t, s.Tick())
}

func TestScheduler(t *testing.T) {
	s := NewScheduler()
	assert.False(t, s.Tick(), "idle")
	assert.Equal(t, "", s.ActiveName())

	a := &recorder{name: "a"}
	s.Start(a)
	assert.Equal(t, "a", s.ActiveName())
	assert.False(t, s.Tick())

	b := &recorder{name: "b"}
	s.Start(b)
	assert.Equal(t, []string{"init", "exec", "interrupted"}, a.events)
	assert.Equal(t, "b", s.ActiveName())

	b.finished = true
	assert.True(t, s.Tick())
	assert.Equal(t, []string{"init", "exec", "end"}, b.events)
	assert.Nil(t, s.Active())

	s.Cancel()
	finished, canceled := s.Counts()
	assert.Equal(t, 1, finished)
	assert.Equal(t, 1, canceled)
}
