package events

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odestep/internal/dynamo"
	"github.com/san-kum/odestep/internal/roots"
	"github.com/san-kum/odestep/internal/sampling"
)

// maxChecks bounds the number of g evaluations a single handler may spend
// sampling one step.
const maxChecks = 1 << 20

// ScanState is the outcome of scanning one step.
type ScanState int

const (
	Scanning ScanState = iota
	RootFound
	NoEvent
)

func (s ScanState) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case RootFound:
		return "root_found"
	case NoEvent:
		return "no_event"
	default:
		return fmt.Sprintf("scan(%d)", int(s))
	}
}

// Event is one handler firing at an occurrence.
type Event struct {
	Handler    int
	Increasing bool
	Action     Action
}

// Occurrence groups the handlers firing at the same root time. Events are
// sorted by handler index; Action is filled in by Process.
type Occurrence struct {
	Time   float64
	State  dynamo.State
	Events []Event
	// Interpolator is the scanned step truncated at Time.
	Interpolator *sampling.Interpolator
}

// Outcome is the combined effect of an occurrence.
type Outcome struct {
	Action Action
	Time   float64
	// State is the state to resume from: the root state, or the reset state.
	State  dynamo.State
	Events []Event
}

// handlerState is the per-run bookkeeping of one handler.
type handlerState struct {
	// g at the start of the next scan
	g float64
	// time of the last event of this handler, valid when fired is set
	lastEvent float64
	fired     bool
	// g at the root of the current occurrence
	gRoot float64
}

type candidate struct {
	index      int
	root       float64
	increasing bool
}

// Detector watches the registered handlers during one run. It is not safe
// for concurrent use; each run builds its own.
type Detector struct {
	regs  []Registration
	table []handlerState
	dir   dynamo.Direction
	dim   int
}

func NewDetector(regs []Registration) (*Detector, error) {
	for i, r := range regs {
		if r.Handler == nil {
			return nil, fmt.Errorf("%w: handler %d is nil", dynamo.ErrInvalidSettings, i)
		}
		if err := r.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("handler %d: %w", i, err)
		}
	}
	return &Detector{
		regs:  regs,
		table: make([]handlerState, len(regs)),
	}, nil
}

func (d *Detector) Len() int { return len(d.regs) }

// Init resets the table at the start of a run. A handler whose g is zero
// at t0 treats t0 as its last event so the initial root is ignored.
func (d *Detector) Init(t0 float64, y0 dynamo.State, t float64) {
	d.dir = dynamo.DirectionOf(t0, t)
	d.dim = len(y0)
	for i, r := range d.regs {
		r.Handler.Init(t0, y0.Clone(), t)
		d.table[i] = handlerState{}
	}
	d.rearm(t0, y0, nil)
}

// rearm evaluates every handler not listed in skip at (t, y).
func (d *Detector) rearm(t float64, y dynamo.State, skip map[int]bool) {
	for i, r := range d.regs {
		if skip[i] {
			continue
		}
		st := &d.table[i]
		st.g = r.Handler.G(t, y)
		if st.g == 0 {
			st.fired = true
			st.lastEvent = t
		}
	}
}

// Scan looks for the first event inside the soft bounds of in.
func (d *Detector) Scan(in *sampling.Interpolator) (ScanState, *Occurrence, error) {
	if len(d.regs) == 0 {
		return NoEvent, nil, nil
	}

	ta, tb := in.PreviousTime(), in.CurrentTime()
	yb := in.CurrentState()
	gEnd := make([]float64, len(d.regs))
	var found []candidate

	for i, r := range d.regs {
		gEnd[i] = r.Handler.G(tb, yb)
		c, ok, err := d.scanHandler(i, in, ta, tb, gEnd[i])
		if err != nil {
			return Scanning, nil, err
		}
		if ok {
			found = append(found, c)
		}
	}

	if len(found) == 0 {
		for i := range d.table {
			d.table[i].g = gEnd[i]
		}
		return NoEvent, nil, nil
	}

	winner := d.earliest(found)
	truncated, err := in.Truncate(winner.root)
	if err != nil {
		return Scanning, nil, err
	}
	tr := truncated.CurrentTime()
	yr := truncated.CurrentState()

	occ := &Occurrence{Time: tr, State: yr, Interpolator: truncated}
	for _, c := range found {
		if !d.dir.After(c.root, tr) {
			occ.Events = append(occ.Events, Event{Handler: c.index, Increasing: c.increasing})
		}
	}
	sort.Slice(occ.Events, func(a, b int) bool { return occ.Events[a].Handler < occ.Events[b].Handler })

	for i, r := range d.regs {
		d.table[i].gRoot = r.Handler.G(tr, yr)
	}
	return RootFound, occ, nil
}

// scanHandler searches [ta, tb] for the first sign change of handler i.
func (d *Detector) scanHandler(i int, in *sampling.Interpolator, ta, tb, gb float64) (candidate, bool, error) {
	r := d.regs[i]
	st := &d.table[i]

	ts, gs := ta, st.g
	if st.fired {
		// the root just processed must not be found again
		armed := d.dir.Shift(st.lastEvent, r.Settings.window())
		if !d.dir.After(ta, armed) {
			if !d.dir.Before(armed, tb) {
				return candidate{}, false, nil
			}
			y, err := in.StateAt(armed)
			if err != nil {
				return candidate{}, false, err
			}
			ts, gs = armed, r.Handler.G(armed, y)
		}
	}

	n := 1
	if span := math.Abs(tb - ts); !math.IsInf(r.Settings.MaxCheckInterval, 1) {
		checks := math.Ceil(span / r.Settings.MaxCheckInterval)
		if !(checks <= maxChecks) {
			return candidate{}, false, fmt.Errorf("%w: handler %d needs %g checks over [%v, %v] with max check interval %v",
				dynamo.ErrInvalidSettings, i, checks, ts, tb, r.Settings.MaxCheckInterval)
		}
		n = int(math.Max(1, checks))
	}
	h := (tb - ts) / float64(n)

	a, ga := ts, gs
	for k := 1; k <= n; k++ {
		b, g := tb, gb
		if k < n {
			b = ts + float64(k)*h
			y, err := in.StateAt(b)
			if err != nil {
				return candidate{}, false, err
			}
			g = r.Handler.G(b, y)
		}
		if ga != 0 && (g == 0 || (ga > 0) != (g > 0)) {
			root, err := d.locate(i, in, a, b, ga, g)
			if err != nil {
				return candidate{}, false, err
			}
			return candidate{index: i, root: root, increasing: ga < 0}, true, nil
		}
		a, ga = b, g
	}
	return candidate{}, false, nil
}

// locate brackets the root of handler i between a and b, returning the end
// of the final bracket on which g already has its new sign.
func (d *Detector) locate(i int, in *sampling.Interpolator, a, b, ga, gb float64) (float64, error) {
	r := d.regs[i]
	solver := roots.NewBrent(r.Settings.Convergence, r.Settings.MaxIterations)
	g := func(t float64) (float64, error) {
		y, err := in.StateAt(t)
		if err != nil {
			return 0, err
		}
		return r.Handler.G(t, y), nil
	}
	side := roots.RightSide
	if d.dir == dynamo.Backward {
		side = roots.LeftSide
	}
	root, err := solver.Solve(g, a, b, ga, gb, side)
	if err != nil {
		return 0, fmt.Errorf("handler %d: %w", i, err)
	}
	return root, nil
}

// earliest picks the first root in the integration direction. Roots closer
// than the larger of the two convergence thresholds are ties and the lower
// handler index wins.
func (d *Detector) earliest(found []candidate) candidate {
	first := found[0]
	for _, c := range found[1:] {
		if d.dir.Before(c.root, first.root) {
			first = c
		}
	}
	winner := first
	for _, c := range found {
		tol := math.Max(d.regs[c.index].Settings.Convergence, d.regs[first.index].Settings.Convergence)
		if math.Abs(c.root-first.root) <= tol && c.index < winner.index {
			winner = c
		}
	}
	return winner
}

// Process applies the handlers' decisions for occ and updates the table.
func (d *Detector) Process(occ *Occurrence) (*Outcome, error) {
	out := &Outcome{Action: Continue, Time: occ.Time, State: occ.State.Clone()}
	fired := make(map[int]bool, len(occ.Events))

	for _, ev := range occ.Events {
		ev.Action = d.regs[ev.Handler].Handler.EventOccurred(occ.Time, occ.State.Clone(), ev.Increasing)
		if ev.Action > out.Action {
			out.Action = ev.Action
		}
		out.Events = append(out.Events, ev)
		fired[ev.Handler] = true
	}
	if out.Action == Stop {
		return out, nil
	}

	if out.Action == ResetState {
		for _, ev := range out.Events {
			if ev.Action != ResetState {
				continue
			}
			y := d.regs[ev.Handler].Handler.ResetState(occ.Time, out.State.Clone())
			if err := dynamo.CheckDimension(fmt.Sprintf("reset state of handler %d", ev.Handler), y, d.dim); err != nil {
				return nil, err
			}
			out.State = y
		}
	}

	for i := range fired {
		st := &d.table[i]
		st.fired = true
		st.lastEvent = occ.Time
	}

	switch out.Action {
	case ResetState, ResetDerivatives:
		d.rearm(occ.Time, out.State, fired)
	default:
		for i := range d.table {
			if fired[i] {
				continue
			}
			st := &d.table[i]
			st.g = st.gRoot
			if st.g == 0 {
				st.fired = true
				st.lastEvent = occ.Time
			}
		}
	}
	return out, nil
}
