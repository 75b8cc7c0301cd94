package input

import (
	"reflect"
	"testing"

	"github.com/cwbudde/algo-keys/keys"
	"github.com/cwbudde/algo-keys/piano"
)

type call struct {
	op string
	id keys.Identity
	hz float64
}

type recorder struct {
	calls   []call
	ensures int
}

func (r *recorder) EnsureActive() { r.ensures++ }

func (r *recorder) Trigger(id keys.Identity, hz float64) {
	r.calls = append(r.calls, call{op: "trigger", id: id, hz: hz})
}

func (r *recorder) Release(id keys.Identity) {
	r.calls = append(r.calls, call{op: "release", id: id})
}

func (r *recorder) count(op string, id keys.Identity) int {
	n := 0
	for _, c := range r.calls {
		if c.op == op && c.id == id {
			n++
		}
	}
	return n
}

var (
	c4  = keys.Identity{Note: keys.C, Octave: 4}
	cs4 = keys.Identity{Note: keys.CSharp, Octave: 4}
	d4  = keys.Identity{Note: keys.D, Octave: 4}
	e4  = keys.Identity{Note: keys.E, Octave: 4}
	c5  = keys.Identity{Note: keys.C, Octave: 5}
	c6  = keys.Identity{Note: keys.C, Octave: 6}
)

// Default layout: 8 white keys of 80 px, black keys in the top 124 px.
const lowY = 180

func whiteX(i int) float64 { return float64(i)*80 + 40 }

func TestPointerPressTriggersOnce(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.PointerDown(whiteX(0), lowY)

	if len(r.calls) != 1 || r.calls[0].op != "trigger" || r.calls[0].id != c4 {
		t.Fatalf("expected a single C4 trigger, got %+v", r.calls)
	}
	if r.calls[0].hz != keys.FrequencyOf(c4) {
		t.Fatalf("expected frequency of C4: got=%f want=%f", r.calls[0].hz, keys.FrequencyOf(c4))
	}
	if r.ensures != 1 {
		t.Fatalf("expected EnsureActive before trigger, got %d", r.ensures)
	}
	if !c.Active(c4) || !c.Dragging() {
		t.Fatalf("expected C4 active while dragging")
	}
}

func TestPointerPressOutsideKeysIsIgnored(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.PointerDown(-10, 50)
	c.PointerMove(whiteX(1), lowY)
	if len(r.calls) != 0 || c.Dragging() {
		t.Fatalf("expected no calls and no drag, got %+v", r.calls)
	}
}

func TestPointerDragMovesBetweenKeys(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.PointerDown(whiteX(0), lowY)
	c.PointerMove(whiteX(0)+5, lowY) // same key
	c.PointerMove(whiteX(1), lowY)
	c.PointerMove(80, 50) // black key between C and D

	want := []call{
		{op: "trigger", id: c4, hz: keys.FrequencyOf(c4)},
		{op: "release", id: c4},
		{op: "trigger", id: d4, hz: keys.FrequencyOf(d4)},
		{op: "release", id: d4},
		{op: "trigger", id: cs4, hz: keys.FrequencyOf(cs4)},
	}
	if !reflect.DeepEqual(r.calls, want) {
		t.Fatalf("unexpected drag calls:\n got=%+v\nwant=%+v", r.calls, want)
	}

	c.PointerMove(700, lowY) // off the keyboard
	if c.Active(cs4) || r.count("release", cs4) != 1 {
		t.Fatalf("expected leaving the keys to release C#4")
	}
}

func TestPointerUpReleasesEveryActiveKey(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.KeyDown("a", false)
	c.TouchStart(1, whiteX(2), lowY)
	c.PointerDown(whiteX(1), lowY)

	c.PointerUp()
	for _, id := range []keys.Identity{c4, d4, e4} {
		if r.count("release", id) != 1 {
			t.Fatalf("expected one release of %s, calls=%+v", id, r.calls)
		}
	}
	if len(c.ActiveKeys()) != 0 || c.Dragging() {
		t.Fatalf("expected idle coordinator with nothing active")
	}

	// Late release events from the other sources must not release again.
	c.KeyUp("a")
	c.TouchEnd(1)
	if r.count("release", c4) != 1 || r.count("release", e4) != 1 {
		t.Fatalf("expected no duplicate releases, calls=%+v", r.calls)
	}
}

func TestPointerUpOutsideWithNothingActiveIsNoop(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.PointerUp()
	if len(r.calls) != 0 {
		t.Fatalf("expected no calls, got %+v", r.calls)
	}
}

func TestMultiTouchChord(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.TouchStart(7, whiteX(0), lowY)
	c.TouchStart(9, whiteX(2), lowY)
	if !c.Active(c4) || !c.Active(e4) || c.Touches() != 2 {
		t.Fatalf("expected two independent touches, active=%v", c.ActiveKeys())
	}

	c.TouchEnd(7)
	if c.Active(c4) || !c.Active(e4) {
		t.Fatalf("expected only C4 released, active=%v", c.ActiveKeys())
	}
	if r.count("release", e4) != 0 {
		t.Fatalf("expected E4 to keep sounding")
	}

	c.TouchEnd(42) // untracked
	c.TouchCancel(9)
	if len(c.ActiveKeys()) != 0 || r.count("release", e4) != 1 {
		t.Fatalf("expected cancel to release E4 once")
	}
}

func TestTouchMoveSlidesHold(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.TouchStart(1, whiteX(0), lowY)
	c.TouchMove(1, whiteX(1), lowY)
	if c.Active(c4) || !c.Active(d4) {
		t.Fatalf("expected hold to move to D4, active=%v", c.ActiveKeys())
	}
	c.TouchMove(1, whiteX(1), -20)
	if len(c.ActiveKeys()) != 0 || c.Touches() != 0 {
		t.Fatalf("expected sliding off the keys to end the touch")
	}
	c.TouchMove(1, whiteX(0), lowY)
	if len(c.ActiveKeys()) != 0 {
		t.Fatalf("expected ended touch to stay ended")
	}
}

func TestSharedKeyReleasedByLastHolder(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.TouchStart(1, whiteX(0), lowY)
	c.KeyDown("a", false)
	if r.count("trigger", c4) != 1 || c.Holders(c4) != 2 {
		t.Fatalf("expected one trigger and two holders, calls=%+v", r.calls)
	}
	c.TouchEnd(1)
	if r.count("release", c4) != 0 {
		t.Fatalf("expected keyboard to keep C4 down")
	}
	c.KeyUp("a")
	if r.count("release", c4) != 1 {
		t.Fatalf("expected release when last holder let go")
	}
}

func TestKeyRepeatIsSuppressed(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.KeyDown("a", false)
	c.KeyDown("a", true)
	c.KeyDown("A", false) // repeat without the flag
	c.KeyDown("a", true)
	if n := r.count("trigger", c4); n != 1 {
		t.Fatalf("expected a single trigger, got %d", n)
	}
	c.KeyUp("a")
	c.KeyDown("a", false)
	if n := r.count("trigger", c4); n != 2 {
		t.Fatalf("expected a fresh press after key-up, got %d", n)
	}
}

func TestUnmappedKeysAreIgnored(t *testing.T) {
	r := &recorder{}
	c := New(r)
	for _, k := range []string{"z", "1", "Enter", ""} {
		c.KeyDown(k, false)
		c.KeyUp(k)
	}
	if len(r.calls) != 0 || c.KeysDown() != 0 {
		t.Fatalf("expected no calls, got %+v", r.calls)
	}
}

func TestKeyboardResolvesDisplayedOctave(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.KeyDown("k", false)
	if !c.Active(c5) {
		t.Fatalf("expected k to be the C above the displayed octave")
	}
	c.KeyUp("k")

	c.OctaveUp()
	c.KeyDown("a", false)
	if !c.Active(c5) {
		t.Fatalf("expected a to follow the new octave, active=%v", c.ActiveKeys())
	}
}

func TestOctaveChangeKeepsSoundingNotes(t *testing.T) {
	r := &recorder{}
	c := New(r)
	c.KeyDown("a", false)
	c.TouchStart(3, whiteX(2), lowY)

	if !c.OctaveUp() || c.Octave() != 5 {
		t.Fatalf("expected octave 5, got %d", c.Octave())
	}
	if len(r.calls) != 2 {
		t.Fatalf("expected octave change not to release or retrigger, calls=%+v", r.calls)
	}
	if !c.Active(c4) || !c.Active(e4) {
		t.Fatalf("expected held notes to stay active, got %v", c.ActiveKeys())
	}
	if c.Layout().Contains(c4) || !c.Layout().Contains(c6) {
		t.Fatalf("expected layout rebuilt for octave 5")
	}

	// Key-up releases the identity captured at press time.
	c.KeyUp("a")
	if r.count("release", c4) != 1 || r.count("release", c5) != 0 {
		t.Fatalf("expected C4 released, calls=%+v", r.calls)
	}
	c.TouchEnd(3)
	if r.count("release", e4) != 1 {
		t.Fatalf("expected touch to release its original E4")
	}
}

func TestOctaveClampedToRange(t *testing.T) {
	r := &recorder{}
	c := New(r, WithLayout(keys.LayoutOptions{BaseOctave: 1, Octaves: 1}))
	if c.OctaveDown() || c.Octave() != 1 {
		t.Fatalf("expected octave 0 to be refused, got %d", c.Octave())
	}
	if !c.SetOctave(7) || c.OctaveUp() || c.Octave() != 7 {
		t.Fatalf("expected octave 8 to be refused, got %d", c.Octave())
	}
	if c.SetOctave(0) || c.SetOctave(8) || c.Octave() != 7 {
		t.Fatalf("expected out-of-range SetOctave to be refused")
	}
	c.KeyDown("k", false)
	if !c.Active(keys.Identity{Note: keys.C, Octave: 8}) {
		t.Fatalf("expected the trailing C8 to be playable at octave 7")
	}
}

func TestCustomKeyMap(t *testing.T) {
	r := &recorder{}
	c := New(r, WithKeyMap(keys.KeyMap{"q": 0, "2": 1}))
	c.KeyDown("2", false)
	if !c.Active(cs4) {
		t.Fatalf("expected custom binding, active=%v", c.ActiveKeys())
	}
	c.KeyDown("a", false)
	if c.Active(c4) {
		t.Fatalf("expected default bindings replaced")
	}
}

func TestCustomKeyMapIgnoresCase(t *testing.T) {
	r := &recorder{}
	c := New(r, WithKeyMap(keys.KeyMap{"Q": 0, " E ": 4}))
	c.KeyDown("q", false)
	c.KeyDown("E", false)
	if !c.Active(c4) || !c.Active(e4) {
		t.Fatalf("expected upper-case bindings to match, active=%v", c.ActiveKeys())
	}
	c.KeyUp("Q")
	c.KeyUp("e")
	if len(c.ActiveKeys()) != 0 || r.count("release", c4) != 1 || r.count("release", e4) != 1 {
		t.Fatalf("expected both keys released once, calls=%+v", r.calls)
	}
}

func TestCoordinatorWithEngine(t *testing.T) {
	e := piano.NewEngine(48000, piano.NewDefaultParams())
	c := New(e)

	c.KeyDown("a", false)
	c.KeyDown("a", true)
	c.PointerDown(whiteX(0), lowY)
	if e.LiveCount() != 1 || !e.Live(c4) {
		t.Fatalf("expected one live voice for C4, got %v", e.LiveKeys())
	}
	c.TouchStart(1, whiteX(2), lowY)
	c.TouchStart(2, whiteX(1), lowY)
	if e.LiveCount() != 3 {
		t.Fatalf("expected chord of three, got %v", e.LiveKeys())
	}
	c.TouchEnd(1)
	if e.Live(e4) || !e.Live(d4) {
		t.Fatalf("expected only E4 released, got %v", e.LiveKeys())
	}
	c.PointerUp()
	if e.LiveCount() != 0 {
		t.Fatalf("expected pointer-up to release everything, got %v", e.LiveKeys())
	}
	_ = e.Process(48000 / 4)
	if e.Sounding() != 0 {
		t.Fatalf("expected release tails to end, got %d", e.Sounding())
	}
}
