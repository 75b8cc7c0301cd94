// Package session replays timed input scripts through a coordinator and
// renders the result offline.
//
// A script has one event per line:
//
//	<seconds> <action> [args...]
//
// Blank lines and lines starting with '#' are skipped. Actions are key-down,
// key-repeat, key-up (a key name), pointer-down and pointer-move (x y),
// pointer-up, touch-start and touch-move (id x y), touch-end and
// touch-cancel (id), octave-up, octave-down, octave (n) and volume (0..1).
package session

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every script parse error.
var ErrSyntax = errors.New("script syntax error")

// Action is a script verb.
type Action string

const (
	KeyDown     Action = "key-down"
	KeyRepeat   Action = "key-repeat"
	KeyUp       Action = "key-up"
	PointerDown Action = "pointer-down"
	PointerMove Action = "pointer-move"
	PointerUp   Action = "pointer-up"
	TouchStart  Action = "touch-start"
	TouchMove   Action = "touch-move"
	TouchEnd    Action = "touch-end"
	TouchCancel Action = "touch-cancel"
	OctaveUp    Action = "octave-up"
	OctaveDown  Action = "octave-down"
	SetOctave   Action = "octave"
	Volume      Action = "volume"
)

// Event is one parsed script line.
type Event struct {
	At     float64 // seconds from the start of the take
	Action Action
	Key    string
	X, Y   float64
	Touch  int
	Value  float64
	Line   int
}

// arity lists the argument count of each action.
var arity = map[Action]int{
	KeyDown:     1,
	KeyRepeat:   1,
	KeyUp:       1,
	PointerDown: 2,
	PointerMove: 2,
	PointerUp:   0,
	TouchStart:  3,
	TouchMove:   3,
	TouchEnd:    1,
	TouchCancel: 1,
	OctaveUp:    0,
	OctaveDown:  0,
	SetOctave:   1,
	Volume:      1,
}

// Parse reads a script. Events are returned ordered by time; events at the
// same time keep their script order.
func Parse(r io.Reader) ([]Event, error) {
	var events []Event
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		ev, err := parseLine(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
		}
		ev.Line = line
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return events, nil
}

func parseLine(text string) (Event, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("expected <seconds> <action>")
	}
	at, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || at < 0 || math.IsInf(at, 0) || math.IsNaN(at) {
		return Event{}, fmt.Errorf("invalid time %q", fields[0])
	}
	ev := Event{At: at, Action: Action(strings.ToLower(fields[1]))}
	n, ok := arity[ev.Action]
	if !ok {
		return Event{}, fmt.Errorf("unknown action %q", fields[1])
	}
	args := fields[2:]
	if len(args) != n {
		return Event{}, fmt.Errorf("%s takes %d argument(s), got %d", ev.Action, n, len(args))
	}

	switch ev.Action {
	case KeyDown, KeyRepeat, KeyUp:
		ev.Key = args[0]
	case PointerDown, PointerMove:
		if ev.X, ev.Y, err = parseXY(args[0], args[1]); err != nil {
			return Event{}, err
		}
	case TouchStart, TouchMove:
		if ev.Touch, err = parseTouch(args[0]); err != nil {
			return Event{}, err
		}
		if ev.X, ev.Y, err = parseXY(args[1], args[2]); err != nil {
			return Event{}, err
		}
	case TouchEnd, TouchCancel:
		if ev.Touch, err = parseTouch(args[0]); err != nil {
			return Event{}, err
		}
	case SetOctave:
		o, err := strconv.Atoi(args[0])
		if err != nil {
			return Event{}, fmt.Errorf("invalid octave %q", args[0])
		}
		ev.Value = float64(o)
	case Volume:
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v < 0 || v > 1 {
			return Event{}, fmt.Errorf("invalid volume %q (expected 0..1)", args[0])
		}
		ev.Value = v
	}
	return ev, nil
}

func parseXY(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", ys)
	}
	return x, y, nil
}

func parseTouch(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid touch id %q", s)
	}
	return id, nil
}
