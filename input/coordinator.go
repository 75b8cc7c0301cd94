// Package input turns pointer, touch and physical-keyboard events into voice
// triggers and releases.
//
// Every input source that holds an identity down is recorded in one holder
// set per identity. The first holder triggers the voice and the last holder
// to let go releases it, so a note sounds exactly as long as something is
// pressing it.
package input

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-keys/keys"
)

// Voices is the voice engine the coordinator drives. *piano.Engine
// implements it.
type Voices interface {
	EnsureActive()
	Trigger(id keys.Identity, hz float64)
	Release(id keys.Identity)
}

// Kind names an input modality.
type Kind int

const (
	Pointer Kind = iota
	Touch
	Keyboard
)

func (k Kind) String() string {
	switch k {
	case Pointer:
		return "pointer"
	case Touch:
		return "touch"
	case Keyboard:
		return "keyboard"
	default:
		return "unknown"
	}
}

// Source is one holder of a key: the pointer, a touch point or a physical key.
type Source struct {
	Kind Kind
	ID   string
}

var pointerSource = Source{Kind: Pointer}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithKeyMap replaces the default physical key map. Key names are matched
// case-insensitively.
func WithKeyMap(m keys.KeyMap) Option {
	return func(c *Coordinator) {
		if len(m) == 0 {
			return
		}
		norm := make(keys.KeyMap, len(m))
		for k, off := range m {
			norm[normalizeKey(k)] = off
		}
		c.keyMap = norm
	}
}

// WithLayout sets the keyboard geometry and starting octave.
func WithLayout(opts keys.LayoutOptions) Option {
	return func(c *Coordinator) { c.layoutOpts = opts }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator tracks which identities are held down by which sources.
// It is not safe for concurrent use; call it from the input thread.
type Coordinator struct {
	voices     Voices
	keyMap     keys.KeyMap
	layoutOpts keys.LayoutOptions
	layout     *keys.Layout
	logger     *slog.Logger

	holders map[keys.Identity]map[Source]struct{}

	dragging   bool
	pointerKey keys.Identity
	pointerOn  bool

	touches  map[int]keys.Identity
	keysDown map[string]keys.Identity // identity captured at press time
}

// New creates a coordinator driving v.
func New(v Voices, opts ...Option) *Coordinator {
	c := &Coordinator{
		voices:     v,
		keyMap:     keys.DefaultKeyMap(),
		layoutOpts: keys.DefaultLayoutOptions(),
		logger:     slog.Default(),
		holders:    make(map[keys.Identity]map[Source]struct{}),
		touches:    make(map[int]keys.Identity),
		keysDown:   make(map[string]keys.Identity),
	}
	for _, opt := range opts {
		opt(c)
	}
	if !keys.InOctaveRange(c.layoutOpts.BaseOctave) {
		c.layoutOpts.BaseOctave = keys.DefaultLayoutOptions().BaseOctave
	}
	c.layout = keys.NewLayout(c.layoutOpts)
	return c
}

// Layout returns the currently rendered keys.
func (c *Coordinator) Layout() *keys.Layout {
	return c.layout
}

// Active reports whether id is currently held by any source.
func (c *Coordinator) Active(id keys.Identity) bool {
	return len(c.holders[id]) > 0
}

// ActiveKeys returns every held identity in pitch order.
func (c *Coordinator) ActiveKeys() []keys.Identity {
	ids := make([]keys.Identity, 0, len(c.holders))
	for id := range c.holders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Holders returns how many sources hold id.
func (c *Coordinator) Holders(id keys.Identity) int {
	return len(c.holders[id])
}

// Dragging reports whether the pointer button is held.
func (c *Coordinator) Dragging() bool {
	return c.dragging
}

// PointerDown presses the key under (x, y) and starts a drag. A press that
// misses every key is ignored.
func (c *Coordinator) PointerDown(x, y float64) {
	id, ok := c.layout.Locate(x, y)
	if !ok {
		c.logger.Debug("input: pointer press outside keys", "x", x, "y", y)
		return
	}
	c.dragging = true
	c.movePointer(id, true)
}

// PointerMove follows the pointer while dragging: entering a key presses it,
// leaving a key lets go of it.
func (c *Coordinator) PointerMove(x, y float64) {
	if !c.dragging {
		return
	}
	id, ok := c.layout.Locate(x, y)
	c.movePointer(id, ok)
}

func (c *Coordinator) movePointer(id keys.Identity, onKey bool) {
	if c.pointerOn && onKey && c.pointerKey == id {
		return
	}
	if c.pointerOn {
		c.unhold(pointerSource, c.pointerKey)
		c.pointerOn = false
	}
	if onKey {
		c.pointerKey, c.pointerOn = id, true
		c.hold(pointerSource, id)
	}
}

// PointerUp ends the drag and releases every active key, whichever source
// holds it. It is the safety net for release events that never arrived.
func (c *Coordinator) PointerUp() {
	c.dragging = false
	c.pointerOn = false
	c.ReleaseAll()
}

// ReleaseAll releases every active key and forgets all holders. Physical keys
// still down stay marked so their auto-repeat does not re-trigger.
func (c *Coordinator) ReleaseAll() {
	for _, id := range c.ActiveKeys() {
		delete(c.holders, id)
		c.voices.Release(id)
	}
}

// TouchStart presses the key under a new touch point.
func (c *Coordinator) TouchStart(touchID int, x, y float64) {
	if _, ok := c.touches[touchID]; ok {
		c.TouchMove(touchID, x, y)
		return
	}
	id, ok := c.layout.Locate(x, y)
	if !ok {
		c.logger.Debug("input: touch outside keys", "touch", touchID, "x", x, "y", y)
		return
	}
	c.touches[touchID] = id
	c.hold(touchSource(touchID), id)
}

// TouchMove moves a touch point's hold to the key now under it. Sliding off
// the keys ends the touch.
func (c *Coordinator) TouchMove(touchID int, x, y float64) {
	old, ok := c.touches[touchID]
	if !ok {
		return
	}
	id, onKey := c.layout.Locate(x, y)
	if onKey && id == old {
		return
	}
	c.unhold(touchSource(touchID), old)
	delete(c.touches, touchID)
	if onKey {
		c.touches[touchID] = id
		c.hold(touchSource(touchID), id)
	}
}

// TouchEnd releases exactly the key held by touchID. Unknown ids are ignored.
func (c *Coordinator) TouchEnd(touchID int) {
	id, ok := c.touches[touchID]
	if !ok {
		c.logger.Debug("input: end of untracked touch", "touch", touchID)
		return
	}
	delete(c.touches, touchID)
	c.unhold(touchSource(touchID), id)
}

// TouchCancel behaves like TouchEnd.
func (c *Coordinator) TouchCancel(touchID int) {
	c.TouchEnd(touchID)
}

// Touches returns the number of tracked touch points.
func (c *Coordinator) Touches() int {
	return len(c.touches)
}

// KeyDown presses the key bound to raw in the octave displayed now. Repeat
// events, flagged or detected because raw is already down, are dropped.
func (c *Coordinator) KeyDown(raw string, repeat bool) {
	name := normalizeKey(raw)
	if _, down := c.keysDown[name]; down || repeat {
		return
	}
	id, ok := c.keyMap.Resolve(name, c.layoutOpts.BaseOctave)
	if !ok {
		c.logger.Debug("input: unmapped key", "key", raw)
		return
	}
	if !c.layout.Contains(id) {
		c.logger.Debug("input: key outside layout", "key", raw, "note", id.String())
		return
	}
	c.keysDown[name] = id
	c.hold(keySource(name), id)
}

// KeyUp releases the identity raw pressed, even if the octave changed since.
func (c *Coordinator) KeyUp(raw string) {
	name := normalizeKey(raw)
	id, ok := c.keysDown[name]
	if !ok {
		return
	}
	delete(c.keysDown, name)
	c.unhold(keySource(name), id)
}

// KeysDown returns the number of physical keys held.
func (c *Coordinator) KeysDown() int {
	return len(c.keysDown)
}

// Octave returns the displayed base octave.
func (c *Coordinator) Octave() int {
	return c.layoutOpts.BaseOctave
}

// OctaveUp raises the base octave by one. It reports false at the top.
func (c *Coordinator) OctaveUp() bool {
	return c.SetOctave(c.layoutOpts.BaseOctave + 1)
}

// OctaveDown lowers the base octave by one. It reports false at the bottom.
func (c *Coordinator) OctaveDown() bool {
	return c.SetOctave(c.layoutOpts.BaseOctave - 1)
}

// SetOctave re-renders the keys from base octave n. Out-of-range values are
// refused. Notes already sounding keep their holders and are not released.
func (c *Coordinator) SetOctave(n int) bool {
	if !keys.InOctaveRange(n) {
		c.logger.Debug("input: octave refused", "octave", n)
		return false
	}
	if n == c.layoutOpts.BaseOctave {
		return true
	}
	c.layoutOpts.BaseOctave = n
	c.layout = keys.NewLayout(c.layoutOpts)
	return true
}

// Resize lays the keys out again for a new surface size.
func (c *Coordinator) Resize(width, height int) {
	if width == c.layoutOpts.Width && height == c.layoutOpts.Height {
		return
	}
	c.layoutOpts.Width, c.layoutOpts.Height = width, height
	c.layout = keys.NewLayout(c.layoutOpts)
}

func (c *Coordinator) hold(src Source, id keys.Identity) {
	set, ok := c.holders[id]
	if !ok {
		set = make(map[Source]struct{}, 1)
		c.holders[id] = set
		c.voices.EnsureActive()
		c.voices.Trigger(id, keys.FrequencyOf(id))
		c.logger.Debug("input: trigger", "note", id.String(), "source", src.Kind.String())
	}
	set[src] = struct{}{}
}

func (c *Coordinator) unhold(src Source, id keys.Identity) {
	set, ok := c.holders[id]
	if !ok {
		return
	}
	if _, held := set[src]; !held {
		return
	}
	delete(set, src)
	if len(set) > 0 {
		return
	}
	delete(c.holders, id)
	c.voices.Release(id)
	c.logger.Debug("input: release", "note", id.String(), "source", src.Kind.String())
}

func touchSource(id int) Source {
	return Source{Kind: Touch, ID: strconv.Itoa(id)}
}

func keySource(name string) Source {
	return Source{Kind: Keyboard, ID: name}
}

func normalizeKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
