package main

import (
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/cwbudde/algo-keys/input"
	"github.com/cwbudde/algo-keys/internal/output"
	"github.com/cwbudde/algo-keys/keys"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

const (
	screenW  = 960
	screenH  = 260
	keysTop  = 40
	volStep  = 0.05
	labelPad = 8
)

var (
	colBackground  = color.NRGBA{0x20, 0x22, 0x26, 0xff}
	colWhite       = color.NRGBA{0xf4, 0xf4, 0xf0, 0xff}
	colWhiteActive = color.NRGBA{0x9c, 0xc8, 0xf0, 0xff}
	colBlack       = color.NRGBA{0x18, 0x18, 0x18, 0xff}
	colBlackActive = color.NRGBA{0x3a, 0x78, 0xb8, 0xff}
	colBorder      = color.NRGBA{0x50, 0x50, 0x50, 0xff}
)

// inertSink stands in when no audio device could be opened.
type inertSink struct{}

func (inertSink) Suspended() bool { return true }
func (inertSink) Resume() error   { return output.ErrUnavailable }

type game struct {
	coord  *input.Coordinator
	engine *piano.Engine
}

func (g *game) Update() error {
	g.updatePointer()
	g.updateTouches()
	g.updateKeyboard()
	return nil
}

func (g *game) updatePointer() {
	x, y := ebiten.CursorPosition()
	fx, fy := float64(x), float64(y-keysTop)
	switch {
	case inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft):
		g.coord.PointerDown(fx, fy)
	case inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft):
		g.coord.PointerUp()
	case ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft):
		g.coord.PointerMove(fx, fy)
	}
}

func (g *game) updateTouches() {
	for _, id := range inpututil.AppendJustPressedTouchIDs(nil) {
		x, y := ebiten.TouchPosition(id)
		g.coord.TouchStart(int(id), float64(x), float64(y-keysTop))
	}
	for _, id := range ebiten.AppendTouchIDs(nil) {
		x, y := ebiten.TouchPosition(id)
		g.coord.TouchMove(int(id), float64(x), float64(y-keysTop))
	}
	for _, id := range inpututil.AppendJustReleasedTouchIDs(nil) {
		g.coord.TouchEnd(int(id))
	}
}

func (g *game) updateKeyboard() {
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowUp) || inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		g.coord.OctaveUp()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowDown) || inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) {
		g.coord.OctaveDown()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		g.engine.SetVolume(g.engine.Volume() + volStep)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		g.engine.SetVolume(g.engine.Volume() - volStep)
	}
	// Ebiten reports a held key once, so there is no auto-repeat to filter.
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		g.coord.KeyDown(k.String(), false)
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		g.coord.KeyUp(k.String())
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)
	layout := g.coord.Layout()
	for _, k := range layout.WhiteKeys() {
		c := colWhite
		if g.coord.Active(k.Identity) {
			c = colWhiteActive
		}
		drawKey(screen, k, c)
		label := k.Identity.String()
		ebitenutil.DebugPrintAt(screen, label, k.Rect.Min.X+labelPad, keysTop+k.Rect.Max.Y-20)
	}
	for _, k := range layout.BlackKeys() {
		c := colBlack
		if g.coord.Active(k.Identity) {
			c = colBlackActive
		}
		drawKey(screen, k, c)
	}
	status := fmt.Sprintf("octave %d  volume %.2f  [arrows] octave  [-/+] volume  keys: a w s e d f t g y h u j k",
		g.coord.Octave(), g.engine.Volume())
	ebitenutil.DebugPrintAt(screen, status, labelPad, 12)
}

func drawKey(screen *ebiten.Image, k keys.Key, c color.Color) {
	x := float32(k.Rect.Min.X)
	y := float32(k.Rect.Min.Y + keysTop)
	w := float32(k.Rect.Dx())
	h := float32(k.Rect.Dy())
	vector.DrawFilledRect(screen, x, y, w, h, c, false)
	vector.StrokeRect(screen, x, y, w, h, 1, colBorder, false)
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenW, screenH
}

func main() {
	presetPath := flag.String("preset", "", "Preset JSON file path (optional)")
	sampleRate := flag.Int("sample-rate", 48000, "Output sample rate in Hz")
	verbose := flag.Bool("v", false, "Log ignored input and audio details")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := preset.Default()
	if *presetPath != "" {
		var err error
		if cfg, err = preset.LoadJSON(*presetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}

	var sink piano.Sink = inertSink{}
	player, err := output.Open(*sampleRate, output.WithLogger(logger))
	if err != nil {
		logger.Warn("audio output unavailable, playing silently", "err", err)
	} else {
		sink = player
		defer player.Close()
	}

	engine := piano.NewEngine(*sampleRate, cfg.Params, piano.WithSink(sink), piano.WithLogger(logger))
	if player != nil {
		player.Attach(engine)
	}
	coord := input.New(engine,
		input.WithKeyMap(cfg.KeyMap),
		input.WithLayout(cfg.LayoutOptions(screenW, screenH-keysTop)),
		input.WithLogger(logger),
	)

	ebiten.SetWindowSize(screenW, screenH)
	ebiten.SetWindowTitle("algo-keys")
	if err := ebiten.RunGame(&game{coord: coord, engine: engine}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
