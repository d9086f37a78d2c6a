package ui

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/gharland/dmgcore/internal/gameboy"
	"github.com/gharland/dmgcore/internal/joypad"
)

const (
	screenWidth  = 160
	screenHeight = 144
)

// shadeRGBA is the four-shade DMG palette (index 0 lightest, 3 darkest),
// chosen to match the classic unlit DMG LCD rather than the greenish
// backlit SGB palette.
var shadeRGBA = [4]color.RGBA{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

// keymap binds keyboard keys to joypad buttons. There is no remapping UI:
// button mapping is explicitly out of scope for the core, and this is the
// host's one fixed choice.
var keymap = map[ebiten.Key]joypad.Button{
	ebiten.KeyArrowRight: joypad.Right,
	ebiten.KeyArrowLeft:  joypad.Left,
	ebiten.KeyArrowUp:    joypad.Up,
	ebiten.KeyArrowDown:  joypad.Down,
	ebiten.KeyZ:          joypad.A,
	ebiten.KeyX:          joypad.B,
	ebiten.KeyBackspace:  joypad.Select,
	ebiten.KeyEnter:      joypad.Start,
}

// App is the ebiten host: it owns one GameBoy core, runs one frame per
// ebiten tick (60 ticks per second), and renders the framebuffer it exposes.
type App struct {
	cfg   Config
	gb    *gameboy.GameBoy
	audio *audioOut

	paused bool
	pixels []byte // screenWidth*screenHeight*4 RGBA scratch buffer
	img    *ebiten.Image
}

// NewApp constructs a host for an already-loaded GameBoy core.
func NewApp(cfg Config, gb *gameboy.GameBoy) *App {
	cfg.Defaults()
	a := &App{
		cfg:    cfg,
		gb:     gb,
		pixels: make([]byte, screenWidth*screenHeight*4),
		img:    ebiten.NewImage(screenWidth, screenHeight),
	}
	if out, err := newAudioOut(gb.Bus().APU()); err == nil {
		a.audio = out
	}
	return a
}

// Run opens the window and blocks until the user closes it.
func (a *App) Run() error {
	ebiten.SetWindowSize(screenWidth*a.cfg.Scale, screenHeight*a.cfg.Scale)
	ebiten.SetWindowTitle(a.cfg.Title)
	ebiten.SetTPS(60)
	if a.audio != nil {
		a.audio.start()
	}
	return ebiten.RunGame(a)
}

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	for key, btn := range keymap {
		a.gb.SetButton(btn, ebiten.IsKeyPressed(key))
	}
	if a.paused {
		return nil
	}
	if err := a.gb.RunFrame(); err != nil {
		return fmt.Errorf("core halted: %w", err)
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	fb := a.gb.Framebuffer()
	for y := 0; y < screenHeight; y++ {
		for x := 0; x < screenWidth; x++ {
			c := shadeRGBA[fb[y][x]&0x03]
			i := (y*screenWidth + x) * 4
			a.pixels[i+0] = c.R
			a.pixels[i+1] = c.G
			a.pixels[i+2] = c.B
			a.pixels[i+3] = c.A
		}
	}
	a.img.WritePixels(a.pixels)
	screen.DrawImage(a.img, nil)
	if a.paused {
		ebitenutil.DebugPrint(screen, "paused")
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}
