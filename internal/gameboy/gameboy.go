// Package gameboy is the coordinator that owns the CPU, bus, PPU and
// joypad for the lifetime of one emulated console: it drives step() and
// runFrame(), wires PPU interrupt requests into the CPU's IF register, and
// exposes the host-facing API (load ROM, run a frame, read the
// framebuffer, set a button, read stats).
package gameboy

import (
	"fmt"

	"github.com/gharland/dmgcore/internal/bus"
	"github.com/gharland/dmgcore/internal/cart"
	"github.com/gharland/dmgcore/internal/cpu"
	"github.com/gharland/dmgcore/internal/joypad"
)

// CyclesPerFrame is the number of T-cycles in one 154-scanline DMG frame
// (70224 cycles, ~59.7275 Hz at 4.194304 MHz).
const CyclesPerFrame = 70224

// FrameTimeout reports that runFrame's 2x watchdog fired: the accumulated
// cycle count for one frame exceeded 2*CyclesPerFrame without completing.
// This never happens for a correctly implemented core; it exists to turn a
// runaway step loop into a recoverable error instead of a hang.
type FrameTimeout struct {
	Cycles int
}

func (e *FrameTimeout) Error() string {
	return fmt.Sprintf("frame watchdog: %d cycles exceeds 2x budget without completing a frame", e.Cycles)
}

// Config holds coordinator-level settings that don't belong to any one
// component.
type Config struct {
	DebugTimer bool // not read by the coordinator; the bus's timer trace is switched only by the GB_DEBUG_TIMER env variable
}

// Stats is a snapshot of run-time counters, matching the host API's
// stats() operation.
type Stats struct {
	TotalCycles int
	CPUCycles   int
	LY          byte
	PPUMode     byte
	Running     bool
}

// GameBoy wires a CPU, Bus, PPU and Joypad into one cooperatively-scheduled
// unit. The zero value is not usable; construct with New.
type GameBoy struct {
	cfg Config

	bus *bus.Bus
	cpu *cpu.CPU

	totalCycles int
	running     bool
	lastErr     error
}

// New constructs an unloaded GameBoy. Call LoadRom before stepping.
func New(cfg Config) *GameBoy {
	return &GameBoy{cfg: cfg}
}

// LoadRom validates and installs a ROM image, then applies the documented
// DMG post-boot register and I/O state (spec.md §8 scenario 1): this core
// never executes the boot ROM.
func (g *GameBoy) LoadRom(rom []byte) error {
	c, _, err := cart.Load(rom)
	if err != nil {
		return err
	}
	g.bus = bus.NewWithCartridge(c)
	g.cpu = cpu.New(g.bus)
	g.cpu.ResetNoBoot()
	g.applyPostBootIO()
	g.totalCycles = 0
	g.running = true
	g.lastErr = nil
	return nil
}

// applyPostBootIO installs the documented post-boot values for the I/O
// registers the boot ROM would otherwise have left behind: LCD and BG on
// with sprites disabled, the default palettes, and timers disabled.
func (g *GameBoy) applyPostBootIO() {
	g.bus.Write(0xFF00, 0xCF)
	g.bus.Write(0xFF05, 0x00) // TIMA
	g.bus.Write(0xFF06, 0x00) // TMA
	g.bus.Write(0xFF07, 0x00) // TAC
	g.bus.Write(0xFF40, 0x91) // LCDC: LCD+BG on, tile data 0x8000, sprites off
	g.bus.Write(0xFF42, 0x00) // SCY
	g.bus.Write(0xFF43, 0x00) // SCX
	g.bus.Write(0xFF45, 0x00) // LYC
	g.bus.Write(0xFF47, 0xFC) // BGP
	g.bus.Write(0xFF48, 0xFF) // OBP0
	g.bus.Write(0xFF49, 0xFF) // OBP1
	g.bus.Write(0xFF4A, 0x00) // WY
	g.bus.Write(0xFF4B, 0x00) // WX
	g.bus.Write(0xFFFF, 0x00) // IE
}

// Step executes one coordinator step: if the CPU is halted with no pending
// interrupt to service, all components advance 4 cycles (the CPU idling);
// otherwise one CPU instruction (or interrupt dispatch) executes and every
// other component advances by the cycles it reported. Bus.Tick already
// advances the PPU and timers and raises interrupt-flag bits as a side
// effect of CPU.Step, so no separate interrupt-propagation pass runs here
// beyond what the PPU's InterruptRequester callback already performed; Step
// returns the illegal-instruction error, if any, so the host can halt.
func (g *GameBoy) Step() error {
	cyc, err := g.cpu.Step()
	g.totalCycles += cyc
	if err != nil {
		g.running = false
		g.lastErr = err
		return err
	}
	return nil
}

// RunFrame advances the coordinator until it has consumed one frame's worth
// of cycles (CyclesPerFrame), or returns a *FrameTimeout if twice that many
// cycles elapse without reaching it (the watchdog from spec.md §5). It also
// returns early, with whatever error Step produced, on IllegalInstruction.
func (g *GameBoy) RunFrame() error {
	budget := 2 * CyclesPerFrame
	consumed := 0
	for consumed < CyclesPerFrame {
		before := g.totalCycles
		if err := g.Step(); err != nil {
			return err
		}
		consumed += g.totalCycles - before
		if consumed >= budget {
			return &FrameTimeout{Cycles: consumed}
		}
	}
	return nil
}

// Framebuffer returns the most recently rendered 160x144 grid of 4-shade
// palette indices (0..3).
func (g *GameBoy) Framebuffer() [144][160]byte {
	return g.bus.PPU().Framebuffer()
}

// SetButton updates one joypad button, possibly raising the joypad
// interrupt on a press edge of the currently selected group.
func (g *GameBoy) SetButton(btn joypad.Button, pressed bool) {
	g.bus.SetButton(btn, pressed)
}

// Bus exposes the underlying bus, mainly for host tooling (trace dumps,
// serial capture) that needs lower-level access than the coordinator API.
func (g *GameBoy) Bus() *bus.Bus { return g.bus }

// Stats reports the host-facing run-time snapshot (spec.md §6).
func (g *GameBoy) Stats() Stats {
	return Stats{
		TotalCycles: g.totalCycles,
		CPUCycles:   g.totalCycles,
		LY:          g.bus.Read(0xFF44),
		PPUMode:     g.bus.Read(0xFF41) & 0x03,
		Running:     g.running,
	}
}

// Err returns the fatal error, if any, that stopped the core.
func (g *GameBoy) Err() error { return g.lastErr }
