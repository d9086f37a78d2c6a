// Package bus implements the Game Boy's 16-bit address decode: cartridge
// ROM/external RAM, work RAM and its echo, OAM, HRAM, the PPU and APU I/O
// windows, joypad, timer, serial and interrupt registers, and OAM DMA.
package bus

import (
	"fmt"
	"io"
	"os"

	"github.com/gharland/dmgcore/internal/apu"
	"github.com/gharland/dmgcore/internal/cart"
	"github.com/gharland/dmgcore/internal/joypad"
	"github.com/gharland/dmgcore/internal/ppu"
)

// Bus wires the CPU-visible address space to every other component.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF; echoed at 0xE000-0xFDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu *ppu.PPU
	apu *apu.APU
	pad joypad.Pad

	ie    byte // 0xFFFF
	ifReg byte // 0xFF0F, lower 5 bits used

	div  byte // 0xFF04, upper 8 bits of the internal divider
	tima byte // 0xFF05
	tma  byte // 0xFF06
	tac  byte // 0xFF07, lower 3 bits used

	sb byte      // 0xFF01
	sc byte      // 0xFF02
	sw io.Writer // optional sink for bytes written out the serial port

	divInternal uint16 // increments every T-cycle; DIV is its upper byte

	dma       byte // 0xFF46
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	debugTimer bool
}

// New wraps rom directly as a ROM-only cartridge, bypassing header
// validation (callers that need validation use cart.Load and NewWithCartridge).
func New(rom []byte) *Bus {
	return NewWithCartridge(cart.NewROMOnly(rom))
}

// NewWithCartridge wires a cartridge produced by cart.Load (or any other
// Cartridge implementation).
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, apu: apu.New(0)}
	b.ppu = ppu.New(func(bit int) { b.ifReg |= 1 << bit })
	b.pad.RequestInterrupt = func() { b.ifReg |= 1 << 4 }
	if os.Getenv("GB_DEBUG_TIMER") != "" {
		b.debugTimer = true
	}
	return b
}

// PPU exposes the PPU for host-side framebuffer access.
func (b *Bus) PPU() *ppu.PPU { return b.ppu }

// Cart exposes the cartridge, mainly so callers can read header info.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// APU exposes the sound register sink for a host audio adapter.
func (b *Bus) APU() *apu.APU { return b.apu }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[(addr-0x2000)-0xC000]
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		return 0xFF // unusable region
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return 0xFF
		}
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFF00:
		return b.pad.Read()
	case addr == 0xFF04:
		return b.div
	case addr == 0xFF05:
		return b.tima
	case addr == 0xFF06:
		return b.tma
	case addr == 0xFF07:
		return 0xF8 | (b.tac & 0x07)
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr >= 0xFF10 && addr <= 0xFF26, addr >= 0xFF30 && addr <= 0xFF3F:
		return b.apu.CPURead(addr)
	case addr == 0xFF0F:
		return 0xE0 | (b.ifReg & 0x1F)
	case addr == 0xFFFF:
		return b.ie
	default:
		return 0xFF
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		mirror := addr - 0x2000
		b.wram[mirror-0xC000] = value
	case addr >= 0xFEA0 && addr <= 0xFEFF:
		// unusable region, writes dropped
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if b.dmaActive {
			return
		}
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFF00:
		b.pad.WriteSelect(value)
	case addr == 0xFF04:
		oldInput := b.timerInput()
		b.divInternal = 0
		b.div = 0
		if oldInput && !b.timerInput() {
			b.incrementTIMA()
		}
		if b.debugTimer {
			fmt.Printf("[TMR] DIV write -> reset tima=%02X tma=%02X tac=%02X\n", b.tima, b.tma, b.tac)
		}
	case addr == 0xFF05:
		b.tima = value
		if b.debugTimer {
			fmt.Printf("[TMR] TIMA write %02X tma=%02X tac=%02X\n", value, b.tma, b.tac)
		}
	case addr == 0xFF06:
		b.tma = value
		if b.debugTimer {
			fmt.Printf("[TMR] TMA write %02X (tima=%02X tac=%02X)\n", value, b.tima, b.tac)
		}
	case addr == 0xFF07:
		oldInput := b.timerInput()
		b.tac = value & 0x07
		if oldInput && !b.timerInput() {
			b.incrementTIMA()
		}
		if b.debugTimer {
			fmt.Printf("[TMR] TAC write %02X tima=%02X tma=%02X\n", b.tac, b.tima, b.tma)
		}
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x80 != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.ifReg |= 1 << 3
			b.sc &^= 0x80
		}
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr >= 0xFF10 && addr <= 0xFF26, addr >= 0xFF30 && addr <= 0xFF3F:
		b.apu.CPUWrite(addr, value)
	case addr == 0xFF0F:
		b.ifReg = value & 0x1F
	case addr == 0xFFFF:
		b.ie = value
	}
}

// SetButton updates one joypad button's pressed state, possibly raising the
// joypad interrupt on a press edge of the currently selected group.
func (b *Bus) SetButton(btn joypad.Button, pressed bool) { b.pad.SetButton(btn, pressed) }

// SetSerialWriter sets a sink that receives bytes written out the serial port.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// Tick advances timers, the PPU, the OAM DMA copy, and the divider by the
// given number of CPU T-cycles.
func (b *Bus) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		oldInput := b.timerInput()
		b.divInternal++
		b.div = byte(b.divInternal >> 8)
		falling := oldInput && !b.timerInput()
		if falling {
			b.incrementTIMA()
		}

		b.ppu.Tick(1)

		if b.dmaActive {
			if b.dmaIndex < 0xA0 {
				v := b.Read(b.dmaSrc + uint16(b.dmaIndex))
				b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
				b.dmaIndex++
			}
			if b.dmaIndex >= 0xA0 {
				b.dmaActive = false
			}
		}
	}
}

// timerInput reports the timer's clock input after TAC gating: true means a
// rising selected-DIV-bit; TIMA increments on its falling edge.
func (b *Bus) timerInput() bool {
	if b.tac&0x04 == 0 {
		return false
	}
	var bit uint
	switch b.tac & 0x03 {
	case 0x00:
		bit = 9 // 4096 Hz
	case 0x01:
		bit = 3 // 262144 Hz
	case 0x02:
		bit = 5 // 65536 Hz
	case 0x03:
		bit = 7 // 16384 Hz
	}
	return (b.divInternal>>bit)&1 != 0
}

// incrementTIMA increments TIMA on a selected-DIV-bit falling edge; on
// overflow it reloads TMA and raises the timer interrupt immediately
// (spec.md §4.4 item 2), rather than modeling hardware's extra delay.
func (b *Bus) incrementTIMA() {
	if b.tima == 0xFF {
		b.tima = b.tma
		b.ifReg |= 1 << 2
		return
	}
	b.tima++
}
