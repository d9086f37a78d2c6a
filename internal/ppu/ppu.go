// Package ppu implements the scanline-based picture processing unit: VRAM,
// OAM, the LCDC/STAT/LY/LYC register set, mode timing, and compositing of
// background, window and sprite layers into a 160x144 4-shade framebuffer.
package ppu

// InterruptRequester is a callback used to raise an IF bit (0: VBlank, 1:
// STAT) from inside the PPU's own timing loop.
type InterruptRequester func(bit int)

// LineSnapshot captures the register state a scanline was rendered with,
// useful for tests and for debug tooling that wants to know what produced a
// given row of the framebuffer.
type LineSnapshot struct {
	LCDC, SCX, SCY, WX, WY, BGP, OBP0, OBP1 byte
	WinLine                                 int
}

// PPU models VRAM/OAM, the LCDC/STAT register pair, LY/LYC coincidence, and
// the mode-2/3/0/1 scanline timer. CPURead/CPUWrite serve the bus's I/O
// page; Tick advances timing by CPU T-cycles and renders each line's pixels
// the moment mode 3 begins for it.
type PPU struct {
	vram [0x2000]byte // 0x8000-0x9FFF
	oam  [0xA0]byte   // 0xFE00-0xFE9F

	lcdc byte // FF40
	stat byte // FF41: mode bits 0-1, coincidence bit2, enables bits3-6
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	dot int // dots within the current line, 0..455

	windowActivated    bool
	windowInternalLine int

	fb       [144][160]byte
	lineRegs [144]LineSnapshot

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// Framebuffer returns the most recently rendered frame: 144 rows of 160
// shades, each in 0..3.
func (p *PPU) Framebuffer() [144][160]byte { return p.fb }

// LineRegs returns the register snapshot captured when scanline y was last
// rendered.
func (p *PPU) LineRegs(y int) LineSnapshot {
	if y < 0 || y >= 144 {
		return LineSnapshot{}
	}
	return p.lineRegs[y]
}

// CPURead serves VRAM, OAM, and the PPU's I/O registers. VRAM/OAM are not
// gated by mode: a byte just written reads back unconditionally, matching
// the bus's read-after-write invariant.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and the PPU's I/O registers.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly, p.dot = 0, 0
			p.setMode(0)
			p.updateLYC()
			p.windowActivated, p.windowInternalLine = false, 0
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly, p.dot = 0, 0
			p.setMode(2)
			p.updateLYC()
			p.windowActivated, p.windowInternalLine = false, 0
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly, p.dot = 0, 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// Tick advances PPU timing by the given number of T-cycles, stepping mode
// 2->3->0 within a line and 0->2 across line boundaries (0->1 entering
// line 144, 1->2 when line 153 wraps to 0).
func (p *PPU) Tick(cycles int) {
	for i := 0; i < cycles; i++ {
		if p.lcdc&0x80 == 0 {
			continue
		}
		p.dot++

		var mode byte
		switch {
		case p.ly >= 144:
			mode = 1
		case p.dot < 80:
			mode = 2
		case p.dot < 80+172:
			mode = 3
		default:
			mode = 0
		}
		p.setMode(mode)

		if p.dot >= 456 {
			p.dot = 0
			p.ly++
			if p.ly == 144 {
				if p.req != nil {
					p.req(0) // VBlank IF
				}
				if p.stat&(1<<4) != 0 && p.req != nil {
					p.req(1) // STAT VBlank source
				}
			} else if p.ly > 153 {
				p.ly = 0
				p.windowActivated, p.windowInternalLine = false, 0
			}
			p.updateLYC()
			if p.ly >= 144 {
				p.setMode(1)
			} else {
				p.setMode(2)
			}
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0:
		if p.stat&(1<<3) != 0 && p.req != nil {
			p.req(1)
		}
	case 2:
		if p.stat&(1<<5) != 0 && p.req != nil {
			p.req(1)
		}
	case 3:
		p.renderScanline(p.ly)
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if p.stat&(1<<6) != 0 && p.req != nil {
			p.req(1)
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// vramView adapts the PPU's own VRAM array to the fetcher's VRAMReader.
type vramView struct{ p *PPU }

func (v vramView) Read(addr uint16) byte { return v.p.vram[addr-0x8000] }

func applyPalette(pal, ci byte) byte { return (pal >> (ci * 2)) & 0x03 }

// renderScanline composites BG, window and sprite layers for ly and writes
// the resulting shades into the framebuffer, also capturing the register
// snapshot tests and tools use to inspect what produced the line.
func (p *PPU) renderScanline(ly byte) {
	if ly >= 144 {
		return
	}
	mem := vramView{p}
	bgEnabled := p.lcdc&0x01 != 0
	winBit := p.lcdc&0x20 != 0
	objEnabled := p.lcdc&0x02 != 0
	tileData8000 := p.lcdc&0x10 != 0
	bgMapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		bgMapBase = 0x9C00
	}
	winMapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		winMapBase = 0x9C00
	}

	var bgci [160]byte
	if bgEnabled {
		bgci = RenderBGScanlineUsingFetcher(mem, bgMapBase, tileData8000, p.scx, p.scy, ly)
	}

	winLine := 0
	winVisible := bgEnabled && winBit && p.wy <= ly && p.wx <= 166
	if winVisible {
		if !p.windowActivated {
			p.windowActivated = true
			p.windowInternalLine = 0
		} else {
			p.windowInternalLine++
		}
		winLine = p.windowInternalLine

		wxStart := int(p.wx) - 7
		clamped := wxStart
		if clamped < 0 {
			clamped = 0
		}
		winCI := RenderWindowScanlineUsingFetcher(mem, winMapBase, tileData8000, wxStart, byte(winLine))
		for x := clamped; x < 160; x++ {
			bgci[x] = winCI[x]
		}
	}

	var shades [160]byte
	for x := 0; x < 160; x++ {
		shades[x] = applyPalette(p.bgp, bgci[x])
	}

	if objEnabled {
		tall := p.lcdc&0x04 != 0
		sprites := scanOAM(&p.oam, ly, tall)
		ci, attrs, hit := composeSpriteLineWithAttrs(mem, sprites, ly, bgci, tall)
		for x := 0; x < 160; x++ {
			if !hit[x] {
				continue
			}
			pal := p.obp0
			if attrs[x]&attrPalette != 0 {
				pal = p.obp1
			}
			shades[x] = applyPalette(pal, ci[x])
		}
	}

	p.fb[ly] = shades
	p.lineRegs[ly] = LineSnapshot{
		LCDC: p.lcdc, SCX: p.scx, SCY: p.scy,
		WX: p.wx, WY: p.wy,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WinLine: winLine,
	}
}

// Expose palettes and scroll registers for host-side renderer convenience.
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }
