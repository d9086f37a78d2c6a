package cart

// ROMOnly implements a cartridge with no memory bank controller and no
// external RAM: the image is mapped straight into 0x0000–0x7FFF, and
// 0xA000–0xBFFF reads back as open-bus 0xFF.
type ROMOnly struct {
	rom []byte
}

func NewROMOnly(rom []byte) *ROMOnly {
	return &ROMOnly{rom: rom}
}

func (c *ROMOnly) Read(addr uint16) byte {
	switch {
	case addr < 0x8000: // ROM fixed area, zero-padded past the image's end
		if int(addr) < len(c.rom) {
			return c.rom[addr]
		}
		return 0x00
	case addr >= 0xA000 && addr <= 0xBFFF: // no external RAM
		return 0xFF
	default:
		return 0xFF
	}
}

func (c *ROMOnly) Write(addr uint16, value byte) {
	// ROM-only: writes are ignored (including 0x0000–0x7FFF and 0xA000–0xBFFF)
}
