// Package cart parses Game Boy cartridge headers and implements the
// ROM-only (no-MBC) cartridge this core targets. MBC banking is out of
// scope for this core (see SPEC_FULL.md §4).
package cart

import "fmt"

// MaxROMSize is the largest ROM image this core accepts: 32 KiB, matching
// the no-MBC target (ROM size code 0x00).
const MaxROMSize = 32 * 1024

// Cartridge is the minimal interface the bus needs for ROM/external-RAM
// access. The ROM-only implementation ignores all writes.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// RomLoadError reports a ROM image this core refuses to load: too large,
// too small to contain a header, or declaring a cartridge type / ROM size
// this no-MBC core doesn't implement.
type RomLoadError struct {
	Reason string
}

func (e *RomLoadError) Error() string { return "rom load: " + e.Reason }

// Load validates a ROM image against the no-MBC target's header
// requirements (spec.md §6) and returns a ready-to-use Cartridge.
//
// Requirements: length <= 32 KiB, a recognizable Nintendo logo (first byte
// 0xCE), cartridge type 0x00, and ROM size code 0x00.
func Load(rom []byte) (Cartridge, *Header, error) {
	if len(rom) > MaxROMSize {
		return nil, nil, &RomLoadError{Reason: fmt.Sprintf("rom is %d bytes, max is %d", len(rom), MaxROMSize)}
	}
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, nil, &RomLoadError{Reason: err.Error()}
	}
	if len(rom) < 0x0105 || rom[0x0104] != nintendoLogo[0] {
		return nil, nil, &RomLoadError{Reason: "missing or invalid Nintendo logo header bytes"}
	}
	if h.CartType != 0x00 {
		return nil, nil, &RomLoadError{Reason: fmt.Sprintf("unsupported cartridge type %#02x (%s); this core is ROM-only", h.CartType, h.CartTypeStr)}
	}
	if h.ROMSizeCode != 0x00 {
		return nil, nil, &RomLoadError{Reason: fmt.Sprintf("unsupported ROM size code %#02x; this core expects a 32 KiB image", h.ROMSizeCode)}
	}
	return NewROMOnly(rom), h, nil
}
