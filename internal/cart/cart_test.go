package cart

import "testing"

func TestLoad_ValidROMOnly(t *testing.T) {
	rom := buildROM("TETRIS", 0x00, 0x00, 0x00, 32*1024)
	c, h, err := Load(rom)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if h.Title != "TETRIS" {
		t.Fatalf("Title got %q", h.Title)
	}
	rom[0x0100] = 0xAB
	if got := c.Read(0x0100); got != 0xAB {
		t.Fatalf("Read(0x0100) got %#02x want AB", got)
	}
}

func TestLoad_RejectsOversizeROM(t *testing.T) {
	rom := buildROM("BIG", 0x00, 0x00, 0x00, 64*1024)
	if _, _, err := Load(rom); err == nil {
		t.Fatalf("expected RomLoadError for oversize ROM")
	}
}

func TestLoad_RejectsNonZeroCartType(t *testing.T) {
	rom := buildROM("MBC", 0x01, 0x00, 0x00, 32*1024)
	if _, _, err := Load(rom); err == nil {
		t.Fatalf("expected RomLoadError for non-ROM-only cartridge type")
	}
}

func TestLoad_RejectsNonZeroROMSizeCode(t *testing.T) {
	rom := buildROM("SZ", 0x00, 0x01, 0x00, 32*1024)
	if _, _, err := Load(rom); err == nil {
		t.Fatalf("expected RomLoadError for non-zero ROM size code")
	}
}

func TestLoad_RejectsBadLogo(t *testing.T) {
	rom := buildROM("LOGO", 0x00, 0x00, 0x00, 32*1024)
	rom[0x0104] = 0x00
	if _, _, err := Load(rom); err == nil {
		t.Fatalf("expected RomLoadError for invalid Nintendo logo")
	}
}

func TestLoad_RejectsTooSmall(t *testing.T) {
	if _, _, err := Load(make([]byte, 16)); err == nil {
		t.Fatalf("expected RomLoadError for undersized ROM")
	}
}
