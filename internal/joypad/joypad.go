// Package joypad implements the Game Boy P1 (0xFF00) state machine: eight
// button booleans multiplexed onto a 4-bit nibble selected by two group-select
// bits the game writes into the high nibble of P1.
package joypad

// Button identifies one of the eight physical buttons.
type Button int

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// Pad is the joypad's state machine. The zero value is valid (no buttons
// pressed; both select bits 0, so both groups are selected).
type Pad struct {
	buttons  [8]bool
	selectP  byte // bits 5..4 as last written to P1
	pressed4 byte // complement of the last computed active-low lower nibble, for edge detection

	// RequestInterrupt is called to raise IF bit 4 whenever a
	// selected-group button transitions from released to pressed (spec §9
	// Open Questions: optional, implemented here because the teacher repo's
	// bus already tracks the edge).
	RequestInterrupt func()
}

// SetButton updates one button's pressed state. Pressed buttons read as 0
// in the P1 nibble; a press may raise the joypad interrupt on the
// resulting high-to-low (released-to-pressed) transition of the selected
// group, a release never does.
func (p *Pad) SetButton(b Button, pressed bool) {
	p.buttons[b] = pressed
	p.recompute()
}

// WriteSelect handles a CPU write to P1: only bits 5..4 are captured.
func (p *Pad) WriteSelect(value byte) {
	p.selectP = value & 0x30
	p.recompute()
}

// Read returns the full P1 byte: bits 7..6 read as 1, bits 5..4 reflect the
// stored selection, bits 3..0 are derived from whichever group(s) are
// selected (active-low: pressed = 0).
func (p *Pad) Read() byte {
	return 0xC0 | p.selectP | (^p.pressed4 & 0x0F)
}

func (p *Pad) recompute() {
	lower := byte(0x0F)
	if p.selectP&0x10 == 0 { // P14 low selects D-pad
		lower = p.applyGroup(lower, Right, Left, Up, Down)
	}
	if p.selectP&0x20 == 0 { // P15 low selects buttons
		lower = p.applyGroup(lower, A, B, Select, Start)
	}
	falling := (^p.pressed4 & 0x0F) &^ lower // bits that went from 1 to 0
	p.pressed4 = ^lower & 0x0F
	if falling != 0 && p.RequestInterrupt != nil {
		p.RequestInterrupt()
	}
}

func (p *Pad) applyGroup(lower byte, bit0, bit1, bit2, bit3 Button) byte {
	if p.buttons[bit0] {
		lower &^= 0x01
	}
	if p.buttons[bit1] {
		lower &^= 0x02
	}
	if p.buttons[bit2] {
		lower &^= 0x04
	}
	if p.buttons[bit3] {
		lower &^= 0x08
	}
	return lower
}
