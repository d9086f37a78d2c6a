package ppu

import "sort"

// Sprite is one OAM entry resolved for a given scanline: X/Y already
// adjusted to screen coordinates (OAM's raw X-8, Y-16), ready to composite.
type Sprite struct {
	X, Y     int
	Tile     byte
	Attr     byte
	OAMIndex int
}

const (
	attrPriority = 1 << 7 // 1: behind BG colors 1-3
	attrYFlip    = 1 << 6
	attrXFlip    = 1 << 5
	attrPalette  = 1 << 4 // 1: OBP1, 0: OBP0
)

// scanOAM walks all 40 OAM entries in index order and returns the first ten
// whose 8- or 16-pixel-tall box covers ly, matching hardware's OAM-search
// cap (spec §4.7: "up to 10 sprites per scanline").
func scanOAM(oam *[0xA0]byte, ly byte, tall bool) []Sprite {
	height := 8
	if tall {
		height = 16
	}
	var found []Sprite
	for i := 0; i < 40; i++ {
		base := i * 4
		y := int(oam[base]) - 16
		row := int(ly) - y
		if row < 0 || row >= height {
			continue
		}
		found = append(found, Sprite{
			X:        int(oam[base+1]) - 8,
			Y:        y,
			Tile:     oam[base+2],
			Attr:     oam[base+3],
			OAMIndex: i,
		})
		if len(found) == 10 {
			break
		}
	}
	return found
}

// ComposeSpriteLine resolves the sprite layer for one scanline into 160
// color indices (0 = no opaque sprite pixel here). bgci is the already
// rendered background/window line, used to honor the per-sprite priority
// bit (behind BG colors 1-3).
func ComposeSpriteLine(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) [160]byte {
	ci, _, _ := composeSpriteLineWithAttrs(mem, sprites, ly, bgci, tall)
	return ci
}

// composeSpriteLineWithAttrs is the same composite but also reports, per
// pixel, the Attr byte of the sprite that won (for OBP0/OBP1 selection) and
// whether any sprite contributed at all.
func composeSpriteLineWithAttrs(mem VRAMReader, sprites []Sprite, ly byte, bgci [160]byte, tall bool) (ci [160]byte, attrs [160]byte, hit [160]bool) {
	ordered := make([]Sprite, len(sprites))
	copy(ordered, sprites)
	// Draw lowest-priority sprite first so the highest-priority sprite's
	// pixel is the last one written and wins the overlap: priority is lower
	// X first, lower OAM index as tiebreaker, so sort drawing order
	// descending by that same key.
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].X != ordered[j].X {
			return ordered[i].X > ordered[j].X
		}
		return ordered[i].OAMIndex > ordered[j].OAMIndex
	})

	height := 8
	if tall {
		height = 16
	}
	for _, s := range ordered {
		row := int(ly) - s.Y
		if row < 0 || row >= height {
			continue
		}
		if s.Attr&attrYFlip != 0 {
			row = height - 1 - row
		}
		tileNum := s.Tile
		rowInTile := row
		if tall {
			tileNum &^= 0x01
			if row >= 8 {
				tileNum++
				rowInTile = row - 8
			}
		}
		base := 0x8000 + uint16(tileNum)*16 + uint16(rowInTile)*2
		lo := mem.Read(base)
		hi := mem.Read(base + 1)
		for px := 0; px < 8; px++ {
			col := px
			if s.Attr&attrXFlip != 0 {
				col = 7 - px
			}
			bit := 7 - byte(col)
			pixel := ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
			if pixel == 0 {
				continue // transparent
			}
			x := s.X + px
			if x < 0 || x >= 160 {
				continue
			}
			if s.Attr&attrPriority != 0 && bgci[x] != 0 {
				continue // behind non-zero BG color
			}
			ci[x] = pixel
			attrs[x] = s.Attr
			hit[x] = true
		}
	}
	return
}
