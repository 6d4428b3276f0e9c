// draw_command.go - the 32-byte PS<->PL wire contract (§3, §9)
package main

import "encoding/binary"

// DrawCommand is the in-memory form of one 32-byte wire record.
// Kind selects the interpretation of the remaining fields: a column
// (kind=0) walks Y1..Y2 at fixed X1 with a Q16.16 texture coordinate;
// a span (kind=1) walks X1..X2 at fixed Y1 with a packed flat position.
type DrawCommand struct {
	Kind   uint8
	Light  uint8
	X1     uint16
	X2     uint16
	Y1     uint16
	Y2     uint16
	Frac   uint32 // Q16.16 texture coordinate, or packed span position
	Step   uint32 // Q16.16 per-pixel increment, or packed span step
	TexOff uint32 // byte offset into the texture atlas
}

// Encode packs the command into its exact 32-byte little-endian wire
// form. Reserved bytes (10-11, 24-31) are always zero.
func (c DrawCommand) Encode() [DRAW_CMD_BYTES]byte {
	var buf [DRAW_CMD_BYTES]byte
	buf[0] = c.Kind
	buf[1] = c.Light
	binary.LittleEndian.PutUint16(buf[2:4], c.X1)
	binary.LittleEndian.PutUint16(buf[4:6], c.X2)
	binary.LittleEndian.PutUint16(buf[6:8], c.Y1)
	binary.LittleEndian.PutUint16(buf[8:10], c.Y2)
	// bytes 10-11 reserved, left zero
	binary.LittleEndian.PutUint32(buf[12:16], c.Frac)
	binary.LittleEndian.PutUint32(buf[16:20], c.Step)
	binary.LittleEndian.PutUint32(buf[20:24], c.TexOff)
	// bytes 24-31 reserved, left zero
	return buf
}

// DecodeDrawCommand reconstructs a command from its 32-byte wire form
// by explicit byte-range extraction. The raster kernel fetches commands
// as two 128-bit (16-byte) words; DecodeWords below performs the same
// extraction starting from that split, so both paths agree by
// construction rather than by coincidence of struct layout.
func DecodeDrawCommand(buf [DRAW_CMD_BYTES]byte) DrawCommand {
	return DecodeWords([16]byte(buf[:16]), [16]byte(buf[16:32]))
}

// DecodeWords reconstructs a command from the two 128-bit words the
// raster kernel's command-fetch burst actually delivers. Every field is
// pulled out by explicit bit-range extraction; the wire record is never
// reinterpreted as a pair of wider machine words, so decoding is stable
// regardless of host alignment rules (§9).
func DecodeWords(word0, word1 [16]byte) DrawCommand {
	return DrawCommand{
		Kind:   word0[0],
		Light:  word0[1],
		X1:     binary.LittleEndian.Uint16(word0[2:4]),
		X2:     binary.LittleEndian.Uint16(word0[4:6]),
		Y1:     binary.LittleEndian.Uint16(word0[6:8]),
		Y2:     binary.LittleEndian.Uint16(word0[8:10]),
		// word0[10:12] reserved
		Frac:   binary.LittleEndian.Uint32(word0[12:16]),
		Step:   binary.LittleEndian.Uint32(word1[0:4]),
		TexOff: binary.LittleEndian.Uint32(word1[4:8]),
		// word1[8:16] reserved
	}
}

// clampColumn enforces the submission invariants of §3/§8 for a column
// command: 0 <= x1 < width, 0 <= y1 <= y2 < height. Returns ok=false
// for a command that cannot be made valid (e.g. y1 > height after clamp
// would invert the range), in which case the caller must drop it.
func clampColumn(x1 int, y1, y2 int) (cx1 uint16, cy1, cy2 uint16, ok bool) {
	if x1 < 0 || x1 >= SCREEN_WIDTH {
		return 0, 0, 0, false
	}
	if y1 < 0 {
		y1 = 0
	}
	if y2 >= SCREEN_HEIGHT {
		y2 = SCREEN_HEIGHT - 1
	}
	if y1 > y2 || y1 >= SCREEN_HEIGHT || y2 < 0 {
		return 0, 0, 0, false
	}
	return uint16(x1), uint16(y1), uint16(y2), true
}

// clampSpan enforces 0 <= y < height, 0 <= x1 <= x2 < width.
func clampSpan(y int, x1, x2 int) (cy uint16, cx1, cx2 uint16, ok bool) {
	if y < 0 || y >= SCREEN_HEIGHT {
		return 0, 0, 0, false
	}
	if x1 < 0 {
		x1 = 0
	}
	if x2 >= SCREEN_WIDTH {
		x2 = SCREEN_WIDTH - 1
	}
	if x1 > x2 || x1 >= SCREEN_WIDTH || x2 < 0 {
		return 0, 0, 0, false
	}
	return uint16(y), uint16(x1), uint16(x2), true
}

// clampLight saturates a light level to the valid [0, MAX_LIGHT_LEVEL]
// colormap band (§3/§8 submission invariant). Applied both at
// submission time (command_builder.go) and again defensively inside
// the raster kernel's draw path (raster_backend.go), per §9's
// "PL kernel re-clamps defensively" rule.
func clampLight(light uint8) uint8 {
	if light > MAX_LIGHT_LEVEL {
		return MAX_LIGHT_LEVEL
	}
	return light
}
