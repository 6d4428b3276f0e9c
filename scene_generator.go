// scene_generator.go - synthetic per-frame draw commands for main.go
//
// Stands in for the out-of-scope game engine: uploads one column
// texture and one flat into the atlas once, then replays a small
// animated sweep of columns and spans each frame so every stage of the
// pipeline (atlas upload, cache fill, raster draw, DMA, present) runs
// against real, if synthetic, data rather than an empty batch.
package main

type sceneCommand struct {
	Kind   uint8
	Light  uint8
	X1, X2 uint16
	Y1, Y2 uint16
	Frac   uint32
	Step   uint32
	TexOff uint32
}

type sceneGenerator struct {
	atlas     *AtlasManager
	columnOff uint32
	flatOff   uint32
}

func newSceneGenerator(atlas *AtlasManager) *sceneGenerator {
	column := make([]byte, COLUMN_BYTES)
	for i := range column {
		column[i] = byte(i)
	}
	flat := make([]byte, FLAT_BYTES)
	for i := range flat {
		flat[i] = byte(i * 3)
	}

	columnOff, _ := atlas.Upload(1, column)
	flatOff, _ := atlas.Upload(2, flat)

	return &sceneGenerator{atlas: atlas, columnOff: columnOff, flatOff: flatOff}
}

// next returns one frame's worth of commands: a sweeping vertical wall
// of columns across the middle of the screen, plus a floor span below
// it, both keyed off frameN so the scene visibly animates.
func (g *sceneGenerator) next(frameN int) []sceneCommand {
	cmds := make([]sceneCommand, 0, SCREEN_WIDTH+1)

	sweep := frameN % SCREEN_WIDTH
	for dx := 0; dx < 64; dx++ {
		x := (sweep + dx) % SCREEN_WIDTH
		cmds = append(cmds, sceneCommand{
			Kind:   CMD_KIND_COLUMN,
			Light:  uint8(dx % MAX_LIGHT_LEVEL),
			X1:     uint16(x),
			Y1:     60,
			Y2:     140,
			Frac:   0,
			Step:   1 << 16,
			TexOff: g.columnOff,
		})
	}

	cmds = append(cmds, sceneCommand{
		Kind:   CMD_KIND_SPAN,
		Light:  8,
		X1:     0,
		X2:     SCREEN_WIDTH - 1,
		Y1:     uint16(140 + frameN%40),
		Frac:   0,
		Step:   1 << 10,
		TexOff: g.flatOff,
	})

	return cmds
}
