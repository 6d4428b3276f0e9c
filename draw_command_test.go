// draw_command_test.go - wire round-trip and clamp invariants (§8)
package main

import "testing"

func TestDrawCommand_EncodeDecodeRoundTrip(t *testing.T) {
	want := DrawCommand{
		Kind:   CMD_KIND_SPAN,
		Light:  17,
		X1:     3,
		X2:     300,
		Y1:     9,
		Y2:     199,
		Frac:   0xDEADBEEF,
		Step:   0x00010203,
		TexOff: 0x00ABCDEF,
	}
	buf := want.Encode()
	got := DecodeDrawCommand(buf)
	if got != want {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestDrawCommand_DecodeWords_MatchesDecodeDrawCommand(t *testing.T) {
	cmd := DrawCommand{Kind: CMD_KIND_COLUMN, Light: 5, X1: 10, Y1: 20, Y2: 180, Frac: 1 << 16, Step: 1 << 10, TexOff: 512}
	buf := cmd.Encode()
	viaWords := DecodeWords([16]byte(buf[:16]), [16]byte(buf[16:32]))
	viaBuf := DecodeDrawCommand(buf)
	if viaWords != viaBuf {
		t.Fatalf("DecodeWords and DecodeDrawCommand disagree: %+v vs %+v", viaWords, viaBuf)
	}
}

func TestDrawCommand_ReservedBytesAlwaysZero(t *testing.T) {
	cmd := DrawCommand{Kind: 0xFF, Light: 0xFF, X1: 0xFFFF, X2: 0xFFFF, Y1: 0xFFFF, Y2: 0xFFFF, Frac: 0xFFFFFFFF, Step: 0xFFFFFFFF, TexOff: 0xFFFFFFFF}
	buf := cmd.Encode()
	for _, i := range []int{10, 11, 24, 25, 26, 27, 28, 29, 30, 31} {
		if buf[i] != 0 {
			t.Fatalf("reserved byte %d = %#x, want 0", i, buf[i])
		}
	}
}

func TestClampColumn_InBounds(t *testing.T) {
	x, y1, y2, ok := clampColumn(10, 5, 50)
	if !ok || x != 10 || y1 != 5 || y2 != 50 {
		t.Fatalf("unexpected clamp result: x=%d y1=%d y2=%d ok=%v", x, y1, y2, ok)
	}
}

func TestClampColumn_ClampsOverflowY(t *testing.T) {
	_, y1, y2, ok := clampColumn(0, -5, 9999)
	if !ok || y1 != 0 || y2 != SCREEN_HEIGHT-1 {
		t.Fatalf("expected clamp to [0, %d], got y1=%d y2=%d ok=%v", SCREEN_HEIGHT-1, y1, y2, ok)
	}
}

func TestClampColumn_RejectsOutOfRangeX(t *testing.T) {
	if _, _, _, ok := clampColumn(-1, 0, 10); ok {
		t.Fatal("expected x1 < 0 to be rejected")
	}
	if _, _, _, ok := clampColumn(SCREEN_WIDTH, 0, 10); ok {
		t.Fatal("expected x1 >= width to be rejected")
	}
}

func TestClampColumn_RejectsInvertedRange(t *testing.T) {
	if _, _, _, ok := clampColumn(0, 50, 10); ok {
		t.Fatal("expected y1 > y2 to be rejected")
	}
}

func TestClampColumn_SinglePixelBoundary(t *testing.T) {
	x, y1, y2, ok := clampColumn(SCREEN_WIDTH-1, SCREEN_HEIGHT-1, SCREEN_HEIGHT-1)
	if !ok || x != SCREEN_WIDTH-1 || y1 != SCREEN_HEIGHT-1 || y2 != SCREEN_HEIGHT-1 {
		t.Fatalf("bottom-right single pixel column rejected: x=%d y1=%d y2=%d ok=%v", x, y1, y2, ok)
	}
}

func TestClampSpan_InBounds(t *testing.T) {
	y, x1, x2, ok := clampSpan(100, 5, 50)
	if !ok || y != 100 || x1 != 5 || x2 != 50 {
		t.Fatalf("unexpected clamp result: y=%d x1=%d x2=%d ok=%v", y, x1, x2, ok)
	}
}

func TestClampSpan_RejectsOutOfRangeY(t *testing.T) {
	if _, _, _, ok := clampSpan(-1, 0, 10); ok {
		t.Fatal("expected y < 0 to be rejected")
	}
	if _, _, _, ok := clampSpan(SCREEN_HEIGHT, 0, 10); ok {
		t.Fatal("expected y >= height to be rejected")
	}
}

func TestClampSpan_SinglePixelBoundary(t *testing.T) {
	y, x1, x2, ok := clampSpan(0, 0, 0)
	if !ok || y != 0 || x1 != 0 || x2 != 0 {
		t.Fatalf("top-left single pixel span rejected: y=%d x1=%d x2=%d ok=%v", y, x1, x2, ok)
	}
}
