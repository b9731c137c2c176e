package ansi

import "testing"

func TestPaletteBase16(t *testing.T) {
	if Palette(0) != (Color{0, 0, 0}) {
		t.Errorf("expected black at index 0, got %+v", Palette(0))
	}
	if Palette(1) != (Color{205, 0, 0}) {
		t.Errorf("expected red at index 1, got %+v", Palette(1))
	}
	if Palette(15) != (Color{255, 255, 255}) {
		t.Errorf("expected bright white at index 15, got %+v", Palette(15))
	}
}

func TestPaletteColorCube(t *testing.T) {
	// Cube corners: index 16 is (0,0,0), index 231 is grid (5,5,5).
	if Palette(16) != (Color{0, 0, 0}) {
		t.Errorf("expected black at cube origin, got %+v", Palette(16))
	}
	if Palette(231) != (Color{255, 255, 255}) {
		t.Errorf("expected white at cube corner, got %+v", Palette(231))
	}

	// Pure red corner: 16 + 5*36 = 196.
	if Palette(196) != (Color{255, 0, 0}) {
		t.Errorf("expected (255,0,0) at index 196, got %+v", Palette(196))
	}
	// 16 + 1*36 + 2*6 + 3 = 67 -> levels (95, 135, 175).
	if Palette(67) != (Color{95, 135, 175}) {
		t.Errorf("expected (95,135,175) at index 67, got %+v", Palette(67))
	}
}

func TestPaletteGrayscale(t *testing.T) {
	if Palette(232) != (Color{8, 8, 8}) {
		t.Errorf("expected (8,8,8) at index 232, got %+v", Palette(232))
	}
	if Palette(255) != (Color{238, 238, 238}) {
		t.Errorf("expected (238,238,238) at index 255, got %+v", Palette(255))
	}
}

func TestColorHex(t *testing.T) {
	if got := (Color{255, 0, 10}).Hex(); got != "#ff000a" {
		t.Errorf("expected #ff000a, got %s", got)
	}
}
