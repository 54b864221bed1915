package layout

import "testing"

func TestParseAnchorPixels(t *testing.T) {
	a, err := ParseAnchor("120")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Percent || a.Value != 120 {
		t.Fatalf("unexpected anchor %+v", a)
	}
	if got := a.Resolve(9999); got != 120 {
		t.Fatalf("pixel anchor must ignore extent, got %d", got)
	}
}

func TestParseAnchorPercent(t *testing.T) {
	a, err := ParseAnchor("35%")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Percent || a.Value != 35 {
		t.Fatalf("unexpected anchor %+v", a)
	}
	if got := a.Resolve(200); got != 70 {
		t.Fatalf("expected 70, got %d", got)
	}
}

func TestParseAnchorRejectsBadInput(t *testing.T) {
	for _, s := range []string{"", "abc", "-5", "150%"} {
		if _, err := ParseAnchor(s); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestInjectionPointMeasuresFromBottom(t *testing.T) {
	left, _ := ParseAnchor("50%")
	bottom, _ := ParseAnchor("10%")
	x, y := InjectionPoint(left, bottom, 800, 600)
	if x != 400 {
		t.Fatalf("expected x=400, got %d", x)
	}
	if y != 540 {
		t.Fatalf("expected y=540, got %d", y)
	}
}

func TestInjectionPointClampsNegativeY(t *testing.T) {
	left, _ := ParseAnchor("0")
	bottom, _ := ParseAnchor("900")
	_, y := InjectionPoint(left, bottom, 800, 600)
	if y != 0 {
		t.Fatalf("expected clamp to 0, got %d", y)
	}
}
