package billing

import (
	"math"
	"testing"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.005, -1.01},
		{2.674, 2.67},
		{0.125, 0.13},
		{-0.125, -0.13},
		{10, 10},
		{0, 0},
	}
	for _, c := range cases {
		if got := Round2(c.in); got != c.want {
			t.Fatalf("Round2(%v): expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestRound2CoercesNonFinite(t *testing.T) {
	if got := Round2(math.NaN()); got != 0 {
		t.Fatalf("expected NaN to coerce to 0, got %v", got)
	}
	if got := Round2(math.Inf(1)); got != 0 {
		t.Fatalf("expected +Inf to coerce to 0, got %v", got)
	}
	if got := Round2(math.Inf(-1)); got != 0 {
		t.Fatalf("expected -Inf to coerce to 0, got %v", got)
	}
}

func TestNormalizeRate(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{18, 0.18},
		{0.18, 0.18},
		{100, 1},
		{1, 1},
		{0, 0},
		{-5, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, c := range cases {
		if got := NormalizeRate(c.in); got != c.want {
			t.Fatalf("NormalizeRate(%v): expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestLineNet(t *testing.T) {
	if got := LineNet(10, 75); got != 750 {
		t.Fatalf("expected 750, got %v", got)
	}
	if got := LineNet(2, -30); got != -60 {
		t.Fatalf("expected signed net -60, got %v", got)
	}
	if got := LineNet(math.NaN(), 75); got != 0 {
		t.Fatalf("expected NaN quantity to coerce, got %v", got)
	}
	if got := LineNet(10, math.Inf(1)); got != 0 {
		t.Fatalf("expected Inf price to coerce, got %v", got)
	}
}
