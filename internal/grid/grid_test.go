package grid

import (
	"math"
	"testing"
)

func TestStepSize(t *testing.T) {
	step, err := StepSize(30000, 25000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if step != 500 {
		t.Fatalf("expected 500, got %f", step)
	}

	// step × count recovers the range
	cases := []struct {
		upper, lower float64
		count        int
	}{
		{30000, 25000, 10},
		{3.5, 1.2, 7},
		{100, 99.5, 1},
		{52000, 41000, 23},
	}
	for _, c := range cases {
		step, err := StepSize(c.upper, c.lower, c.count)
		if err != nil {
			t.Fatalf("StepSize(%v, %v, %d): %v", c.upper, c.lower, c.count, err)
		}
		got := step * float64(c.count)
		want := c.upper - c.lower
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("step*count = %f, want %f", got, want)
		}
	}
}

func TestStepSize_Validation(t *testing.T) {
	if _, err := StepSize(25000, 30000, 10); err == nil {
		t.Fatal("expected error for upper <= lower")
	}
	if _, err := StepSize(30000, 30000, 10); err == nil {
		t.Fatal("expected error for upper == lower")
	}
	if _, err := StepSize(30000, 25000, 0); err == nil {
		t.Fatal("expected error for zero grid count")
	}
}

func TestLevels(t *testing.T) {
	levels, err := Levels(30000, 25000, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 5 {
		t.Fatalf("expected 5 levels, got %d", len(levels))
	}
	if levels[0] != 30000 {
		t.Fatalf("first level should be the upper limit, got %f", levels[0])
	}
	if levels[len(levels)-1] != 25000 {
		t.Fatalf("last level should be the lower limit, got %f", levels[len(levels)-1])
	}

	// Descending, evenly spaced
	for i := 1; i < len(levels); i++ {
		if levels[i] >= levels[i-1] {
			t.Fatalf("levels not descending at %d: %f >= %f", i, levels[i], levels[i-1])
		}
	}
	expectedStep := 5000.0 / 4
	for i := 1; i < len(levels); i++ {
		gap := levels[i-1] - levels[i]
		if math.Abs(gap-expectedStep) > 1e-9 {
			t.Fatalf("uneven gap at %d: %f, want %f", i, gap, expectedStep)
		}
	}
}

func TestLevels_Validation(t *testing.T) {
	if _, err := Levels(30000, 25000, 1); err == nil {
		t.Fatal("expected error for fewer than 2 levels")
	}
	if _, err := Levels(25000, 30000, 5); err == nil {
		t.Fatal("expected error for inverted range")
	}
}

func TestPotentialProfit(t *testing.T) {
	// 100 × 0.005 × 10 × 0.5 = 2.5
	got := PotentialProfit(100, 0.005, 10, DefaultActivationRate)
	if math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("expected 2.5, got %f", got)
	}

	// Deterministic: same inputs, same output
	again := PotentialProfit(100, 0.005, 10, DefaultActivationRate)
	if got != again {
		t.Fatal("PotentialProfit is not deterministic")
	}

	if PotentialProfit(0, 0.005, 10, 0.5) != 0 {
		t.Fatal("zero investment should yield zero profit")
	}
}
