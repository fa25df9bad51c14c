package stream

import (
	"math/rand/v2"
	"testing"
)

func TestGapTable_StableAndPeriodic(t *testing.T) {
	g := NewGapTable(DefaultGapConfig(), 20, rand.New(rand.NewPCG(4, 2)))

	first := make([]float64, 20)
	for i := range first {
		first[i] = g.Gap(i)
	}
	for round := 0; round < 3; round++ {
		for i := -40; i < 40; i++ {
			want := first[((i%20)+20)%20]
			if got := g.Gap(i); got != want {
				t.Fatalf("Gap(%d) = %f, want %f", i, got, want)
			}
		}
	}
	if g.Len() != 20 {
		t.Errorf("expected 20 cached gaps, got %d", g.Len())
	}
}

func TestGapTable_OrderOfFirstAccessDoesNotMatter(t *testing.T) {
	a := NewGapTable(DefaultGapConfig(), 30, rand.New(rand.NewPCG(8, 8)))
	b := NewGapTable(DefaultGapConfig(), 30, rand.New(rand.NewPCG(8, 8)))

	b.Gap(25)
	b.Gap(-1)
	b.Gap(3)
	for i := 0; i < 30; i++ {
		if a.Gap(i) != b.Gap(i) {
			t.Fatalf("gap %d depends on access order", i)
		}
	}
}

func TestGapTable_Rhythm(t *testing.T) {
	cfg := DefaultGapConfig()
	g := NewGapTable(cfg, 500, rand.New(rand.NewPCG(1, 3)))

	run := 0
	sawLarge := false
	for i := 0; i < 500; i++ {
		v := g.Gap(i)
		switch {
		case v >= cfg.SmallMin && v <= cfg.SmallMax:
			run++
		case v >= cfg.LargeMin && v <= cfg.LargeMax:
			if run < cfg.RunMin || run > cfg.RunMax {
				t.Fatalf("large gap at %d after a run of %d small gaps", i, run)
			}
			if !g.IsLarge(i) {
				t.Fatalf("IsLarge(%d) = false for %f", i, v)
			}
			run = 0
			sawLarge = true
		default:
			t.Fatalf("gap %d = %f outside both tiers", i, v)
		}
	}
	if !sawLarge {
		t.Errorf("no large gaps in 500 items")
	}
}

func TestGapTable_EmptyPeriod(t *testing.T) {
	g := NewGapTable(DefaultGapConfig(), 0, nil)
	if g.Gap(5) != 0 || g.Gap(-5) != 0 {
		t.Errorf("empty table should return 0")
	}
}
