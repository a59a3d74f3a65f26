package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wad-Law/ingestor/internal/strategy"
)

func TestSaveAndLoadPosition(t *testing.T) {
	t.Parallel()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	pos := strategy.Position{
		MarketID:    "m1",
		FilledQty:   decimal.RequireFromString("178.5"),
		AvgPx:       decimal.RequireFromString("0.56"),
		Fees:        decimal.RequireFromString("0.1"),
		Notional:    decimal.RequireFromString("99.96"),
		LastUpdated: time.Date(2026, time.May, 13, 12, 0, 0, 0, time.UTC),
	}

	if err := s.SavePosition("m1", pos); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	got, err := s.LoadPosition("m1")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if got == nil {
		t.Fatal("LoadPosition returned nil for saved market")
	}
	if !got.FilledQty.Equal(pos.FilledQty) || !got.AvgPx.Equal(pos.AvgPx) {
		t.Errorf("loaded %+v, want %+v", got, pos)
	}
}

func TestLoadMissingPosition(t *testing.T) {
	t.Parallel()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	got, err := s.LoadPosition("never-saved")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if got != nil {
		t.Errorf("LoadPosition = %+v, want nil for missing market", got)
	}
}

func TestSaveOverwrites(t *testing.T) {
	t.Parallel()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	first := strategy.Position{MarketID: "m1", FilledQty: decimal.NewFromInt(10)}
	second := strategy.Position{MarketID: "m1", FilledQty: decimal.NewFromInt(25)}

	if err := s.SavePosition("m1", first); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}
	if err := s.SavePosition("m1", second); err != nil {
		t.Fatalf("SavePosition: %v", err)
	}

	got, err := s.LoadPosition("m1")
	if err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if !got.FilledQty.Equal(second.FilledQty) {
		t.Errorf("FilledQty = %s, want 25", got.FilledQty)
	}
}

func TestPathHostileMarketID(t *testing.T) {
	t.Parallel()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	id := "0x1234/evil:id"
	pos := strategy.Position{MarketID: id, FilledQty: decimal.NewFromInt(1)}
	if err := s.SavePosition(id, pos); err != nil {
		t.Fatalf("SavePosition with hostile ID: %v", err)
	}

	got, err := s.LoadPosition(id)
	if err != nil || got == nil {
		t.Fatalf("LoadPosition with hostile ID: %v, %+v", err, got)
	}
}
