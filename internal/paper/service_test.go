package paper

import (
	"testing"

	"github.com/Juliocesar7881/Visor-Crypto/internal/execution"
)

func TestServiceGetOrCreateIsStable(t *testing.T) {
	service := NewService(5000)

	first := service.GetOrCreate("alice")
	second := service.GetOrCreate("alice")
	if first != second {
		t.Fatalf("expected the same account instance per user")
	}
	if !almostEqual(first.Balance(QuoteAsset), 5000) {
		t.Fatalf("expected seeded balance 5000, got %.2f", first.Balance(QuoteAsset))
	}

	other := service.GetOrCreate("bob")
	if other == first {
		t.Fatalf("distinct users must get distinct accounts")
	}
}

func TestServiceAccountLookup(t *testing.T) {
	service := NewService(0)
	if _, ok := service.Account("ghost"); ok {
		t.Fatalf("lookup must not create accounts")
	}
	created := service.GetOrCreate("ghost")
	found, ok := service.Account("ghost")
	if !ok || found != created {
		t.Fatalf("lookup should return the created account")
	}
	if !almostEqual(created.Balance(QuoteAsset), DefaultInitialBalance) {
		t.Fatalf("zero initial balance must fall back to the default")
	}
}

func TestServiceTerminalHookCarriesUserID(t *testing.T) {
	service := NewService(10000)

	type event struct {
		userID   string
		position Position
	}
	var events []event

	// hook must bind to accounts created before and after registration
	before := service.GetOrCreate("early")
	service.SetTerminalHook(func(userID string, position Position) {
		events = append(events, event{userID, position})
	})
	after := service.GetOrCreate("late")

	open, err := before.OpenPosition("BTCUSDT", execution.Buy, 1000, 5, 50000)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if _, err := before.ClosePosition(open.Position.ID, 51000); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}

	open, err = after.OpenPosition("ETHUSDT", execution.Buy, 500, 5, 2500)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if _, err := after.LiquidatePosition(open.Position.ID); err != nil {
		t.Fatalf("unexpected liquidate error: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected 2 terminal events, got %d", len(events))
	}
	if events[0].userID != "early" || events[0].position.Status != PositionClosed {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].userID != "late" || events[1].position.Status != PositionLiquidated {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}
