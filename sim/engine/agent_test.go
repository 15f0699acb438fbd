package engine

import (
	"errors"
	"testing"
)

func TestNewAgent(t *testing.T) {
	agent := NewAgent(Position{X: 3, Y: 4}, 70)

	if agent.Position != (Position{X: 3, Y: 4}) {
		t.Errorf("Expected position (3,4), got (%d,%d)", agent.Position.X, agent.Position.Y)
	}
	if agent.Battery != 70 {
		t.Errorf("Expected battery 70, got %d", agent.Battery)
	}
	if agent.Cargo != 0 {
		t.Errorf("Expected empty cargo, got %d", agent.Cargo)
	}
}

func TestAgent_StepTo(t *testing.T) {
	agent := NewAgent(Position{X: 0, Y: 0}, 10)

	agent.StepTo(Position{X: 1, Y: 0}, 1)
	if agent.Position != (Position{X: 1, Y: 0}) {
		t.Errorf("Expected position (1,0), got (%d,%d)", agent.Position.X, agent.Position.Y)
	}
	if agent.Battery != 9 {
		t.Errorf("Expected battery 9, got %d", agent.Battery)
	}

	agent.StepTo(Position{X: 1, Y: 1}, 3)
	if agent.Battery != 6 {
		t.Errorf("Expected battery 6 after rough step, got %d", agent.Battery)
	}
}

func TestAgent_StepTo_BatteryGoesNegative(t *testing.T) {
	agent := NewAgent(Position{X: 0, Y: 0}, 2)

	agent.StepTo(Position{X: 1, Y: 0}, 3)
	if agent.Battery != -1 {
		t.Errorf("Expected battery -1, got %d", agent.Battery)
	}
}

func TestAgent_PickupAndDeliver(t *testing.T) {
	agent := NewAgent(Position{X: 0, Y: 0}, 70)

	agent.Pickup()
	if agent.Cargo != 1 {
		t.Errorf("Expected cargo 1 after pickup, got %d", agent.Cargo)
	}

	if err := agent.Deliver(); err != nil {
		t.Fatalf("Failed to deliver with cargo: %v", err)
	}
	if agent.Cargo != 0 {
		t.Errorf("Expected cargo 0 after delivery, got %d", agent.Cargo)
	}
}

func TestAgent_Deliver_NoCargo(t *testing.T) {
	agent := NewAgent(Position{X: 0, Y: 0}, 70)

	err := agent.Deliver()
	if err == nil {
		t.Fatal("Expected error delivering with no cargo")
	}
	if !errors.Is(err, ErrNoCargo) {
		t.Errorf("Expected ErrNoCargo, got %v", err)
	}
	if agent.Cargo != 0 {
		t.Errorf("Expected cargo to stay 0, got %d", agent.Cargo)
	}
}

func TestAgent_Recharge(t *testing.T) {
	agent := NewAgent(Position{X: 0, Y: 0}, 70)
	agent.StepTo(Position{X: 1, Y: 0}, 50)

	agent.Recharge(60)
	if agent.Battery != 60 {
		t.Errorf("Expected battery 60 after recharge, got %d", agent.Battery)
	}
}
