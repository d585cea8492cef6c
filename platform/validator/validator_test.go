package validator

import "testing"

type vehicleInput struct {
	Registration string `validate:"required,registration"`
	Type         string `validate:"required,vehicle_type"`
}

func TestRegistrationAndVehicleTypeTags(t *testing.T) {
	v := New()

	if err := v.Struct(vehicleInput{Registration: "1-abc-234", Type: "car"}); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
	if err := v.Struct(vehicleInput{Registration: "AB1", Type: "car"}); err == nil {
		t.Fatalf("expected short registration to fail")
	}
	if err := v.Struct(vehicleInput{Registration: "ABC-123", Type: "boat"}); err == nil {
		t.Fatalf("expected unknown vehicle type to fail")
	}
}

func TestVerdictTag(t *testing.T) {
	v := New()
	if err := v.Var("passed_with_minor_issues", "verdict"); err != nil {
		t.Fatalf("expected verdict to be accepted: %v", err)
	}
	if err := v.Var("in_progress", "verdict"); err == nil {
		t.Fatalf("in_progress is not a verdict")
	}
}
