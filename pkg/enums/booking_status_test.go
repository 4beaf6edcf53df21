package enums

import "testing"

func TestParseBookingStatus(t *testing.T) {
	status, err := ParseBookingStatus("pending_payment")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != BookingStatusPendingPayment {
		t.Fatalf("unexpected status %s", status)
	}

	if _, err := ParseBookingStatus("checked_in"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestBookingStatusIsValid(t *testing.T) {
	for _, status := range validBookingStatuses {
		if !status.IsValid() {
			t.Errorf("%s should be valid", status)
		}
	}
	if BookingStatus("nope").IsValid() {
		t.Error("unknown status should be invalid")
	}
}
