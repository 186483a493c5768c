package extract

import (
	"testing"

	"kharcha/internal/core"
)

func TestPaymentDetails(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		wantParty     string
		wantDirection core.Direction
		wantAmount    float64
	}{
		{
			name:          "received with amount",
			text:          "Received from Aman Kumar\n₹500",
			wantParty:     "Aman Kumar",
			wantDirection: core.Received,
			wantAmount:    500,
		},
		{
			name:          "paid to",
			text:          "Paid to Ramesh Stores\n₹120",
			wantParty:     "Ramesh Stores",
			wantDirection: core.Send,
			wantAmount:    120,
		},
		{
			name:          "bare to line",
			text:          "To Priya\nrs 80",
			wantParty:     "Priya",
			wantDirection: core.Send,
			wantAmount:    80,
		},
		{
			name:          "first matching line wins",
			text:          "From Aman\nTo Priya",
			wantParty:     "Aman",
			wantDirection: core.Received,
			wantAmount:    0,
		},
		{
			name:          "unanchored fallback",
			text:          "payment of ₹250 to John completed",
			wantParty:     "John completed",
			wantDirection: core.Send,
			wantAmount:    250,
		},
		{
			name:          "metadata keyword truncates name",
			text:          "Paid to John Doe UPI ID 99881234",
			wantParty:     "John Doe",
			wantDirection: core.Send,
			wantAmount:    0,
		},
		{
			name:          "junk characters stripped",
			text:          "Received from  Aman*# Kumar  ",
			wantParty:     "Aman Kumar",
			wantDirection: core.Received,
			wantAmount:    0,
		},
		{
			name:          "nothing extractable",
			text:          "transaction complete",
			wantParty:     UnknownCounterparty,
			wantDirection: core.Send,
			wantAmount:    0,
		},
		{
			name:          "empty text",
			text:          "",
			wantParty:     UnknownCounterparty,
			wantDirection: core.Send,
			wantAmount:    0,
		},
		{
			name:          "name empty after cleanup",
			text:          "Paid to ***",
			wantParty:     UnknownCounterparty,
			wantDirection: core.Send,
			wantAmount:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentDetails(tt.text)
			if got.Counterparty != tt.wantParty {
				t.Errorf("Counterparty = %q, want %q", got.Counterparty, tt.wantParty)
			}
			if got.Direction != tt.wantDirection {
				t.Errorf("Direction = %q, want %q", got.Direction, tt.wantDirection)
			}
			if got.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
			if got.Description != ScreenshotNote {
				t.Errorf("Description = %q, want %q", got.Description, ScreenshotNote)
			}
		})
	}
}

func TestCleanCounterpartyCapsLength(t *testing.T) {
	name := cleanCounterparty("Aman Kumar Aman Kumar Aman Kumar Aman Kumar Aman Kumar Aman Kumar Aman")
	if len(name) > counterpartyMaxLen {
		t.Errorf("cleaned name length = %d, exceeds cap %d", len(name), counterpartyMaxLen)
	}
}
