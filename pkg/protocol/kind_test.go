package protocol

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
	}{
		{"MENU_ACTION", KindActionReplay},
		{"menu_action", KindActionReplay},
		{"Walk_World", KindWalkTo},
		{"DIALOG_CONTINUE", KindContinue},
		{" DIALOG_CONTINUE ", KindContinue},
		{"TELEPORT", KindUnknown},
		{"", KindUnknown},
	}

	for _, tt := range tests {
		result := ParseKind(tt.input)
		if result != tt.expected {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.input, result, tt.expected)
		}
	}
}

func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindActionReplay, "MENU_ACTION"},
		{KindWalkTo, "WALK_WORLD"},
		{KindContinue, "DIALOG_CONTINUE"},
		{KindUnknown, "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.expected {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.expected)
		}
	}
}
