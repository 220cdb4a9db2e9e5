package version

import (
	"strings"
	"testing"
)

func TestBuildID(t *testing.T) {
	tests := []struct {
		name      string
		date      string
		expected  int
		wantError bool
	}{
		{name: "epoch date", date: "2025-12-04", expected: 0},
		{name: "next day after epoch", date: "2025-12-05", expected: 1},
		{name: "one year later", date: "2026-12-04", expected: 365},
		{name: "date with leap years included", date: "2032-12-04", expected: 2557},
		{name: "invalid format", date: "invalid", wantError: true},
		{name: "empty date", date: "", wantError: true},
		{name: "before epoch", date: "2025-12-03", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildID(tt.date)

			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got nil (id=%d)", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("buildID(%q) = %d, want %d", tt.date, got, tt.expected)
			}
		})
	}
}

func TestInfo(t *testing.T) {
	old := BuildDate
	defer func() { BuildDate = old }()

	BuildDate = "2025-12-14"
	info := Info(1)
	if info.BuildID != 10 || info.Error != "" || info.ProtocolVersion != 1 {
		t.Errorf("info = %+v", info)
	}
	if s := info.String(); !strings.Contains(s, "build 10") || !strings.Contains(s, "commit[unknown]") {
		t.Errorf("string = %q", s)
	}

	BuildDate = ""
	if info := Info(1); info.Error == "" || !strings.Contains(info.String(), "build unknown") {
		t.Errorf("info = %+v", info)
	}
}
