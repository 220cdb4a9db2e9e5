package geo

import "testing"

func TestOffsetClamp(t *testing.T) {
	tests := []struct {
		name        string
		in          Offset
		want        Offset
		wantClamped bool
	}{
		{"inside", Offset{DX: 3, DY: -4}, Offset{DX: 3, DY: -4}, false},
		{"on bound", Offset{DX: 8, DY: -8}, Offset{DX: 8, DY: -8}, false},
		{"x too far", Offset{DX: 12, DY: 1}, Offset{DX: 8, DY: 1}, true},
		{"y too far negative", Offset{DX: 0, DY: -40}, Offset{DX: 0, DY: -8}, true},
		{"both", Offset{DX: -9, DY: 9}, Offset{DX: -8, DY: 8}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := tt.in.Clamp(MaxRelative)
			if got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if clamped != tt.wantClamped {
				t.Errorf("Clamp(%v) clamped = %v, want %v", tt.in, clamped, tt.wantClamped)
			}
		})
	}
}

func TestOffsetExceeds(t *testing.T) {
	if (Offset{DX: 8, DY: 8}).Exceeds(MaxRelative) {
		t.Error("8,8 must be within bound")
	}
	if !(Offset{DX: 0, DY: -9}).Exceeds(MaxRelative) {
		t.Error("0,-9 must exceed bound")
	}
}

// Относительный вектор не зависит от базы сцены:
// P' + (D - P) одинаков при любых базах лидера и ведомого.
func TestRelativeOffsetIsFrameIndependent(t *testing.T) {
	leaderScene := Scene{BaseX: 3200, BaseY: 3200, SizeX: 104, SizeY: 104}
	followerScene := Scene{BaseX: 9000, BaseY: 1500, SizeX: 104, SizeY: 104}

	leaderAvatar := leaderScene.ToWorld(ScenePoint{X: 50, Y: 50})
	clicked := leaderScene.ToWorld(ScenePoint{X: 53, Y: 46})
	rel := clicked.Sub(leaderAvatar)

	followerAvatar := followerScene.ToWorld(ScenePoint{X: 20, Y: 70})
	dest := followerAvatar.Add(rel)

	if rel != (Offset{DX: 3, DY: -4}) {
		t.Fatalf("unexpected offset %v", rel)
	}
	sp, ok := followerScene.FromWorld(dest)
	if !ok {
		t.Fatalf("destination %v must be inside follower scene", dest)
	}
	if sp != (ScenePoint{X: 23, Y: 66}) {
		t.Errorf("follower scene destination = %v, want (23, 66)", sp)
	}
}

func TestSceneFromWorldBounds(t *testing.T) {
	s := Scene{BaseX: 100, BaseY: 200, SizeX: 10, SizeY: 10}

	if _, ok := s.FromWorld(WorldPoint{X: 109, Y: 209}); !ok {
		t.Error("corner tile must be inside")
	}
	if _, ok := s.FromWorld(WorldPoint{X: 110, Y: 205}); ok {
		t.Error("x == size must be outside")
	}
	if _, ok := s.FromWorld(WorldPoint{X: 99, Y: 205}); ok {
		t.Error("negative scene x must be outside")
	}
	if _, ok := s.FromWorld(WorldPoint{X: 105, Y: 205, Plane: 1}); ok {
		t.Error("other plane must be outside")
	}
}
