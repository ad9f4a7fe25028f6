package domain

import "testing"

func TestParseMovement(t *testing.T) {
	tests := []struct {
		input    string
		expected Movement
		ok       bool
	}{
		{"UP", MoveUp, true},
		{"down", MoveDown, true},
		{"Left", MoveLeft, true},
		{"RIGHT", MoveRight, true},
		{"idle", MoveIdle, true},
		{"JUMP", MoveIdle, false},
		{"", MoveIdle, false},
	}

	for _, tt := range tests {
		got, ok := ParseMovement(tt.input)
		if got != tt.expected || ok != tt.ok {
			t.Errorf("ParseMovement(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.expected, tt.ok)
		}
	}
}

func TestMovement_String(t *testing.T) {
	tests := []struct {
		m        Movement
		expected string
	}{
		{MoveUp, "UP"},
		{MoveIdle, "IDLE"},
		{Movement(7), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.m.String(); got != tt.expected {
			t.Errorf("Movement(%d).String() = %q, want %q", tt.m, got, tt.expected)
		}
	}
}

func TestActionNibble(t *testing.T) {
	tests := []struct {
		name   string
		action PlayerAction
		nibble byte
	}{
		{"idle", PlayerAction{}, 0x0},
		{"idle with bomb", PlayerAction{DropBomb: true}, 0x1},
		{"up", PlayerAction{Movement: MoveUp}, 0x2},
		{"right with bomb", PlayerAction{Movement: MoveRight, DropBomb: true}, 0x9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Nibble(); got != tt.nibble {
				t.Fatalf("Nibble() = %#x, want %#x", got, tt.nibble)
			}
			back, ok := ActionFromNibble(tt.nibble)
			if !ok || back != tt.action {
				t.Errorf("ActionFromNibble(%#x) = %v, %v", tt.nibble, back, ok)
			}
		})
	}
}

func TestActionFromNibbleRejectsInvalid(t *testing.T) {
	for _, n := range []byte{0xa, 0xb, 0xc, 0xd, 0xe, KickNibble} {
		if _, ok := ActionFromNibble(n); ok {
			t.Errorf("ActionFromNibble(%#x) accepted", n)
		}
	}
}

func TestPackActions(t *testing.T) {
	actions := []PlayerAction{
		{Movement: MoveUp},
		{Movement: MoveLeft, DropBomb: true},
		{Movement: MoveDown},
	}

	packed := PackActions(nil, actions)
	// [P1, P0] [-, P2]
	want := []byte{0x72, 0x04}
	if len(packed) != len(want) || packed[0] != want[0] || packed[1] != want[1] {
		t.Fatalf("PackActions() = %x, want %x", packed, want)
	}

	unpacked, ok := UnpackActions(packed, len(actions))
	if !ok {
		t.Fatal("UnpackActions() failed")
	}
	for i := range actions {
		if unpacked[i] != actions[i] {
			t.Errorf("action %d = %v, want %v", i, unpacked[i], actions[i])
		}
	}

	if _, ok := UnpackActions(packed[:1], 3); ok {
		t.Error("UnpackActions() accepted a truncated buffer")
	}
}

func TestParseFeatures(t *testing.T) {
	ff, err := ParseFeatures("shield, fog_of_war")
	if err != nil {
		t.Fatal(err)
	}
	if !ff.Has(FeatureShield) || !ff.Has(FeatureFogOfWar) || ff.Has(FeatureInvisibility) {
		t.Errorf("ParseFeatures() = %s", ff)
	}
	if _, err := ParseFeatures("jetpack"); err == nil {
		t.Error("unknown feature accepted")
	}
	if s := FeatureFlags(0).String(); s != "none" {
		t.Errorf("String() = %q", s)
	}
}
