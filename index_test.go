package imagesweep

import "testing"

func TestIndex_MatchVote(t *testing.T) {
	t.Parallel()

	idx := NewIndex(2)
	idx.Register(Fingerprint{1, 2, 3}, "a.jpg")

	tests := []struct {
		name  string
		probe Fingerprint
		want  bool
	}{
		{"all slots", Fingerprint{1, 2, 3}, true},
		{"perception and difference", Fingerprint{1, 2, 9}, true},
		{"perception and average", Fingerprint{1, 9, 3}, true},
		{"difference and average", Fingerprint{9, 2, 3}, true},
		{"one slot", Fingerprint{1, 8, 9}, false},
		{"none", Fingerprint{7, 8, 9}, false},
	}
	for _, tc := range tests {
		e, ok := idx.Match(tc.probe, "")
		if ok != tc.want {
			t.Errorf("%s: matched = %v, want %v", tc.name, ok, tc.want)
		}
		if ok && e.Path != "a.jpg" {
			t.Errorf("%s: matched %q, want a.jpg", tc.name, e.Path)
		}
	}
}

func TestIndex_EarliestRegisteredWins(t *testing.T) {
	t.Parallel()

	idx := NewIndex(2)
	idx.Register(Fingerprint{5, 6, 100}, "first.jpg")
	idx.Register(Fingerprint{5, 6, 200}, "second.jpg")

	e, ok := idx.Match(Fingerprint{5, 6, 300}, "")
	if !ok || e.Path != "first.jpg" {
		t.Errorf("Match = %q %v, want first.jpg", e.Path, ok)
	}
	if idx.Len() != 2 {
		t.Errorf("Len = %d, want 2", idx.Len())
	}
}

func TestIndex_ExcludeOwnPath(t *testing.T) {
	t.Parallel()

	idx := NewIndex(2)
	idx.Register(Fingerprint{1, 1, 1}, "self.jpg")
	if _, ok := idx.Match(Fingerprint{1, 1, 1}, "self.jpg"); ok {
		t.Error("file matched its own entry")
	}
	idx.Register(Fingerprint{1, 1, 2}, "other.jpg")
	if e, ok := idx.Match(Fingerprint{1, 1, 1}, "self.jpg"); !ok || e.Path != "other.jpg" {
		t.Errorf("Match = %q %v, want other.jpg", e.Path, ok)
	}
}

func TestIndex_DisabledThreshold(t *testing.T) {
	t.Parallel()

	idx := NewIndex(0)
	idx.Register(Fingerprint{1, 2, 3}, "a.jpg")
	if _, ok := idx.Match(Fingerprint{1, 2, 3}, ""); ok {
		t.Error("threshold 0 must never match")
	}
}
