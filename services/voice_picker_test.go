package services

import "testing"

func TestPickSessionVoiceStable(t *testing.T) {
	sessionID := "3f1c9a4e-0000-0000-0000-000000000001"

	first := PickSessionVoice(sessionID)
	for i := 0; i < 10; i++ {
		if got := PickSessionVoice(sessionID); got != first {
			t.Fatalf("voice changed between calls: %q then %q", first, got)
		}
	}

	inPool := false
	for _, voice := range interviewerVoices {
		if voice == first {
			inPool = true
			break
		}
	}
	if !inPool {
		t.Errorf("picked voice %q is not in the pool", first)
	}
}

func TestPickSessionVoiceSpreads(t *testing.T) {
	// Not a distribution test, just a sanity check that different sessions do
	// not all collapse onto one voice
	seen := map[string]bool{}
	ids := []string{"session-a", "session-b", "session-c", "session-d", "session-e", "session-f", "session-g", "session-h"}
	for _, id := range ids {
		seen[PickSessionVoice(id)] = true
	}
	if len(seen) < 2 {
		t.Errorf("8 sessions mapped to %d voice(s)", len(seen))
	}
}
