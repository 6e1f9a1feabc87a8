package render

import "testing"

func TestStabilityTrackerStopsOnFirstRepeat(t *testing.T) {
	// Counts [3,5,5] with a budget of 4 rounds: the loop must stop after
	// round 3 (first repeat), not run a 4th round.
	counts := []int{3, 5, 5, 7}
	maxRounds := 4

	var tracker stabilityTracker
	rounds := 0
	for round := 1; round <= maxRounds; round++ {
		rounds++
		if tracker.observe(counts[round-1]) {
			break
		}
	}

	if rounds != 3 {
		t.Errorf("stabilization ran %d rounds, want 3", rounds)
	}
}

func TestStabilityTrackerNeverStopsWhileGrowing(t *testing.T) {
	var tracker stabilityTracker
	for i, count := range []int{1, 2, 3, 4} {
		if tracker.observe(count) {
			t.Fatalf("round %d: stopped while counts still changing", i+1)
		}
	}
}

func TestStabilityTrackerFirstObservationNeverStops(t *testing.T) {
	var tracker stabilityTracker
	if tracker.observe(0) {
		t.Error("a single observation has nothing to repeat against")
	}
}
