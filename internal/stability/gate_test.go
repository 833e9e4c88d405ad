package stability

import (
	"testing"
	"time"
)

func testGate(quiet time.Duration) *Gate {
	g := NewGate(quiet)
	g.openable = func(string) bool { return true }
	return g
}

func fp(size int64, sec int64) Fingerprint {
	return Fingerprint{Size: size, ModTime: time.Unix(sec, 0)}
}

func TestPromoteRequiresQuietPeriod(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	if got := g.Promote(start.Add(500 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("promoted before quiet period elapsed: %v", got)
	}

	// Identical observation keeps the streak aging.
	g.Observe("/w/a.csv", fp(10, 1), start.Add(600*time.Millisecond))
	got := g.Promote(start.Add(1100 * time.Millisecond))
	if len(got) != 1 || got[0] != "/w/a.csv" {
		t.Fatalf("expected promotion, got %v", got)
	}
	if g.State("/w/a.csv") != StateStable {
		t.Fatalf("state = %v, want stable", g.State("/w/a.csv"))
	}
}

func TestChangedObservationResetsStreak(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	g.Observe("/w/a.csv", fp(20, 2), start.Add(900*time.Millisecond))

	if got := g.Promote(start.Add(1100 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("promoted despite recent change: %v", got)
	}
	if got := g.Promote(start.Add(2 * time.Second)); len(got) != 1 {
		t.Fatalf("expected promotion after new streak aged: %v", got)
	}
}

func TestGrowingFileNeverPromotes(t *testing.T) {
	g := testGate(time.Second)
	now := time.Unix(1000, 0)

	for i := int64(0); i < 50; i++ {
		g.Observe("/w/live.csv", fp(100+i, 1000+i), now)
		now = now.Add(500 * time.Millisecond)
		if got := g.Promote(now); len(got) != 0 {
			t.Fatalf("growing file promoted at iteration %d", i)
		}
	}
}

func TestEmptyFileNeverPromotes(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/empty.csv", fp(0, 1), start)
	if got := g.Promote(start.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("empty file promoted: %v", got)
	}
}

func TestUnopenableFileNeverPromotes(t *testing.T) {
	g := testGate(time.Second)
	g.openable = func(string) bool { return false }
	start := time.Unix(1000, 0)

	g.Observe("/w/locked.csv", fp(10, 1), start)
	if got := g.Promote(start.Add(time.Hour)); len(got) != 0 {
		t.Fatalf("unopenable file promoted: %v", got)
	}
}

func TestClaimOnlyFromStable(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	if g.Claim("/w/a.csv") {
		t.Fatal("claimed an unseen path")
	}

	g.Observe("/w/a.csv", fp(10, 1), start)
	if g.Claim("/w/a.csv") {
		t.Fatal("claimed an observing path")
	}

	g.Promote(start.Add(2 * time.Second))
	if !g.Claim("/w/a.csv") {
		t.Fatal("failed to claim a stable path")
	}
	if g.Claim("/w/a.csv") {
		t.Fatal("claimed a path twice")
	}
	if g.State("/w/a.csv") != StateConverting {
		t.Fatalf("state = %v, want converting", g.State("/w/a.csv"))
	}
}

func TestCompleteUnchangedParksIdle(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	g.Promote(start.Add(2 * time.Second))
	g.Claim("/w/a.csv")

	state := g.Complete("/w/a.csv", fp(10, 1), start.Add(3*time.Second))
	if state != StateIdle {
		t.Fatalf("state = %v, want idle", state)
	}
}

func TestCompleteChangedReobserves(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	g.Promote(start.Add(2 * time.Second))
	g.Claim("/w/a.csv")

	state := g.Complete("/w/a.csv", fp(30, 5), start.Add(3*time.Second))
	if state != StateObserving {
		t.Fatalf("state = %v, want observing", state)
	}

	// The fresh streak must age before promotion fires again.
	if got := g.Promote(start.Add(3500 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("promoted before re-stabilization: %v", got)
	}
	if got := g.Promote(start.Add(5 * time.Second)); len(got) != 1 {
		t.Fatalf("expected re-promotion: %v", got)
	}
}

func TestIdleReobservesOnNewFingerprint(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	g.Promote(start.Add(2 * time.Second))
	g.Claim("/w/a.csv")
	g.Complete("/w/a.csv", fp(10, 1), start.Add(3*time.Second))

	// Identical observation on an Idle entry stays Idle.
	g.Observe("/w/a.csv", fp(10, 1), start.Add(4*time.Second))
	if g.State("/w/a.csv") != StateIdle {
		t.Fatalf("state = %v, want idle", g.State("/w/a.csv"))
	}

	g.Observe("/w/a.csv", fp(12, 9), start.Add(5*time.Second))
	if g.State("/w/a.csv") != StateObserving {
		t.Fatalf("state = %v, want observing", g.State("/w/a.csv"))
	}
}

func TestForgetDropsTracking(t *testing.T) {
	g := testGate(time.Second)
	g.Observe("/w/a.csv", fp(10, 1), time.Unix(1000, 0))
	g.Forget("/w/a.csv")
	if g.State("/w/a.csv") != StateUnseen {
		t.Fatal("expected unseen after forget")
	}
	if g.Len() != 0 {
		t.Fatalf("len = %d, want 0", g.Len())
	}
}

func TestObservingListsOnlyObservingPaths(t *testing.T) {
	g := testGate(time.Second)
	start := time.Unix(1000, 0)

	g.Observe("/w/a.csv", fp(10, 1), start)
	g.Observe("/w/b.csv", fp(10, 1), start)
	g.Promote(start.Add(2 * time.Second))
	g.Claim("/w/a.csv")
	g.Claim("/w/b.csv")
	g.Observe("/w/c.csv", fp(5, 3), start.Add(2*time.Second))

	observing := g.Observing()
	if len(observing) != 1 || observing[0] != "/w/c.csv" {
		t.Fatalf("observing = %v, want [/w/c.csv]", observing)
	}
}
