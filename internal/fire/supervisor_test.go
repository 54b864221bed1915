package fire

import (
	"context"
	"testing"
	"time"
)

func testSupervisor(t *testing.T, staging *memStaging) (*Supervisor, *Sequencer) {
	t.Helper()
	inj := &fakeInjector{}
	seq, _ := testSequencer(t, inj, staging, &memRounds{})
	seq.sleep = func(ctx context.Context, _ time.Duration) error {
		return sleepCtx(ctx, time.Millisecond)
	}
	sup := NewSupervisor(seq, seq.Log, 500*time.Millisecond)
	return sup, seq
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSupervisorStopEndsSession(t *testing.T) {
	staging := &memStaging{handles: []string{"a"}}
	sup, seq := testSupervisor(t, staging)

	if _, err := sup.Start(context.Background(), Request{Mode: ModeAuto, Target: "t", Prompt: "p"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, sup.Active)

	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if sup.Active() {
		t.Fatal("session still active after stop")
	}
	state, err := seq.State.Load()
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	if state.Mode != ModeSafe {
		t.Fatalf("expected safe after stop, got %q", state.Mode)
	}
}

func TestSupervisorReplacementStopsPrevious(t *testing.T) {
	staging := &memStaging{handles: []string{"a"}}
	sup, _ := testSupervisor(t, staging)

	first, err := sup.Start(context.Background(), Request{Mode: ModeAuto, Target: "t", Prompt: "p1"})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	waitFor(t, sup.Active)

	// The second request wins; Start returns only after the first session
	// has wound down.
	second, err := sup.Start(context.Background(), Request{Mode: ModeAuto, Target: "t", Prompt: "p2"})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if first == second {
		t.Fatal("replacement reused the session id")
	}
	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSupervisorStopWithoutSession(t *testing.T) {
	sup, _ := testSupervisor(t, &memStaging{})
	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("stop with no session: %v", err)
	}
}

func TestSupervisorSetGraceDuringSession(t *testing.T) {
	staging := &memStaging{handles: []string{"a"}}
	sup, _ := testSupervisor(t, staging)

	if _, err := sup.Start(context.Background(), Request{Mode: ModeAuto, Target: "t", Prompt: "p"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, sup.Active)

	sup.SetGrace(time.Second)
	if sup.Grace() != time.Second {
		t.Fatalf("grace not swapped, got %s", sup.Grace())
	}
	if err := sup.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func TestSupervisorCompletedSemiIsInactive(t *testing.T) {
	staging := &memStaging{handles: []string{"a"}}
	sup, _ := testSupervisor(t, staging)

	if _, err := sup.Start(context.Background(), Request{Mode: ModeSemi, Target: "t", Prompt: "p"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitFor(t, func() bool { return !sup.Active() })
}
