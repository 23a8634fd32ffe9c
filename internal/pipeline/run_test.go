package pipeline

import "testing"

func TestRunAdvancesInOrder(t *testing.T) {
	run := NewRun()
	if run.State() != StateIdle {
		t.Fatalf("initial state = %q, want %q", run.State(), StateIdle)
	}

	order := []State{
		StateCapturing,
		StateNormalizing,
		StateTranscribing,
		StateGenerating,
		StateSynthesizing,
		StatePlaying,
		StateIdle,
	}
	for _, want := range order {
		got, err := run.Advance()
		if err != nil {
			t.Fatalf("Advance to %q: %v", want, err)
		}
		if got != want {
			t.Fatalf("state = %q, want %q", got, want)
		}
	}
}

func TestRunFailRecordsStageAndIdles(t *testing.T) {
	run := NewRun()
	for i := 0; i < 3; i++ { // Idle -> Capturing -> Normalizing -> Transcribing
		if _, err := run.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}

	run.Fail(Errf(KindBackend, "boom"))

	if run.State() != StateIdle {
		t.Errorf("state after Fail = %q, want %q", run.State(), StateIdle)
	}
	stage, ferr, ok := run.Failure()
	if !ok {
		t.Fatal("Failure() reported no failure")
	}
	if stage != StateTranscribing {
		t.Errorf("failed stage = %q, want %q", stage, StateTranscribing)
	}
	if ferr.Kind != KindBackend {
		t.Errorf("failure kind = %q, want %q", ferr.Kind, KindBackend)
	}
}

func TestRunCannotAdvanceAfterFailure(t *testing.T) {
	run := NewRun()
	if _, err := run.Advance(); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	run.Fail(Errf(KindNetwork, "gone"))

	if _, err := run.Advance(); err == nil {
		t.Error("expected Advance on a failed run to error")
	}
}

func TestRunFinishReturnsToIdle(t *testing.T) {
	run := NewRun()
	for i := 0; i < 6; i++ {
		if _, err := run.Advance(); err != nil {
			t.Fatalf("Advance: %v", err)
		}
	}
	run.Finish()
	if run.State() != StateIdle {
		t.Errorf("state = %q, want %q", run.State(), StateIdle)
	}
	if _, _, ok := run.Failure(); ok {
		t.Error("successful run reported a failure")
	}
}
