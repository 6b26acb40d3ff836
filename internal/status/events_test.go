package status

import "testing"

// TestBusSequencing verifies sequence assignment and incremental reads.
func TestBusSequencing(t *testing.T) {
	b := NewBus(10)
	b.Publish("job-1", "audio started", "0s")
	b.Publish("job-1", "audio done", "12s")
	b.Publish("job-2", "audio started", "0s")

	all := b.Since(0)
	if len(all) != 3 {
		t.Fatalf("Since(0) returned %d events, want 3", len(all))
	}
	for i, ev := range all {
		if ev.Seq != int64(i+1) {
			t.Errorf("event %d seq = %d, want %d", i, ev.Seq, i+1)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d missing timestamp", i)
		}
	}

	tail := b.Since(2)
	if len(tail) != 1 || tail[0].JobID != "job-2" {
		t.Fatalf("Since(2) = %+v, want single job-2 event", tail)
	}
	if got := b.Since(99); len(got) != 0 {
		t.Fatalf("Since past end = %+v, want empty", got)
	}
}

// TestBusBounded checks old events are trimmed once the cap is hit.
func TestBusBounded(t *testing.T) {
	b := NewBus(3)
	for i := 0; i < 5; i++ {
		b.Publish("job", "tick", "")
	}
	events := b.Since(0)
	if len(events) != 3 {
		t.Fatalf("kept %d events, want 3", len(events))
	}
	if events[0].Seq != 3 {
		t.Fatalf("oldest kept seq = %d, want 3", events[0].Seq)
	}
}
