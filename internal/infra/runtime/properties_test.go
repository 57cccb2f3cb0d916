package runtime

import (
	"sync"
	"testing"
)

func TestProperties_Defaults(t *testing.T) {
	props := NewProperties()

	if !props.LedgerEnabled() {
		t.Fatalf("expected ledger enabled by default")
	}
	if !props.ArchiveEnabled() {
		t.Fatalf("expected archive enabled by default")
	}
	if !props.EventsEnabled() {
		t.Fatalf("expected events enabled by default")
	}
}

func TestProperties_Toggles(t *testing.T) {
	props := NewProperties()

	props.SetLedgerEnabled(false)
	if props.LedgerEnabled() {
		t.Fatalf("expected ledger disabled after toggle")
	}

	props.SetArchiveEnabled(false)
	props.SetEventsEnabled(false)
	if props.ArchiveEnabled() || props.EventsEnabled() {
		t.Fatalf("expected side channels disabled after toggle")
	}
}

func TestProperties_ProcessingCounter(t *testing.T) {
	props := NewProperties()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			props.BeginProcessing()
			props.EndProcessing()
		}()
	}
	wg.Wait()

	if got := props.Processing(); got != 0 {
		t.Fatalf("expected no submissions in flight, got %d", got)
	}
	if got := props.Received(); got != workers {
		t.Fatalf("expected %d received, got %d", workers, got)
	}
}
