package relayopts

import (
	"testing"
	"time"
)

func TestProgressLatchLastValueWins(t *testing.T) {
	sender, receiver := NewSyncProgress()

	sender.Send(SyncProgress{Total: 100, Current: 10})
	sender.Send(SyncProgress{Total: 100, Current: 20})
	sender.Send(SyncProgress{Total: 100, Current: 30})

	select {
	case <-receiver.Changed():
	case <-time.After(time.Second):
		t.Fatal("expected a coalesced change notification")
	}

	got := receiver.Latest()
	if got.Current != 30 {
		t.Errorf("Latest().Current = %d, want 30 (last value wins)", got.Current)
	}

	select {
	case <-receiver.Changed():
		t.Error("expected no further pending notification after a single drain")
	default:
	}
}

func TestProgressReceiverSeesInitialZeroValue(t *testing.T) {
	_, receiver := NewSyncProgress()

	got := receiver.Latest()
	if got.Total != 0 || got.Current != 0 {
		t.Errorf("Latest() before any Send = %+v, want zero value", got)
	}
}
