package metrics

import "testing"

func TestSetPeersActiveUpdatesSnapshot(t *testing.T) {
	SetPeersActive(3)
	if got := Snap().PeersActive; got != 3 {
		t.Fatalf("expected PeersActive 3, got %d", got)
	}
	SetPeersActive(0)
	if got := Snap().PeersActive; got != 0 {
		t.Fatalf("expected PeersActive 0, got %d", got)
	}
}

func TestIncCountersAdvanceSnapshot(t *testing.T) {
	before := Snap()
	IncConnAccepted()
	IncFrameRx("mouse_move")
	IncFrameTx("mouse_delta")
	IncFrameDropped()
	IncMalformed()
	IncFocusTransition("to_peer")
	IncEdgeRebind()
	IncClipboardSync("text")
	IncInjectionError()
	IncError(ErrHandshake)
	after := Snap()

	ok := after.ConnsAccepted == before.ConnsAccepted+1 &&
		after.FramesRx == before.FramesRx+1 &&
		after.FramesTx == before.FramesTx+1 &&
		after.FramesDropped == before.FramesDropped+1 &&
		after.Malformed == before.Malformed+1 &&
		after.FocusTransitions == before.FocusTransitions+1 &&
		after.EdgeRebinds == before.EdgeRebinds+1 &&
		after.ClipboardSyncs == before.ClipboardSyncs+1 &&
		after.InjectionErrors == before.InjectionErrors+1 &&
		after.Errors == before.Errors+1
	if !ok {
		t.Fatalf("expected every counter to advance by 1: before=%+v after=%+v", before, after)
	}
}

func TestReadinessDefaultsToReadyWithoutFunc(t *testing.T) {
	SetReadinessFunc(nil)
	if !IsReady() {
		t.Fatalf("expected IsReady to default true with no readiness func set")
	}
	SetReadinessFunc(func() bool { return false })
	if IsReady() {
		t.Fatalf("expected IsReady to reflect the registered func")
	}
	SetReadinessFunc(nil)
}
