package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func probeServer(t *testing.T, up bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !up {
			// Hold the request past the probe timeout to simulate a dead endpoint.
			time.Sleep(200 * time.Millisecond)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGate(endpoints []string) *Gate {
	return New(endpoints, time.Second, 50*time.Millisecond)
}

func TestProbeAllEndpointsDown(t *testing.T) {
	gate := newTestGate([]string{
		probeServer(t, false).URL,
		probeServer(t, false).URL,
		probeServer(t, false).URL,
	})
	if gate.Probe(context.Background()) {
		t.Fatalf("expected offline when all endpoints fail")
	}
}

func TestProbeSingleSuccessMeansOnline(t *testing.T) {
	gate := newTestGate([]string{
		probeServer(t, false).URL,
		probeServer(t, true).URL,
		probeServer(t, false).URL,
	})
	if !gate.Probe(context.Background()) {
		t.Fatalf("expected online when one endpoint succeeds")
	}
}

func TestProbeAllEndpointsUp(t *testing.T) {
	gate := newTestGate([]string{
		probeServer(t, true).URL,
		probeServer(t, true).URL,
	})
	if !gate.Probe(context.Background()) {
		t.Fatalf("expected online when all endpoints succeed")
	}
}

func TestStatusDefaultsToOnlineBeforeFirstProbe(t *testing.T) {
	gate := newTestGate([]string{probeServer(t, false).URL})
	if !gate.Status().Online {
		t.Fatalf("expected conservative online default before any probe")
	}
}

func TestForceCheckRecordsResult(t *testing.T) {
	gate := newTestGate([]string{probeServer(t, false).URL})

	status := gate.ForceCheck(context.Background())
	if status.Online {
		t.Fatalf("expected offline after failed probe")
	}
	if status.LastChecked.IsZero() {
		t.Fatalf("expected LastChecked to be set")
	}
	if gate.Status().Online {
		t.Fatalf("expected recorded status to be offline")
	}
}

func TestSubscribeNotifiesOnChangeOnly(t *testing.T) {
	gate := newTestGate([]string{probeServer(t, false).URL})

	ch, cancel := gate.Subscribe()
	defer cancel()

	gate.record(false)
	select {
	case status := <-ch:
		if status.Online {
			t.Fatalf("expected offline notification, got %+v", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected notification on first reading")
	}

	// Same value again: no notification.
	gate.record(false)
	select {
	case status := <-ch:
		t.Fatalf("unexpected notification for unchanged status: %+v", status)
	case <-time.After(50 * time.Millisecond):
	}

	gate.record(true)
	select {
	case status := <-ch:
		if !status.Online {
			t.Fatalf("expected online notification, got %+v", status)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected notification on change")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	gate := newTestGate([]string{probeServer(t, true).URL})
	done := make(chan struct{})
	go func() {
		gate.Run(context.Background(), nil)
		close(done)
	}()

	gate.Stop()
	gate.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Run to return after Stop")
	}
}

type fakeNotifier struct {
	ch chan bool
}

func (n *fakeNotifier) Events() <-chan bool { return n.ch }

func TestRunReactsToNotifierEvents(t *testing.T) {
	gate := newTestGate([]string{probeServer(t, false).URL})
	notifier := &fakeNotifier{ch: make(chan bool, 1)}

	go gate.Run(context.Background(), notifier)
	defer gate.Stop()

	ch, cancel := gate.Subscribe()
	defer cancel()

	// An OS "online" hint flips the reading immediately.
	notifier.ch <- true

	deadline := time.After(2 * time.Second)
	for {
		select {
		case status := <-ch:
			if status.Online {
				return
			}
		case <-deadline:
			t.Fatalf("expected online status after notifier event")
		}
	}
}
