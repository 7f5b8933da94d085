package session

import (
	"sync"
	"testing"
	"time"

	"github.com/everyshare/tripbot/domain"
	"github.com/everyshare/tripbot/store"
)

func newTestRegistry() *Registry {
	return NewRegistry(func(sessionID string) *Resources {
		return &Resources{
			SessionID:     sessionID,
			FlightHistory: store.NewMemoryHistory(),
		}
	})
}

func TestRegistryGetSameInstance(t *testing.T) {
	g := newTestRegistry()
	a := g.Get("s1")
	b := g.Get("s1")
	if a != b {
		t.Fatal("repeated Get must return the same instance")
	}
	if g.Get("s2") == a {
		t.Fatal("different sessions must not share resources")
	}
	if g.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", g.Len())
	}
}

func TestRegistryGetConcurrent(t *testing.T) {
	g := newTestRegistry()

	const workers = 32
	results := make([]*Resources, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Get("s1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent Get produced distinct instances")
		}
	}
	if g.Len() != 1 {
		t.Fatalf("expected exactly 1 session, got %d", g.Len())
	}
}

func TestRegistryEvictFlightState(t *testing.T) {
	g := newTestRegistry()
	res := g.Get("s1")
	res.Slots = &domain.FlightSlots{Origin: "인천"}

	g.EvictFlightState("s1")
	if res.Slots != nil {
		t.Fatalf("slots not cleared: %+v", res.Slots)
	}
	if g.Get("s1") != res {
		t.Fatal("eviction must not drop the session itself")
	}

	// Unknown session is a no-op.
	g.EvictFlightState("nope")
}

func TestRegistryDropWaitsForInFlight(t *testing.T) {
	g := newTestRegistry()
	res := g.Get("s1")
	res.Slots = &domain.FlightSlots{Origin: "인천"}

	res.Lock() // simulate an in-flight turn
	done := make(chan struct{})
	go func() {
		g.Drop("s1")
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Drop must wait for the in-flight turn")
	default:
	}

	res.Unlock()
	<-done

	fresh := g.Get("s1")
	if fresh == res {
		t.Fatal("Get after Drop must build fresh resources")
	}
}
