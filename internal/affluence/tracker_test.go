// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package affluence

import (
	"io"
	"sync"
	"testing"

	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/models"
)

//nolint:gochecknoinits // init ensures quiet logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "json", Output: io.Discard})
}

// recordingBroadcaster captures every broadcast for assertions.
type recordingBroadcaster struct {
	mu         sync.Mutex
	broadcasts [][]models.POIAffluence
}

func (r *recordingBroadcaster) BroadcastAffluence(pois []models.POIAffluence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, pois)
}

func (r *recordingBroadcaster) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.broadcasts)
}

func (r *recordingBroadcaster) last() []models.POIAffluence {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.broadcasts) == 0 {
		return nil
	}
	return r.broadcasts[len(r.broadcasts)-1]
}

func testPOIs() []models.POI {
	return []models.POI{
		{ID: "origin", Name: "Origin exhibit", Latitude: 0, Longitude: 0, Category: models.CategoryAnimal},
		{ID: "north", Name: "North garden", Latitude: 0.01, Longitude: 0, Category: models.CategoryPlant},
	}
}

func TestSnapshot_CountsWithinCaptureRadius(t *testing.T) {
	tr := NewTracker(testPOIs(), 30, nil)

	// Directly on the POI: counts.
	tr.RegisterPosition("visitor-1", 0, 0)
	// 0.00035 degrees of longitude at the equator is about 39 m: outside.
	tr.RegisterPosition("visitor-2", 0, 0.00035)

	snap := tr.Snapshot()
	if snap[0].Affluence != 1 {
		t.Errorf("origin affluence = %d, want 1", snap[0].Affluence)
	}
	if snap[1].Affluence != 0 {
		t.Errorf("north affluence = %d, want 0", snap[1].Affluence)
	}
}

func TestRemoveConnection_DecrementsCount(t *testing.T) {
	tr := NewTracker(testPOIs(), 30, nil)

	tr.RegisterPosition("visitor-1", 0, 0)
	tr.RegisterPosition("visitor-2", 0, 0.0001) // ~11 m, inside
	if got := tr.Snapshot()[0].Affluence; got != 2 {
		t.Fatalf("affluence = %d, want 2", got)
	}

	tr.RemoveConnection("visitor-2")
	if got := tr.Snapshot()[0].Affluence; got != 1 {
		t.Errorf("affluence after removal = %d, want 1", got)
	}
	if tr.ConnectionCount() != 1 {
		t.Errorf("connection count = %d, want 1", tr.ConnectionCount())
	}
}

func TestRemoveConnection_UnknownIsNoOp(t *testing.T) {
	tr := NewTracker(testPOIs(), 30, nil)
	tr.RegisterPosition("visitor-1", 0, 0)

	tr.RemoveConnection("ghost")

	if tr.ConnectionCount() != 1 {
		t.Errorf("connection count = %d, want 1", tr.ConnectionCount())
	}
}

func TestRegisterPosition_OverwritesPriorSample(t *testing.T) {
	tr := NewTracker(testPOIs(), 30, nil)

	tr.RegisterPosition("visitor-1", 0, 0)
	// Same connection moves out of range: only the latest value counts.
	tr.RegisterPosition("visitor-1", 0.005, 0)

	if got := tr.Snapshot()[0].Affluence; got != 0 {
		t.Errorf("affluence = %d, want 0 after move", got)
	}
	if tr.ConnectionCount() != 1 {
		t.Errorf("connection count = %d, want 1 (overwrite, not insert)", tr.ConnectionCount())
	}
}

func TestBroadcastOnEveryMutation(t *testing.T) {
	rec := &recordingBroadcaster{}
	tr := NewTracker(testPOIs(), 30, rec)

	tr.RegisterPosition("visitor-1", 0, 0)
	tr.RegisterPosition("visitor-1", 0.0001, 0)
	tr.RemoveConnection("visitor-1")

	// One broadcast per mutation, no coalescing.
	if rec.count() != 3 {
		t.Fatalf("broadcast count = %d, want 3", rec.count())
	}

	last := rec.last()
	if last[0].Affluence != 0 {
		t.Errorf("final broadcast affluence = %d, want 0", last[0].Affluence)
	}
}

func TestBroadcastCarriesStaticPOIFields(t *testing.T) {
	rec := &recordingBroadcaster{}
	tr := NewTracker(testPOIs(), 30, rec)

	tr.RegisterPosition("visitor-1", 0, 0)

	got := rec.last()
	if len(got) != 2 {
		t.Fatalf("broadcast POI count = %d, want 2", len(got))
	}
	if got[0].ID != "origin" || got[0].Category != models.CategoryAnimal {
		t.Errorf("broadcast lost static POI fields: %+v", got[0].POI)
	}
}

func TestDefaultRadiusFallback(t *testing.T) {
	tr := NewTracker(testPOIs(), 0, nil)
	if tr.radiusM != DefaultCaptureRadiusMeters {
		t.Errorf("radius = %v, want default %v", tr.radiusM, DefaultCaptureRadiusMeters)
	}
}

func TestConcurrentMutations(t *testing.T) {
	rec := &recordingBroadcaster{}
	tr := NewTracker(testPOIs(), 30, rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n))
			for j := 0; j < 50; j++ {
				tr.RegisterPosition(id, 0, 0)
			}
			tr.RemoveConnection(id)
		}(i)
	}
	wg.Wait()

	if tr.ConnectionCount() != 0 {
		t.Errorf("connection count = %d, want 0 after all disconnects", tr.ConnectionCount())
	}
	if got := tr.Snapshot()[0].Affluence; got != 0 {
		t.Errorf("affluence = %d, want 0", got)
	}
}
