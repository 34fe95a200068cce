package ml

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"busdelay/features"
)

func testSpec(t *testing.T) ArtifactSpec {
	dir := t.TempDir()
	return ArtifactSpec{
		Schema:     features.StopVisitSchema,
		ScalerType: ScalerStandard,
		ScalerPath: writeFile(t, dir, "scaler.json", `{"feature_names":["stop_sequence","stop_lat","stop_lon","hour_of_day","day_of_week"],"mean":[0,0,0,0,0],"scale":[1,1,1,1,1]}`),
		ModelType:  ModelLogisticRegression,
		ModelPath:  writeFile(t, dir, "model.json", `{"coef":[0,0,0,0,0],"intercept":0}`),
	}
}

func TestStoreReloadKeepsPreviousOnFailure(t *testing.T) {
	spec := testSpec(t)
	initial, err := LoadArtifacts(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store := NewStore(initial, zap.NewNop())

	writeFile(t, "", spec.ModelPath, `{"coef":[1,0,0,0,0],"intercept":0}`)
	if err := store.Reload(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	reloaded := store.Current()
	if reloaded.Generation() == initial.Generation() {
		t.Fatal("expected a new generation after reload")
	}

	writeFile(t, "", spec.ModelPath, `not json`)
	if err := store.Reload(); err == nil {
		t.Fatal("expected reload error")
	}
	if store.Current() != reloaded {
		t.Fatal("expected previous artifacts to stay active")
	}
}

func TestStoreWatchReloadsOnWrite(t *testing.T) {
	spec := testSpec(t)
	initial, err := LoadArtifacts(spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	store := NewStore(initial, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloads := make(chan error, 4)
	done := make(chan error, 1)
	go func() { done <- store.Watch(ctx, func(err error) { reloads <- err }) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeFile(t, "", spec.ModelPath, `{"coef":[0,0,0,2,0],"intercept":1}`)

	select {
	case err := <-reloads:
		if err != nil {
			t.Fatalf("unexpected reload error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if store.Current().Generation() == initial.Generation() {
		t.Fatal("expected new artifacts after file change")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("unexpected watch error: %v", err)
	}
}
