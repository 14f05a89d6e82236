package tessera

import (
	"errors"
	"testing"
)

type recordingPlugin struct {
	name        string
	buildErr    error
	deinitErr   error
	built       *bool
	deinitOrder *[]string
}

func (p recordingPlugin) Build(m *Manager, s *Scheduler, pm *PluginManager) error {
	if p.built != nil {
		*p.built = true
	}
	return p.buildErr
}

func (p recordingPlugin) Deinit(m *Manager) error {
	if p.deinitOrder != nil {
		*p.deinitOrder = append(*p.deinitOrder, p.name)
	}
	return p.deinitErr
}

type otherPlugin struct{ recordingPlugin }

func TestPluginManagerAddRejectsDuplicateType(t *testing.T) {
	pm := NewPluginManager()
	if err := pm.Add(recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if err := pm.Add(recordingPlugin{name: "b"}); err == nil {
		t.Error("second Add of the same concrete type returned nil error")
	} else if _, ok := err.(PluginAlreadyExistsError); !ok {
		t.Errorf("error = %T, want PluginAlreadyExistsError", err)
	}
}

func TestPluginManagerBuildRunsInRegistrationOrder(t *testing.T) {
	pm := NewPluginManager()
	firstBuilt, secondBuilt := false, false
	_ = pm.Add(recordingPlugin{name: "first", built: &firstBuilt})
	_ = pm.Add(otherPlugin{recordingPlugin{name: "second", built: &secondBuilt}})

	m := NewManager()
	s := NewScheduler(m)
	if err := pm.Build(m, s); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !firstBuilt || !secondBuilt {
		t.Errorf("not every registered plugin was built: first=%v second=%v", firstBuilt, secondBuilt)
	}
	names := pm.Names()
	if len(names) != 2 {
		t.Fatalf("Names() = %v, want 2 entries", names)
	}
}

func TestPluginManagerBuildFailsFast(t *testing.T) {
	pm := NewPluginManager()
	boom := errors.New("boom")
	_ = pm.Add(recordingPlugin{name: "first", buildErr: boom})
	secondBuilt := false
	_ = pm.Add(otherPlugin{recordingPlugin{name: "second", built: &secondBuilt}})

	m := NewManager()
	s := NewScheduler(m)
	if err := pm.Build(m, s); err == nil {
		t.Error("Build returned nil error despite the first plugin failing")
	}
	if secondBuilt {
		t.Error("Build ran the second plugin after the first one failed (expected fail-fast)")
	}
}

func TestPluginManagerDeinitRunsLIFOAndBestEffort(t *testing.T) {
	pm := NewPluginManager()
	var order []string
	boom := errors.New("boom")
	_ = pm.Add(recordingPlugin{name: "first", deinitOrder: &order})
	_ = pm.Add(otherPlugin{recordingPlugin{name: "second", deinitErr: boom, deinitOrder: &order}})

	m := NewManager()
	errs := pm.Deinit(m)
	if len(errs) != 1 {
		t.Fatalf("Deinit returned %d errors, want 1 (best-effort should still run every plugin)", len(errs))
	}
	want := []string{"second", "first"}
	if len(order) != 2 || order[0] != want[0] || order[1] != want[1] {
		t.Errorf("Deinit order = %v, want %v (reverse registration order)", order, want)
	}
}

func TestPluginManagerGetAndHas(t *testing.T) {
	pm := NewPluginManager()
	_ = pm.Add(recordingPlugin{name: "a"})

	if !Has[recordingPlugin](pm) {
		t.Error("Has[recordingPlugin] = false after registering one")
	}
	if Has[otherPlugin](pm) {
		t.Error("Has[otherPlugin] = true for a type never registered")
	}
	got, ok := Get[recordingPlugin](pm)
	if !ok || got.name != "a" {
		t.Errorf("Get[recordingPlugin] = (%+v, %v), want (name=a, true)", got, ok)
	}
}

type pluginBundle struct {
	A recordingPlugin
	B otherPlugin
}

func TestPluginManagerAddBundleRegistersEveryField(t *testing.T) {
	pm := NewPluginManager()
	bundle := pluginBundle{A: recordingPlugin{name: "a"}, B: otherPlugin{recordingPlugin{name: "b"}}}
	if err := pm.AddBundle(bundle); err != nil {
		t.Fatalf("AddBundle failed: %v", err)
	}
	if pm.Len() != 2 {
		t.Errorf("Len() = %d after AddBundle, want 2", pm.Len())
	}
}
