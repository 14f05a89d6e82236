package tessera

import (
	"fmt"
	"reflect"
)

// Plugin is a reusable bundle of Manager configuration (section 4.11):
// Build wires resources/events/states/systems onto the Manager and
// Scheduler. A plugin that also implements Deinitializer has its Deinit
// run at shutdown.
type Plugin interface {
	Build(m *Manager, s *Scheduler, pm *PluginManager) error
}

// Deinitializer is an optional extension of Plugin: a plugin that needs
// teardown logic beyond what ResourceTable.Teardown already covers.
type Deinitializer interface {
	Deinit(m *Manager) error
}

type pluginEntry struct {
	typeName string
	value    any
}

// PluginManager registers plugins keyed by type, builds them in
// registration order, and tears them down in reverse (section 4.11).
type PluginManager struct {
	byType map[string]*pluginEntry
	order  []*pluginEntry
}

// NewPluginManager creates an empty manager.
func NewPluginManager() *PluginManager {
	return &PluginManager{byType: make(map[string]*pluginEntry)}
}

// Add registers instance, rejecting a duplicate of the same concrete type.
func (pm *PluginManager) Add(instance Plugin) error {
	name := reflect.TypeOf(instance).String()
	if _, exists := pm.byType[name]; exists {
		return PluginAlreadyExistsError{TypeName: name}
	}
	entry := &pluginEntry{typeName: name, value: instance}
	pm.byType[name] = entry
	pm.order = append(pm.order, entry)
	return nil
}

// AddBundle registers every field of a struct value as its own plugin
// (section 4.11's add_bundle; shallow, not recursive into nested bundles).
// Unexported fields and fields that do not implement Plugin are skipped.
func (pm *PluginManager) AddBundle(bundle any) error {
	rv := reflect.ValueOf(bundle)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		plugin, ok := fv.Interface().(Plugin)
		if !ok {
			continue
		}
		if err := pm.Add(plugin); err != nil {
			return err
		}
	}
	return nil
}

// Build runs every registered plugin's Build in registration order. A
// build failure is fatal per section 4.11: the spec treats it as abend
// rather than a continuable error, so Build returns immediately with the
// first error and does not attempt the remaining plugins.
func (pm *PluginManager) Build(m *Manager, s *Scheduler) error {
	for _, entry := range pm.order {
		plugin := entry.value.(Plugin)
		if err := plugin.Build(m, s, pm); err != nil {
			return fmt.Errorf("plugin %s build failed: %w", entry.typeName, err)
		}
	}
	return nil
}

// Deinit runs Deinit on every plugin that implements Deinitializer, in
// reverse registration order, continuing past per-plugin errors and
// returning all of them together (section 4.11's LIFO, best-effort
// shutdown).
func (pm *PluginManager) Deinit(m *Manager) []error {
	var errs []error
	for i := len(pm.order) - 1; i >= 0; i-- {
		entry := pm.order[i]
		d, ok := entry.value.(Deinitializer)
		if !ok {
			continue
		}
		if err := d.Deinit(m); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s deinit failed: %w", entry.typeName, err))
		}
	}
	return errs
}

// Get returns the registered plugin of concrete type T, if any.
func Get[T Plugin](pm *PluginManager) (T, bool) {
	var zero T
	name := reflect.TypeOf(zero).String()
	entry, ok := pm.byType[name]
	if !ok {
		return zero, false
	}
	return entry.value.(T), true
}

// Has reports whether a plugin of concrete type T is registered.
func Has[T Plugin](pm *PluginManager) bool {
	_, ok := Get[T](pm)
	return ok
}

// Len returns the number of registered plugins.
func (pm *PluginManager) Len() int { return len(pm.order) }

// Names returns every registered plugin's type name, in registration
// order.
func (pm *PluginManager) Names() []string {
	out := make([]string, len(pm.order))
	for i, e := range pm.order {
		out[i] = e.typeName
	}
	return out
}
