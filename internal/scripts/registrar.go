// Package scripts reconciles the persisted set of enabled scripts/styles
// against whatever is actually registered on the live page, per domain.
package scripts

// Registrar is the subset of *browser.Controller the reconciler needs.
// Kept as an interface so the reconciler is testable with a fake.
type Registrar interface {
	RegisterPersistentScript(id, code string) error
	UnregisterPersistentScript(id string) error
	RegisteredIDs() []string
	InjectStyle(name, css string) error
	RemoveStyle(name string) error
}
