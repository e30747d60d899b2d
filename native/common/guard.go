package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a module has been halted by governance.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects mutations against a paused module. A nil view or empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
