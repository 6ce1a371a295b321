package common

import "errors"

// ErrModulePaused is returned by mutating operations while the module is
// administratively paused.
var ErrModulePaused = errors.New("module paused")

// PauseView exposes the pause switchboard consulted by native modules.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard returns ErrModulePaused when the named module is paused. A nil view
// or empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
