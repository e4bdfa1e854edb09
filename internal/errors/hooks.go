// Package errors - reporting hooks
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook receives every error built while at least one hook is registered.
// Hooks run synchronously in the goroutine calling Build and must not block.
type ErrorHook func(ee *EnhancedError)

var (
	hooksMu            sync.RWMutex
	errorHooks         []ErrorHook
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook and switches Build to the full reporting path
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = append(errorHooks, hook)
	hasActiveReporting.Store(true)
}

// ClearErrorHooks removes all hooks
func ClearErrorHooks() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	errorHooks = nil
	hasActiveReporting.Store(false)
}

// notifyHooks delivers ee to every registered hook once
func notifyHooks(ee *EnhancedError) {
	if ee.IsReported() {
		return
	}

	hooksMu.RLock()
	hooks := make([]ErrorHook, len(errorHooks))
	copy(hooks, errorHooks)
	hooksMu.RUnlock()

	for _, hook := range hooks {
		hook(ee)
	}
	ee.MarkReported()
}
