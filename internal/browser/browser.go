// Package browser drives the headless browser a session runner visits pages with.
package browser

import (
	"context"
)

// Session is one browser tab owned by a single session runner for its whole lifetime.
type Session interface {
	// Navigate loads url and returns once the page load event fired.
	Navigate(ctx context.Context, url string) error
	Title(ctx context.Context) (string, error)
	// EvaluateVisibility reports whether the first element matching selector is rendered with a non-zero size.
	EvaluateVisibility(ctx context.Context, selector string) (bool, error)
	// InjectStorage writes every entry into the page origin's localStorage.
	InjectStorage(ctx context.Context, entries map[string]string) error
	// Screenshot captures the visible viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to a Launcher.
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

const visibilityScript = `(function(selector) {
	const element = document.querySelector(selector);
	if (!element) return false;
	const style = window.getComputedStyle(element);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	const rect = element.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
})(%s)`

const injectStorageScript = `(function(entries) {
	Object.entries(entries).forEach(([key, value]) => localStorage.setItem(key, value));
	return true;
})(%s)`
