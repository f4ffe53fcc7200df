// Package ui implements an optional live command-line dashboard for
// tree scans using [tea].
package ui

import (
	"context"
	"fmt"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// Handler is the principal implementation of a user interface Handler.
type Handler struct {
	state   *ScanState
	program *tea.Program

	Ready  atomic.Bool
	Failed atomic.Bool
}

// NewHandler returns a pointer to a new user interface [Handler] over
// the shared scan state.
func NewHandler(ctx context.Context, cancel context.CancelFunc, state *ScanState) *Handler {
	handler := &Handler{
		state: state,
	}

	model := NewTeaModel(handler, state, cancel)
	handler.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	return handler
}

// Launch starts the command-line user interface (the [tea.Program]).
func (uiHandler *Handler) Launch() error {
	if _, err := uiHandler.program.Run(); err != nil {
		uiHandler.Failed.Store(true)

		return fmt.Errorf("(ui) %w", err)
	}

	return nil
}

// Quit asks a running interface to terminate.
func (uiHandler *Handler) Quit() {
	uiHandler.program.Quit()
}
