package engine

import (
	"context"
	"sync"

	"github.com/rowan/genbridge/internal/logger"
)

// Manager owns the single active workflow view, mirroring the source UI's one
// selection at a time. Selecting a different workflow tears the old view down
// before the new one accepts any data.
type Manager struct {
	backend  Backend
	push     PushDialer
	inputDir string
	opts     Options
	logger   *logger.Logger

	mu   sync.Mutex
	ctx  context.Context
	gen  uint64
	view *View
}

// NewManager creates a manager. ctx bounds the lifetime of every view it
// creates.
func NewManager(ctx context.Context, be Backend, push PushDialer, inputDir string, opts Options, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.GetDefault()
	}
	return &Manager{
		backend:  be,
		push:     push,
		inputDir: inputDir,
		opts:     opts.withDefaults(),
		logger:   log,
		ctx:      ctx,
	}
}

// Select returns the view for the workflow, switching to it if another
// workflow is currently active. Switching closes the old view's push channel,
// cancels its timers and pending callbacks, and discards its store, upload
// cache, and recheck record.
func (m *Manager) Select(workflowID string) *View {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.view != nil && m.view.workflowID == workflowID {
		return m.view
	}
	if m.view != nil {
		m.view.close()
	}
	m.gen++
	v := newView(m.ctx, workflowID, m.gen, m.backend, m.push, m.inputDir, m.opts, m.logger)
	m.view = v
	v.start()
	m.logger.WithFields(logger.Fields{
		logger.FieldWorkflowID: workflowID,
		"view_gen":             m.gen,
	}).Info("workflow selected")
	return v
}

// Current returns the active view, or nil when no workflow has been selected.
func (m *Manager) Current() *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view
}

// Close tears down the active view.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.view != nil {
		m.view.close()
		m.view = nil
	}
}
