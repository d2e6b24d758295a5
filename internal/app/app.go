package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Module is a unit of the catalog with activation hooks. Activation must be
// idempotent; deactivation must not destroy data.
type Module interface {
	Name() string
	Activate(ctx context.Context) error
	Deactivate(ctx context.Context) error
}

// Coordinator activates and deactivates an explicit list of modules.
type Coordinator struct {
	modules []Module
	log     *zap.Logger
}

// New creates a coordinator for modules, run in the given order.
func New(log *zap.Logger, modules ...Module) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{modules: modules, log: log.Named("app")}
}

// Modules returns the module names in activation order.
func (c *Coordinator) Modules() []string {
	names := make([]string, 0, len(c.modules))
	for _, m := range c.modules {
		names = append(names, m.Name())
	}
	return names
}

// Activate runs every module's activation in order and stops at the first failure.
func (c *Coordinator) Activate(ctx context.Context) error {
	for _, m := range c.modules {
		if err := m.Activate(ctx); err != nil {
			return fmt.Errorf("activating %s: %w", m.Name(), err)
		}
		c.log.Debug("module activated", zap.String("module", m.Name()))
	}
	return nil
}

// Deactivate runs every module's deactivation in reverse order. All modules
// are visited; their errors are joined.
func (c *Coordinator) Deactivate(ctx context.Context) error {
	var errs []error
	for i := len(c.modules) - 1; i >= 0; i-- {
		m := c.modules[i]
		if err := m.Deactivate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("deactivating %s: %w", m.Name(), err))
			continue
		}
		c.log.Debug("module deactivated", zap.String("module", m.Name()))
	}
	return errors.Join(errs...)
}
