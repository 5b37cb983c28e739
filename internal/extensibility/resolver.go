package extensibility

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/comalice/segverify/internal/core"
)

type peripheral struct {
	path    string
	display core.Display
	clock   core.Clock
}

// PeripheralTree resolves displays by dotted peripheral name, e.g.
// "sysbus.gpio.display". A name may also be a dot-aligned suffix of a
// registered path ("gpio.display") as long as it selects exactly one
// peripheral.
type PeripheralTree struct {
	mu    sync.RWMutex
	byKey map[string]*peripheral
	order []*peripheral
}

// NewPeripheralTree creates an empty tree.
func NewPeripheralTree() *PeripheralTree {
	return &PeripheralTree{byKey: make(map[string]*peripheral)}
}

// Add registers display and its clock under path.
func (t *PeripheralTree) Add(path string, display core.Display, clock core.Clock) error {
	if err := validatePath(path); err != nil {
		return err
	}
	if display == nil {
		return core.ErrNilDisplay
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.byKey[path]; exists {
		return fmt.Errorf("peripheral %q already registered", path)
	}
	p := &peripheral{path: path, display: display, clock: clock}
	t.byKey[path] = p
	t.order = append(t.order, p)
	return nil
}

// Resolve implements core.Resolver.
func (t *PeripheralTree) Resolve(path string) (core.Display, core.Clock, error) {
	if err := validatePath(path); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", core.ErrUnresolvedPeripheral, err)
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if p, ok := t.byKey[path]; ok {
		return p.display, p.clock, nil
	}
	var found *peripheral
	for _, p := range t.order {
		if !strings.HasSuffix(p.path, "."+path) {
			continue
		}
		if found != nil {
			return nil, nil, fmt.Errorf("%w: %q is ambiguous (%s, %s)", core.ErrUnresolvedPeripheral, path, found.path, p.path)
		}
		found = p
	}
	if found == nil {
		return nil, nil, fmt.Errorf("%w: %q", core.ErrUnresolvedPeripheral, path)
	}
	return found.display, found.clock, nil
}

// Paths returns the registered paths in registration order.
func (t *PeripheralTree) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	paths := make([]string, len(t.order))
	for i, p := range t.order {
		paths[i] = p.path
	}
	return paths
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("path cannot be empty")
	}
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			return fmt.Errorf("invalid path %q", path)
		}
	}
	return nil
}
