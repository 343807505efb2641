package parsers

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Parser)
)

// Register adds a parser under its name. Later registrations replace earlier
// ones, which keeps tests free to install fakes.
func Register(p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Name()] = p
}

// Get returns the named parser
func Get(name string) (Parser, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser: %s", name)
	}
	return p, nil
}

// Names returns the registered parser names sorted
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(&NmapParser{})
	Register(&MasscanParser{})
	Register(&SubfinderParser{})
	Register(&AmassParser{})
	Register(&HTTPXParser{})
	Register(&NucleiParser{})
	Register(&NiktoParser{})
	Register(&GobusterParser{})
	Register(&FFUFParser{})
	Register(&SQLMapParser{})
	Register(&WPScanParser{})
	Register(&HydraParser{})
	Register(&JohnParser{})
	Register(&HashcatParser{})
	Register(&NessusParser{})
	Register(&BurpParser{})
}
