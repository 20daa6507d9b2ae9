package can

import (
	"fmt"
	"sort"

	r48 "github.com/samsamfire/gor48"
)

type NewInterfaceFunc func(channel string) (r48.Bus, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

// Register a new CAN bus interface type
// This should be called inside an init() function of plugin
func RegisterInterface(interfaceType string, newInterface NewInterfaceFunc) {
	interfaceRegistry[interfaceType] = newInterface
}

// Registered interface names
func AvailableInterfaces() []string {
	names := make([]string, 0, len(interfaceRegistry))
	for name := range interfaceRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Create a new CAN bus with given interface
// Drivers register themselves when their package is imported
func NewBus(canInterface string, channel string) (r48.Bus, error) {
	createInterface, ok := interfaceRegistry[canInterface]
	if !ok {
		return nil, fmt.Errorf("unsupported interface : %v, available %v", canInterface, AvailableInterfaces())
	}
	return createInterface(channel)
}
