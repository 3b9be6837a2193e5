// Package transport provides a registry of sinks for serialized flow
// records.
package transport

import (
	"fmt"
	"sync"
)

var (
	transportDrivers = make(map[string]TransportDriver)
	lock             = &sync.RWMutex{}

	ErrTransport = fmt.Errorf("transport error")
)

// DriverTransportError wraps a driver-specific error with its transport name.
type DriverTransportError struct {
	Driver string
	Err    error
}

func (e *DriverTransportError) Error() string {
	return fmt.Sprintf("%s for %s transport", e.Err.Error(), e.Driver)
}

func (e *DriverTransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// TransportDriver describes a transport plugin.
type TransportDriver interface {
	Prepare() error              // Prepare driver (eg: flag registration)
	Init() error                 // Initialize driver (eg: start connections)
	Close() error                // Close driver (eg: close connections)
	Send(key, data []byte) error // Send a formatted record
}

// TransportInterface is the minimal interface needed to ship records.
type TransportInterface interface {
	Send(key, data []byte) error
}

// Transport is a named transport wrapper used by the registry.
type Transport struct {
	TransportDriver
	name string
}

func (t *Transport) Close() error {
	if err := t.TransportDriver.Close(); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}

func (t *Transport) Send(key, data []byte) error {
	if err := t.TransportDriver.Send(key, data); err != nil {
		return &DriverTransportError{t.name, err}
	}
	return nil
}

// RegisterTransportDriver registers and prepares a transport under a name.
func RegisterTransportDriver(name string, d TransportDriver) {
	lock.Lock()
	transportDrivers[name] = d
	lock.Unlock()

	if err := d.Prepare(); err != nil {
		panic(err)
	}
}

// FindTransport returns an initialized transport by name.
func FindTransport(name string) (*Transport, error) {
	lock.RLock()
	d, ok := transportDrivers[name]
	lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s not found", ErrTransport, name)
	}

	err := d.Init()
	if err != nil {
		err = &DriverTransportError{name, err}
	}
	return &Transport{d, name}, err
}

// GetTransports returns the list of registered transport names.
func GetTransports() []string {
	lock.RLock()
	defer lock.RUnlock()
	t := make([]string, len(transportDrivers))
	var i int
	for k := range transportDrivers {
		t[i] = k
		i++
	}
	return t
}
