// Package format provides a registry of output formatters for decoded flow
// records.
package format

import (
	"fmt"
	"sync"
)

var (
	formatDrivers = make(map[string]FormatDriver)
	lock          = &sync.RWMutex{}

	ErrFormat = fmt.Errorf("format error")
)

// DriverFormatError wraps a driver-specific error with its format name.
type DriverFormatError struct {
	Driver string
	Err    error
}

func (e *DriverFormatError) Error() string {
	return fmt.Sprintf("%s for %s format", e.Err.Error(), e.Driver)
}

func (e *DriverFormatError) Unwrap() []error {
	return []error{ErrFormat, e.Err}
}

// FormatDriver describes a format plugin. Format returns a partition key and
// the serialized payload.
type FormatDriver interface {
	Prepare() error // Prepare driver (eg: flag registration)
	Init() error    // Initialize driver
	Format(data interface{}) ([]byte, []byte, error)
}

// FormatInterface is the minimal interface needed to serialize records.
type FormatInterface interface {
	Format(data interface{}) ([]byte, []byte, error)
}

// Format is a named format wrapper used by the registry.
type Format struct {
	FormatDriver
	name string
}

func (f *Format) Format(data interface{}) ([]byte, []byte, error) {
	key, text, err := f.FormatDriver.Format(data)
	if err != nil {
		err = &DriverFormatError{f.name, err}
	}
	return key, text, err
}

// RegisterFormatDriver registers and prepares a format under a name.
func RegisterFormatDriver(name string, d FormatDriver) {
	lock.Lock()
	formatDrivers[name] = d
	lock.Unlock()

	if err := d.Prepare(); err != nil {
		panic(err)
	}
}

// FindFormat returns a configured format by name.
func FindFormat(name string) (*Format, error) {
	lock.RLock()
	d, ok := formatDrivers[name]
	lock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %s not found", ErrFormat, name)
	}

	err := d.Init()
	if err != nil {
		err = &DriverFormatError{name, err}
	}
	return &Format{d, name}, err
}

// GetFormats returns the list of registered format names.
func GetFormats() []string {
	lock.RLock()
	defer lock.RUnlock()
	t := make([]string, len(formatDrivers))
	var i int
	for k := range formatDrivers {
		t[i] = k
		i++
	}
	return t
}
