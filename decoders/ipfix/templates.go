package ipfix

import (
	"errors"
	"sync"
)

// ErrTemplateNotFound is returned when a data set references a template key
// that has not been learned yet.
var ErrTemplateNotFound = errors.New("template not found")

// TemplateKey identifies a template: ids are only unique within the
// observation domain that allocated them.
type TemplateKey struct {
	ObservationDomainID uint32
	TemplateID          uint16
}

// TemplateSystem stores and retrieves template records. A data set cannot be
// decoded until its key has been added; this is a hard schema dependency,
// not a cache optimization.
type TemplateSystem interface {
	AddTemplate(key TemplateKey, template TemplateRecord) error
	GetTemplate(key TemplateKey) (TemplateRecord, error)
	RemoveTemplate(key TemplateKey) (TemplateRecord, error)
}

// BasicTemplateSystem keeps templates in memory.
type BasicTemplateSystem struct {
	mu        sync.RWMutex
	templates map[TemplateKey]TemplateRecord
}

// CreateTemplateSystem returns an empty in-memory template store.
func CreateTemplateSystem() *BasicTemplateSystem {
	return &BasicTemplateSystem{
		templates: make(map[TemplateKey]TemplateRecord),
	}
}

func (ts *BasicTemplateSystem) AddTemplate(key TemplateKey, template TemplateRecord) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.templates[key] = template
	return nil
}

func (ts *BasicTemplateSystem) GetTemplate(key TemplateKey) (TemplateRecord, error) {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if template, ok := ts.templates[key]; ok {
		return template, nil
	}
	return TemplateRecord{}, ErrTemplateNotFound
}

func (ts *BasicTemplateSystem) RemoveTemplate(key TemplateKey) (TemplateRecord, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if template, ok := ts.templates[key]; ok {
		delete(ts.templates, key)
		return template, nil
	}
	return TemplateRecord{}, ErrTemplateNotFound
}

// Count returns the number of stored templates.
func (ts *BasicTemplateSystem) Count() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.templates)
}
