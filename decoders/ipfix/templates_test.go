package ipfix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateSystem(t *testing.T) {
	ts := CreateTemplateSystem()
	key := TemplateKey{ObservationDomainID: 42, TemplateID: 256}

	_, err := ts.GetTemplate(key)
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	tmpl := FlowTemplate(256)
	require.NoError(t, ts.AddTemplate(key, tmpl))

	got, err := ts.GetTemplate(key)
	require.NoError(t, err)
	assert.Equal(t, tmpl, got)

	// same template id in another domain is a different key
	_, err = ts.GetTemplate(TemplateKey{ObservationDomainID: 43, TemplateID: 256})
	assert.ErrorIs(t, err, ErrTemplateNotFound)

	removed, err := ts.RemoveTemplate(key)
	require.NoError(t, err)
	assert.Equal(t, tmpl, removed)
	_, err = ts.GetTemplate(key)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func benchTemplatesAdd(ts TemplateSystem, obs uint32, n int) {
	for i := 0; i <= n; i++ {
		ts.AddTemplate(TemplateKey{obs, uint16(i)}, FlowTemplate(uint16(i)))
	}
}

func BenchmarkTemplatesAdd(b *testing.B) {
	ts := CreateTemplateSystem()
	benchTemplatesAdd(ts, uint32(b.N)%0xffff+1, b.N)
}

func BenchmarkTemplatesAddGet(b *testing.B) {
	ts := CreateTemplateSystem()
	templates := 1000
	benchTemplatesAdd(ts, 1, templates)
	b.ResetTimer()
	for n := 0; n <= b.N; n++ {
		id := uint16(n % templates)
		tmpl, err := ts.GetTemplate(TemplateKey{1, id})
		if err != nil {
			b.Fatal(err)
		}
		if tmpl.TemplateID != id {
			b.Fatal("different values", tmpl.TemplateID, "!=", id)
		}
	}
}
