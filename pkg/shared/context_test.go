package shared

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomui/loom/pkg/schema"
)

func newTestContext(t *testing.T) *Context {
	t.Helper()
	model := schema.NewModel(map[string]schema.FieldType{
		"count": schema.Number(),
		"name":  schema.Text(),
	})
	ctx, err := New(model, map[string]any{"count": 0.0, "name": "ada"})
	require.NoError(t, err)
	return ctx
}

func TestNew_RejectsUndeclaredField(t *testing.T) {
	model := schema.NewModel(map[string]schema.FieldType{"count": schema.Number()})
	_, err := New(model, map[string]any{"bogus": 1})
	require.Error(t, err)
}

func TestNew_ZeroValues(t *testing.T) {
	model := schema.NewModel(map[string]schema.FieldType{
		"count": schema.Number(),
		"items": schema.Collection(schema.Text()),
	})
	ctx, err := New(model, nil)
	require.NoError(t, err)

	h := ctx.Handle()
	h.Read(func(v View) {
		assert.Equal(t, float64(0), v.Get("count"))
		assert.Equal(t, []any{}, v.Get("items"))
	})
}

func TestReadAfterWriteVisibilityAcrossHandles(t *testing.T) {
	ctx := newTestContext(t)
	a := ctx.Handle()
	b := ctx.Handle()

	err := a.Write(func(m *Mut) error {
		m.Set("count", m.Get("count").(float64)+1)
		return nil
	})
	require.NoError(t, err)

	b.Read(func(v View) {
		assert.Equal(t, float64(1), v.Get("count"))
	})
}

func TestReentrantWriteDetected(t *testing.T) {
	ctx := newTestContext(t)
	h := ctx.Handle()

	g, err := h.AcquireWrite()
	require.NoError(t, err)

	_, err = h.AcquireWrite()
	assert.ErrorIs(t, err, ErrReentrantWrite)

	g.Release()

	// After release the handle is usable again.
	g2, err := h.AcquireWrite()
	require.NoError(t, err)
	g2.Release()
}

func TestConcurrentReaders(t *testing.T) {
	ctx := newTestContext(t)
	const n = 16

	var entered sync.WaitGroup
	entered.Add(n)
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := ctx.Handle()
			g := h.AcquireRead()
			entered.Done()
			<-release
			g.Release()
		}()
	}

	// All n readers hold the lock simultaneously.
	done := make(chan struct{})
	go func() { entered.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("concurrent readers did not all acquire")
	}
	close(release)
	wg.Wait()
}

func TestWriterBlocksUntilReadersRelease(t *testing.T) {
	ctx := newTestContext(t)

	reader := ctx.Handle()
	rg := reader.AcquireRead()

	acquired := make(chan struct{})
	go func() {
		writer := ctx.Handle()
		g, err := writer.AcquireWrite()
		if err != nil {
			t.Error(err)
			return
		}
		close(acquired)
		g.Mut().Set("count", 42)
		g.Release()
	}()

	select {
	case <-acquired:
		t.Fatal("writer acquired while a reader was outstanding")
	case <-time.After(50 * time.Millisecond):
	}

	rg.Release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("writer never acquired after readers released")
	}

	reader.Read(func(v View) {
		assert.Equal(t, float64(42), v.Get("count"))
	})
}

func TestWriteReleasedOnHandlerError(t *testing.T) {
	ctx := newTestContext(t)
	h := ctx.Handle()

	err := h.Write(func(m *Mut) error {
		m.Set("count", 7)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	// Lock must be free again and the partial write visible.
	g, err := h.AcquireWrite()
	require.NoError(t, err)
	g.Release()

	h.Read(func(v View) {
		assert.Equal(t, float64(7), v.Get("count"))
	})
}

func TestSnapshotStableAfterRelease(t *testing.T) {
	ctx := newTestContext(t)
	h := ctx.Handle()

	var snap []any
	h.Read(func(v View) { snap = v.Snapshot() })

	require.NoError(t, h.Write(func(m *Mut) error {
		m.Set("count", 99)
		return nil
	}))

	slot, _ := ctx.Model().Slot("count")
	assert.Equal(t, float64(0), snap[slot], "snapshot must not see later writes")
}

func TestNormalizeIntegers(t *testing.T) {
	ctx := newTestContext(t)
	h := ctx.Handle()

	require.NoError(t, h.Write(func(m *Mut) error {
		m.Set("count", 3) // int, not float64
		return nil
	}))
	h.Read(func(v View) {
		assert.Equal(t, float64(3), v.Get("count"))
	})
}
