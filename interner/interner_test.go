// Copyright © 2024 The Mago authors

package interner

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyString(t *testing.T) {
	in := New()
	assert.Equal(t, Empty, in.Intern(""))
	assert.Equal(t, "", in.Lookup(Empty))
	assert.True(t, in.IsEmpty())
	assert.Equal(t, 0, in.Len())
}

func TestInternIdempotent(t *testing.T) {
	in := New()
	a := in.Intern("Foo")
	b := in.Intern("Foo")
	assert.Equal(t, a, b)
	assert.Equal(t, "Foo", in.Lookup(a))
	assert.NotEqual(t, Empty, a)
	assert.Equal(t, 1, in.Len())
	assert.False(t, in.IsEmpty())

	_, ok := in.Find("Bar")
	assert.False(t, ok)
	id, ok := in.Find("Foo")
	assert.True(t, ok)
	assert.Equal(t, a, id)
}

func TestLowered(t *testing.T) {
	in := New()
	upper := in.Intern(`App\Foo`)
	low := in.Lowered(upper)
	assert.Equal(t, `app\foo`, in.Lookup(low))
	assert.Equal(t, low, in.Lowered(low))
	assert.Equal(t, low, in.InternLowered(`APP\FOO`))

	same := in.Intern("bar")
	assert.Equal(t, same, in.Lowered(same))
}

func TestLowered_ASCIIOnly(t *testing.T) {
	in := New()
	assert.Equal(t, "Éclair", in.Lookup(in.InternLowered("Éclair")))
	assert.Equal(t, "Ünit_test", in.Lookup(in.InternLowered("ÜNIT_TEST")))
	keep := in.Intern("ÄÖ")
	assert.Equal(t, keep, in.Lowered(keep))
}

func TestConcurrentIntern(t *testing.T) {
	in := New()
	const workers = 8
	const n = 200
	ids := make([][]ID, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids[w] = make([]ID, n)
			for i := 0; i < n; i++ {
				ids[w][i] = in.Intern(fmt.Sprintf("s%d", i))
			}
		}(w)
	}
	wg.Wait()
	for w := 1; w < workers; w++ {
		require.Equal(t, ids[0], ids[w])
	}
	assert.Equal(t, n, in.Len())
	for i, id := range ids[0] {
		assert.Equal(t, fmt.Sprintf("s%d", i), in.Lookup(id))
	}
}
