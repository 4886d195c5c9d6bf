// Copyright © 2024 The Mago authors

package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magophp/mago/source"
)

func span(start, end int) source.Span {
	return source.NewSpan(0, start, end)
}

func TestUnused(t *testing.T) {
	g := New()
	// $y = $x + 1; return $x;
	x := NewNode(UseSource, "$x", span(0, 2))
	y := NewNode(UseSource, "$y", span(10, 20))
	readX := NewNode(UseSink, "$x", span(15, 17))
	retX := NewNode(UseSink, "$x", span(30, 32))
	g.Connect(x, readX, Flow)
	g.Connect(readX, y, Assignment)
	g.Connect(x, retX, Flow)

	unused := g.Unused()
	require.Len(t, unused, 1)
	assert.Equal(t, "$y", unused[0].Name)

	assert.True(t, g.BackwardReachable([]*Node{retX})[x.ID])
	assert.False(t, g.BackwardReachable([]*Node{retX})[y.ID])
	assert.Equal(t, 4, g.Len())
}

func TestAddDeduplicates(t *testing.T) {
	g := New()
	a := g.Add(NewNode(Vertex, "call", span(1, 5)))
	b := g.Add(NewNode(Vertex, "call", span(1, 5)))
	assert.Same(t, a, b)

	sink := NewNode(UseSink, "$a", span(6, 8))
	g.Connect(a, sink, Flow)
	g.Connect(a, sink, Flow)
	assert.Len(t, g.forward[a.ID], 1)
}

func TestTaints(t *testing.T) {
	g := New()
	get := NewNode(TaintSource, "$_GET", span(0, 5))
	v := NewNode(UseSource, "$name", span(6, 11))
	echo := NewNode(TaintSink, "echo", span(20, 30))
	safe := NewNode(TaintSink, "echo", span(40, 50))
	g.Connect(get, v, Assignment)
	g.Connect(v, echo, Argument)
	g.Add(safe)

	taints := g.Taints()
	require.Len(t, taints, 1)
	assert.Equal(t, echo, taints[0].Sink)
	require.Len(t, taints[0].Path, 1)
	assert.Equal(t, "$name", taints[0].Path[0].Name)
}

func TestExtend(t *testing.T) {
	a, b := New(), New()
	src := NewNode(UseSource, "$a", span(0, 2))
	sink := NewNode(UseSink, "$a", span(5, 7))
	b.Connect(src, sink, Flow)
	a.Extend(b)
	a.Extend(nil)
	assert.Equal(t, 2, a.Len())
	assert.Empty(t, a.Unused())
	assert.Equal(t, []*Node{sink}, a.Nodes(UseSink))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "taint-sink", TaintSink.String())
	assert.Equal(t, "argument", Argument.String())
	assert.Equal(t, "$x@0:1-3", NodeID("$x", span(1, 3)))
}
