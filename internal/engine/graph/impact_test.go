package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAffected_DirectOnly(t *testing.T) {
	g := build(t, map[string][]byte{
		"A.ts": src("B"),
		"C.ts": src("B"),
		"B.ts": nil,
	})

	got := g.ResolveAffected("B.ts")
	assert.Equal(t, []string{"A.ts", "C.ts"}, got.Direct)
	assert.Empty(t, got.Indirect)
}

func TestResolveAffected_TwoHopCap(t *testing.T) {
	// chain: e -> d -> c -> b -> a (x -> y means x imports y)
	g := build(t, map[string][]byte{
		"a.ts": nil,
		"b.ts": src("a"),
		"c.ts": src("b"),
		"d.ts": src("c"),
		"e.ts": src("d"),
	})

	got := g.ResolveAffected("a.ts")
	assert.Equal(t, []string{"b.ts"}, got.Direct)
	assert.Equal(t, []string{"c.ts", "d.ts"}, got.Indirect, "e.ts is three hops past the direct set")
}

func TestResolveAffected_CycleGuarded(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": src("b"),
		"b.ts": src("c"),
		"c.ts": src("a"),
	})

	got := g.ResolveAffected("a.ts")
	assert.Equal(t, []string{"c.ts"}, got.Direct)
	assert.Equal(t, []string{"b.ts"}, got.Indirect)
	assert.NotContains(t, got.Indirect, "a.ts")
}

func TestResolveAffected_ExcludesDirectFromIndirect(t *testing.T) {
	// b and c both depend on a; c also depends on b.
	g := build(t, map[string][]byte{
		"a.ts": nil,
		"b.ts": src("a"),
		"c.ts": src("a", "b"),
	})

	got := g.ResolveAffected("a.ts")
	assert.Equal(t, []string{"b.ts", "c.ts"}, got.Direct)
	assert.Empty(t, got.Indirect)
}

func TestResolveAffected_UnknownFile(t *testing.T) {
	g := build(t, map[string][]byte{"a.ts": nil})
	got := g.ResolveAffected("new.ts")
	assert.Equal(t, EmptyAffectedSet(), got)
	assert.True(t, got.IsEmpty())
}

func TestResolveAffected_EntitiesDeduplicated(t *testing.T) {
	page := []byte(`import api from './api'
export function OrdersPage() {
  const data = useOrders()
  fetch('/api/orders')
  return null
}`)
	widget := []byte(`import api from './api'
export const OrdersWidget = () => {
  useOrders()
  fetch('/api/orders')
  supabase.from('orders')
}`)
	g := build(t, map[string][]byte{
		"api.ts":    nil,
		"page.tsx":  page,
		"widget.ts": widget,
	})

	got := g.ResolveAffected("api.ts")
	assert.Equal(t, []string{"page.tsx", "widget.ts"}, got.Direct)
	assert.Equal(t, []ComponentRef{
		{Name: "OrdersPage", File: "page.tsx"},
		{Name: "OrdersWidget", File: "widget.ts"},
	}, got.Components)
	assert.Equal(t, []HookRef{{Name: "useOrders", File: "page.tsx"}}, got.Hooks)
	assert.Equal(t, []APIRef{{URL: "/api/orders", Method: "GET", File: "page.tsx"}}, got.APIs)
	assert.Equal(t, []TableRef{{Name: "orders", File: "widget.ts"}}, got.Tables)
}

func TestResolveAffected_Deterministic(t *testing.T) {
	g := build(t, map[string][]byte{
		"a.ts": nil,
		"b.ts": src("a"),
		"c.ts": src("a"),
		"d.ts": src("b", "c"),
		"e.ts": src("d"),
	})
	first := g.ResolveAffected("a.ts")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.ResolveAffected("a.ts"))
	}
}
