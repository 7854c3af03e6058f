package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(id string, price string) Line {
	return Line{ProductID: id, Name: "item " + id, Price: decimal.RequireFromString(price)}
}

func TestAddMergesQuantityForSameProduct(t *testing.T) {
	var c Cart
	c.Add(line("a", "10.00"), 2)
	c.Add(line("a", "10.00"), 3)

	lines := c.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	var c Cart
	c.Add(line("a", "1.00"), 1)
	c.Add(line("b", "2.00"), 1)
	c.Add(line("a", "1.00"), 1)
	c.Add(line("c", "3.00"), 1)

	lines := c.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "a", lines[0].ProductID)
	assert.Equal(t, "b", lines[1].ProductID)
	assert.Equal(t, "c", lines[2].ProductID)
}

func TestSetQuantityReplacesInPlace(t *testing.T) {
	var c Cart
	c.Add(line("a", "1.00"), 1)
	c.Add(line("b", "2.00"), 1)

	c.SetQuantity("a", 7)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "a", lines[0].ProductID)
	assert.Equal(t, 7, lines[0].Quantity)
}

func TestSetQuantityZeroOrNegativeRemoves(t *testing.T) {
	var c Cart
	c.Add(line("a", "1.00"), 1)
	c.SetQuantity("a", 0)
	assert.True(t, c.Empty())

	c.Add(line("b", "1.00"), 1)
	c.SetQuantity("b", -1)
	assert.True(t, c.Empty())
}

func TestRemoveAbsentIsNoop(t *testing.T) {
	var c Cart
	c.Add(line("a", "1.00"), 1)
	c.Remove("missing")
	assert.Len(t, c.Lines(), 1)
}

func TestClearEmptiesAllLines(t *testing.T) {
	var c Cart
	c.Add(line("a", "1.00"), 1)
	c.Add(line("b", "2.00"), 2)
	c.Clear()
	assert.True(t, c.Empty())
	assert.Equal(t, 0, c.ItemCount())
}

func TestTotalsScenario(t *testing.T) {
	// [{A, price=10, qty=2}, {B, price=5, qty=1}]
	var c Cart
	c.Add(line("a", "10.00"), 2)
	c.Add(line("b", "5.00"), 1)

	assert.Equal(t, 3, c.ItemCount())
	assert.True(t, c.Subtotal().Equal(decimal.RequireFromString("25.00")), "subtotal %s", c.Subtotal())
	assert.True(t, c.Tax(DefaultTaxRate).Equal(decimal.RequireFromString("2.00")), "tax %s", c.Tax(DefaultTaxRate))
	assert.True(t, c.Total(DefaultTaxRate).Equal(decimal.RequireFromString("27.00")), "total %s", c.Total(DefaultTaxRate))
}

func TestTotalsIdempotentWithoutMutation(t *testing.T) {
	var c Cart
	c.Add(line("a", "3.33"), 3)

	first := c.Total(DefaultTaxRate)
	for i := 0; i < 5; i++ {
		assert.True(t, c.Total(DefaultTaxRate).Equal(first))
	}
	assert.True(t, c.Tax(DefaultTaxRate).Equal(c.Subtotal().Mul(DefaultTaxRate)))
}

func TestSlotRoundTrip(t *testing.T) {
	var c Cart
	c.Add(line("a", "10.00"), 2)
	c.Add(line("b", "5.00"), 1)

	data, err := c.MarshalSlot()
	require.NoError(t, err)

	restored, err := UnmarshalSlot(data)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.ItemCount())
	assert.True(t, restored.Subtotal().Equal(c.Subtotal()))
}

func TestUnmarshalSlotRejectsGarbage(t *testing.T) {
	_, err := UnmarshalSlot([]byte(`["not","a","mapping"]`))
	assert.Error(t, err)
}

func TestUnmarshalSlotDropsZeroQuantityEntries(t *testing.T) {
	c, err := UnmarshalSlot([]byte(`{"a":{"product_id":"a","name":"x","price":"1.00","quantity":0}}`))
	require.NoError(t, err)
	assert.True(t, c.Empty())
}
