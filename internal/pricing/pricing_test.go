package pricing

import (
	"math/rand"
	"testing"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteBelowThreshold(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", UnitPrice: 150, Quantity: 2},
		{ProductID: "p2", UnitPrice: 300, Quantity: 1},
	}

	q := DefaultPolicy().Quote(lines)

	assert.Equal(t, entity.Money(600), q.Subtotal)
	assert.Equal(t, entity.Money(500), q.DeliveryFee)
	assert.Equal(t, entity.Money(1100), q.Total)
	assert.Equal(t, 3, q.ItemCount)
}

func TestQuoteFreeDeliveryAtThreshold(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", UnitPrice: 150, Quantity: 40},
		{ProductID: "p2", UnitPrice: 300, Quantity: 20},
	}

	q := DefaultPolicy().Quote(lines)

	assert.Equal(t, entity.Money(12000), q.Subtotal)
	assert.Zero(t, q.DeliveryFee)
	assert.Equal(t, entity.Money(12000), q.Total)
}

func TestDeliveryFeeTiers(t *testing.T) {
	p := Policy{FreeDeliveryThreshold: 10000, FlatDeliveryFee: 500}

	for _, subtotal := range []entity.Money{0, 1, 599, 9999} {
		assert.Equal(t, entity.Money(500), p.DeliveryFee(subtotal), "subtotal %d", subtotal)
	}
	for _, subtotal := range []entity.Money{10000, 10001, 250000} {
		assert.Zero(t, p.DeliveryFee(subtotal), "subtotal %d", subtotal)
	}
}

func TestQuoteEmpty(t *testing.T) {
	assert.Equal(t, Quote{}, DefaultPolicy().Quote(nil))
}

func TestSubtotalIndependentOfOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		lines := make([]Line, 1+rng.Intn(8))
		var want entity.Money
		for i := range lines {
			lines[i] = Line{
				ProductID: string(rune('a' + i)),
				UnitPrice: entity.Money(rng.Intn(5000)),
				Quantity:  1 + rng.Intn(10),
			}
			want += lines[i].UnitPrice * entity.Money(lines[i].Quantity)
		}

		shuffled := append([]Line(nil), lines...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		require.Equal(t, want, Subtotal(lines))
		require.Equal(t, Subtotal(lines), Subtotal(shuffled))
		require.Equal(t, DefaultPolicy().Quote(lines), DefaultPolicy().Quote(shuffled))
	}
}

func TestValidateRejectsNonPositiveQuantity(t *testing.T) {
	err := Validate([]Line{
		{ProductID: "p1", UnitPrice: 100, Quantity: 0},
		{ProductID: "p2", UnitPrice: 100, Quantity: 1},
	})

	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items.p1.quantity")
	assert.NotContains(t, verr.Fields, "items.p2.quantity")
}

func TestValidateRejectsOversizedLines(t *testing.T) {
	var verr *entity.ValidationError

	err := Validate([]Line{{ProductID: "p1", UnitPrice: 150, Quantity: entity.MaxLineQuantity + 1}})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "items.p1.quantity")

	require.NoError(t, Validate([]Line{{ProductID: "p1", UnitPrice: 150, Quantity: entity.MaxLineQuantity}}))
}

func TestValidateRejectsValueOverflow(t *testing.T) {
	var verr *entity.ValidationError
	big := MaxOrderValue / 2

	lines := []Line{
		{ProductID: "p1", UnitPrice: big, Quantity: 1},
		{ProductID: "p2", UnitPrice: big, Quantity: 1},
		{ProductID: "p3", UnitPrice: 1, Quantity: 1},
	}
	require.ErrorAs(t, Validate(lines), &verr)
	assert.Contains(t, verr.Fields, "items")

	require.NoError(t, Validate(lines[:2]), "exactly MaxOrderValue is allowed")

	maxInt := int(^uint(0) >> 1)
	require.ErrorAs(t, Validate([]Line{{ProductID: "p1", UnitPrice: 150, Quantity: maxInt / 100}}), &verr)
}
