// Package repositorytest holds behaviour checks shared by every gateway and
// cart store adapter.
package repositorytest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

// SampleOrder builds a PENDING order for userID.
func SampleOrder(id, userID string, createdAt time.Time) entity.Order {
	return entity.Order{
		ID:     id,
		UserID: userID,
		Items: []entity.OrderItem{{
			Product:  entity.ProductSnapshot{ID: "prod-001", Name: "Paracetamol 500mg", Category: "Analgesics", Price: 150},
			Quantity: 2,
			Price:    150,
		}},
		Subtotal:    300,
		DeliveryFee: 500,
		Total:       800,
		Status:      entity.OrderStatusPending,
		ShippingAddress: entity.ShippingAddress{
			FullName: "Ada Obi", Phone: "08030000000", Address: "12 Marina",
			City: "Lagos", State: "Lagos", PostalCode: "100001",
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// RunGateway exercises a Gateway produced by newGateway.
func RunGateway(t *testing.T, newGateway func(t *testing.T) repository.Gateway) {
	t.Run("products", func(t *testing.T) {
		ctx := context.Background()
		gw := newGateway(t)

		p := entity.Product{ID: "prod-002", Name: "Amoxicillin 250mg", Category: "Antibiotics", Price: 200, Stock: 50, CreatedAt: base, UpdatedAt: base}
		_, err := gw.CreateProduct(ctx, p)
		require.NoError(t, err)
		_, err = gw.CreateProduct(ctx, entity.Product{ID: "prod-001", Name: "Aspirin 100mg", Category: "Analgesics", Price: 80, CreatedAt: base, UpdatedAt: base})
		require.NoError(t, err)

		_, err = gw.CreateProduct(ctx, p)
		assert.ErrorIs(t, err, entity.ErrConflict)

		all, err := gw.FindProducts(ctx, entity.ProductFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Amoxicillin 250mg", all[0].Name)

		filtered, err := gw.FindProducts(ctx, entity.ProductFilter{Category: "analgesics"})
		require.NoError(t, err)
		require.Len(t, filtered, 1)
		assert.Equal(t, "prod-001", filtered[0].ID)

		p.Price = 250
		updated, err := gw.UpdateProduct(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, entity.Money(250), updated.Price)

		got, err := gw.FindProductByID(ctx, "prod-002")
		require.NoError(t, err)
		assert.Equal(t, entity.Money(250), got.Price)

		_, err = gw.UpdateProduct(ctx, entity.Product{ID: "missing", Name: "x", Category: "y"})
		assert.ErrorIs(t, err, entity.ErrNotFound)

		require.NoError(t, gw.DeleteProduct(ctx, "prod-002"))
		_, err = gw.FindProductByID(ctx, "prod-002")
		assert.ErrorIs(t, err, entity.ErrNotFound)
		assert.ErrorIs(t, gw.DeleteProduct(ctx, "prod-002"), entity.ErrNotFound)
	})

	t.Run("orders", func(t *testing.T) {
		ctx := context.Background()
		gw := newGateway(t)

		first := SampleOrder("order-1", "cust-1", base)
		second := SampleOrder("order-2", "cust-1", base.Add(time.Minute))
		other := SampleOrder("order-3", "cust-2", base.Add(2*time.Minute))
		for _, o := range []entity.Order{first, second, other} {
			_, err := gw.CreateOrder(ctx, o)
			require.NoError(t, err)
		}

		got, err := gw.FindOrderByID(ctx, "order-1")
		require.NoError(t, err)
		assert.Equal(t, first.Items, got.Items)
		assert.Equal(t, first.ShippingAddress, got.ShippingAddress)
		assert.Equal(t, first.Total, got.Total)
		assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

		mine, err := gw.FindOrdersByUser(ctx, "cust-1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "order-2", mine[0].ID)

		none, err := gw.FindOrdersByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := gw.FindAllOrders(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		got.Status = entity.OrderStatusConfirmed
		got.UpdatedAt = base.Add(time.Hour)
		got.Items = nil
		updated, err := gw.UpdateOrderStatus(ctx, got)
		require.NoError(t, err)
		assert.Equal(t, entity.OrderStatusConfirmed, updated.Status)
		assert.Equal(t, first.Items, updated.Items, "items are immutable")

		_, err = gw.FindOrderByID(ctx, "missing")
		assert.ErrorIs(t, err, entity.ErrNotFound)
		_, err = gw.UpdateOrderStatus(ctx, entity.Order{ID: "missing", Status: entity.OrderStatusShipped})
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		gw := newGateway(t)

		u := entity.User{ID: "user-1", Name: "Jane", Email: "jane@emzor.com", PasswordHash: "$2a$hash", Role: entity.RoleCustomer, CreatedAt: base, UpdatedAt: base}
		_, err := gw.CreateUser(ctx, u)
		require.NoError(t, err)

		_, err = gw.CreateUser(ctx, entity.User{ID: "user-2", Name: "Dup", Email: "jane@emzor.com", Role: entity.RoleCustomer, CreatedAt: base, UpdatedAt: base})
		assert.ErrorIs(t, err, entity.ErrConflict)

		byEmail, err := gw.FindUserByEmail(ctx, "jane@emzor.com")
		require.NoError(t, err)
		assert.Equal(t, "user-1", byEmail.ID)
		assert.Equal(t, "$2a$hash", byEmail.PasswordHash)

		u.Name = "Jane Doe"
		u.Role = entity.RoleSupervisor
		_, err = gw.UpdateUser(ctx, u)
		require.NoError(t, err)

		byID, err := gw.FindUserByID(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", byID.Name)
		assert.Equal(t, entity.RoleSupervisor, byID.Role)

		users, err := gw.FindUsers(ctx)
		require.NoError(t, err)
		assert.Len(t, users, 1)

		require.NoError(t, gw.DeleteUser(ctx, "user-1"))
		_, err = gw.FindUserByEmail(ctx, "jane@emzor.com")
		assert.ErrorIs(t, err, entity.ErrNotFound)
		assert.ErrorIs(t, gw.DeleteUser(ctx, "user-1"), entity.ErrNotFound)
	})
}

// RunCartStore exercises a CartStore produced by newStore.
func RunCartStore(t *testing.T, newStore func(t *testing.T) repository.CartStore) {
	t.Run("missing cart is empty", func(t *testing.T) {
		s := newStore(t)
		c, err := s.GetCart(context.Background(), "u1")
		require.NoError(t, err)
		assert.True(t, c.IsEmpty())
		assert.Equal(t, "u1", c.UserID)
	})

	t.Run("save get clear", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := entity.NewCart("u1")
		require.NoError(t, c.Add("p1", 2))
		require.NoError(t, s.SaveCart(ctx, c))

		got, err := s.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, c.Items, got.Items)

		require.NoError(t, s.ClearCart(ctx, "u1"))
		got, err = s.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, got.IsEmpty())
	})

	t.Run("take empties and restore merges", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := entity.NewCart("u1")
		require.NoError(t, c.Add("p1", 2))
		require.NoError(t, s.SaveCart(ctx, c))

		taken, err := s.TakeCart(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, c.Items, taken.Items)

		after, err := s.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, after.IsEmpty())

		added := entity.NewCart("u1")
		require.NoError(t, added.Add("p2", 1))
		require.NoError(t, s.SaveCart(ctx, added))

		require.NoError(t, s.RestoreCart(ctx, taken))
		restored, err := s.GetCart(ctx, "u1")
		require.NoError(t, err)
		assert.ElementsMatch(t, []entity.CartItem{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}}, restored.Items)
	})

	t.Run("concurrent take hands the cart to one caller", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		c := entity.NewCart("u1")
		require.NoError(t, c.Add("p1", 3))
		require.NoError(t, s.SaveCart(ctx, c))

		const callers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			nonEmpty int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				taken, err := s.TakeCart(ctx, "u1")
				if !assert.NoError(t, err) {
					return
				}
				if !taken.IsEmpty() {
					mu.Lock()
					nonEmpty++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, nonEmpty)
	})
}
