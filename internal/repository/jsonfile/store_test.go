package jsonfile

import (
	"context"
	"testing"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/egannguyen/pharma-storefront/internal/repository/repositorytest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storePath = "/data/store.json"

func TestGateway(t *testing.T) {
	repositorytest.RunGateway(t, func(t *testing.T) repository.Gateway {
		gw, err := Open(afero.NewMemMapFs(), storePath)
		require.NoError(t, err)
		return gw
	})
}

func TestOpenCreatesDocument(t *testing.T) {
	fs := afero.NewMemMapFs()
	_, err := Open(fs, storePath)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, storePath)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	gw, err := Open(fs, storePath)
	require.NoError(t, err)
	_, err = gw.CreateUser(ctx, entity.User{ID: "u1", Name: "Admin", Email: "admin@emzor.com", PasswordHash: "$2a$10$abc", Role: entity.RoleAdmin, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	_, err = gw.CreateOrder(ctx, repositorytest.SampleOrder("o1", "u1", now))
	require.NoError(t, err)

	reopened, err := Open(fs, storePath)
	require.NoError(t, err)

	u, err := reopened.FindUserByEmail(ctx, "admin@emzor.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$10$abc", u.PasswordHash, "password hash survives a reload")
	assert.Equal(t, entity.RoleAdmin, u.Role)

	o, err := reopened.FindOrderByID(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, entity.Money(800), o.Total)
	assert.Equal(t, "Paracetamol 500mg", o.Items[0].Product.Name)
}

func TestLegacyRolesLoadAsCustomer(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := `{"products":[],"orders":[],"users":[
		{"id":"u1","name":"Old","email":"old@emzor.com","role":"USER","passwordHash":"h"},
		{"id":"u2","name":"Student","email":"student@emzor.com","role":"STUDENT","passwordHash":"h"}
	]}`
	require.NoError(t, afero.WriteFile(fs, storePath, []byte(doc), 0o644))

	gw, err := Open(fs, storePath)
	require.NoError(t, err)

	users, err := gw.FindUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.Equal(t, entity.RoleCustomer, u.Role)
	}
}

func TestCorruptDocumentFailsOpen(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, storePath, []byte("{not json"), 0o644))

	_, err := Open(fs, storePath)
	assert.Error(t, err)
}

func TestFailedWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	base := afero.NewMemMapFs()
	gw, err := Open(base, storePath)
	require.NoError(t, err)

	s := gw.(*store)
	s.fs = afero.NewReadOnlyFs(base)

	_, err = gw.CreateProduct(ctx, entity.Product{ID: "p1", Name: "Zinc", Category: "Supplements", Price: 90})
	require.Error(t, err)

	_, err = gw.FindProductByID(ctx, "p1")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}
