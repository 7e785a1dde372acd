package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/auth"
	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/repository"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var seedPassword string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample catalogue and accounts into empty stores",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver == "memory" {
			slog.Warn("Seeding the memory store; the data is gone when this command exits")
		}

		a, err := newApp(cmd.Context(), cfg, afero.NewOsFs())
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := seedCatalog(cmd.Context(), a.gateway, a.hasher, seedPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d products and %d users\n", result.Products, result.Users)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedPassword, "password", "password", "password for the seeded accounts")
	rootCmd.AddCommand(seedCmd)
}

var sampleProducts = []entity.Product{
	{ID: "prod-001", Name: "Paracetamol 500mg", Category: "Analgesics", Price: 150, Description: "Effective pain relief and fever reducer", ImageURL: "/images/paractamol.jpg", Stock: 100},
	{ID: "prod-002", Name: "Amoxicillin 250mg", Category: "Antibiotics", Price: 200, Description: "Broad-spectrum antibiotic for bacterial infections", ImageURL: "/images/amoxil.webp", Stock: 50},
	{ID: "prod-003", Name: "Vitamin C 1000mg", Category: "Vitamins", Price: 300, Description: "Immune system booster with antioxidant properties", ImageURL: "/images/vitamin.jpg", Stock: 200},
	{ID: "prod-004", Name: "Ibuprofen 400mg", Category: "Anti-inflammatory", Price: 180, Description: "Reduces inflammation, pain, and fever", ImageURL: "/images/ibuprofen.jpg", Stock: 75},
	{ID: "prod-005", Name: "Multivitamin Complex", Category: "Vitamins", Price: 450, Description: "Complete daily vitamin and mineral supplement", ImageURL: "/images/multivitamins.jpg", Stock: 150},
	{ID: "prod-006", Name: "Antacid Tablets", Category: "Digestive", Price: 120, Description: "Fast relief from heartburn and indigestion", ImageURL: "/images/digestive.jpg", Stock: 80},
}

var sampleUsers = []entity.User{
	{ID: "admin-001", Name: "System Administrator", Email: "admin@emzor.com", Role: entity.RoleAdmin},
	{ID: "supervisor-001", Name: "John Supervisor", Email: "supervisor@emzor.com", Role: entity.RoleSupervisor},
	{ID: "student-001", Name: "Jane Student", Email: "student@emzor.com", Role: entity.RoleCustomer},
}

type seedResult struct {
	Products int
	Users    int
}

type seedTarget interface {
	repository.ProductRepository
	repository.UserRepository
}

// seedCatalog fills the product and user tables independently, each only
// when it is empty, so running it twice changes nothing.
func seedCatalog(ctx context.Context, gw seedTarget, hasher auth.Hasher, password string) (seedResult, error) {
	var result seedResult
	now := time.Now().UTC()

	products, err := gw.FindProducts(ctx, entity.ProductFilter{})
	if err != nil {
		return result, fmt.Errorf("failed to list products: %w", err)
	}
	if len(products) == 0 {
		for _, p := range sampleProducts {
			p.CreatedAt, p.UpdatedAt = now, now
			if _, err := gw.CreateProduct(ctx, p); err != nil {
				return result, fmt.Errorf("failed to seed product %s: %w", p.ID, err)
			}
			result.Products++
		}
	}

	users, err := gw.FindUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		hash, err := hasher.Hash(password)
		if err != nil {
			return result, err
		}
		for _, u := range sampleUsers {
			u.PasswordHash = hash
			u.CreatedAt, u.UpdatedAt = now, now
			if _, err := gw.CreateUser(ctx, u); err != nil {
				return result, fmt.Errorf("failed to seed user %s: %w", u.Email, err)
			}
			result.Users++
		}
	}

	slog.Info("Seed complete", "products", result.Products, "users", result.Users)
	return result, nil
}
