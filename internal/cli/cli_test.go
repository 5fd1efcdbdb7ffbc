package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fulfillment-engine/internal/application/fulfillment"
	"github.com/jhoicas/fulfillment-engine/internal/infrastructure/bootstrap"
	"github.com/jhoicas/fulfillment-engine/pkg/config"
	"github.com/jhoicas/fulfillment-engine/pkg/jwt"
)

// sharedMemory abre una vez el backend en memoria y lo reutiliza entre ejecuciones.
func sharedMemory(t *testing.T) (Opener, *bootstrap.Backend) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_ADDRESS", "")
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.StoreDriverMemory},
		Retry: config.RetryConfig{MaxAttempts: 1},
	}
	b, err := bootstrap.Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	return func(context.Context, *config.Config, zerolog.Logger) (*bootstrap.Backend, error) {
		return b, nil
	}, b
}

func run(t *testing.T, open Opener, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCmd(open)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), err
}

var idPattern = regexp.MustCompile(`creado: ([0-9a-f-]{36})`)

func TestProductsYStock(t *testing.T) {
	open, _ := sharedMemory(t)

	outText, err := run(t, open, "products", "create", "--sku", "SKU-1", "--name", "Tornillo", "--min-stock", "5", "--stock", "2", "--user", "ops")
	require.NoError(t, err)
	m := idPattern.FindStringSubmatch(outText)
	require.Len(t, m, 2, outText)
	productID := m[1]

	outText, err = run(t, open, "stock", "low")
	require.NoError(t, err)
	assert.Contains(t, outText, "SKU-1")
	assert.Contains(t, outText, "SUGERIDO")

	outText, err = run(t, open, "stock", "adjust", "--product", productID, "--delta", "6", "--type", "stock_replenishment", "--user", "ops")
	require.NoError(t, err)
	assert.Contains(t, outText, "stock 8")

	outText, err = run(t, open, "stock", "low")
	require.NoError(t, err)
	assert.Contains(t, outText, "Ningún producto bajo el mínimo")

	outText, err = run(t, open, "products", "show", productID)
	require.NoError(t, err)
	assert.Contains(t, outText, "stock 8 (mínimo 5)")
	assert.Contains(t, outText, "stock_replenishment")

	_, err = run(t, open, "stock", "adjust", "--product", productID, "--delta", "-20", "--user", "ops")
	assert.Error(t, err)
}

func TestBackordersAutorizar(t *testing.T) {
	open, b := sharedMemory(t)
	svc := b.Service(zerolog.Nop())
	ctx := context.Background()

	p, err := svc.CreateProduct(ctx, "SKU-9", "Arandela", 0, 1, "ops")
	require.NoError(t, err)
	_, err = svc.CreateOrder(ctx, "ACME", []fulfillment.ItemRequest{{ProductID: p.ID, Quantity: 3}}, "ops")
	require.NoError(t, err)
	pending, err := svc.ListUnshippedItemsForAuthorization(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	outText, err := run(t, open, "backorders", "list")
	require.NoError(t, err)
	assert.Contains(t, outText, pending[0].ID)
	assert.Contains(t, outText, pending[0].OriginalOrderNumber)

	outText, err = run(t, open, "backorders", "authorize", "--ids", pending[0].ID, "--user", "admin")
	require.NoError(t, err)
	assert.Contains(t, outText, "Autorizados 1")

	outText, err = run(t, open, "backorders", "list")
	require.NoError(t, err)
	assert.Contains(t, outText, "No hay backorders pendientes")

	_, err = run(t, open, "backorders", "authorize", "--user", "admin")
	assert.Error(t, err, "--ids es obligatorio")
}

func TestMigrateRequierePostgres(t *testing.T) {
	open, _ := sharedMemory(t)
	_, err := run(t, open, "migrate")
	assert.ErrorIs(t, err, errNoDatabase)

	outText, err := run(t, open, "check")
	require.NoError(t, err)
	assert.Contains(t, outText, "Store en memoria")
	assert.Contains(t, outText, "Redis no configurado")
}

func TestTokenUsaSecretoYExpiracion(t *testing.T) {
	open, _ := sharedMemory(t)
	t.Setenv("JWT_SECRET", "secreto-cli")
	t.Setenv("JWT_ISSUER", "fulfillment-test")
	t.Setenv("JWT_EXPIRATION_MINUTES", "15")

	outText, err := run(t, open, "token", "--user", "ops-1", "--role", "bodeguero")
	require.NoError(t, err)
	claims, err := jwt.Parse("secreto-cli", "fulfillment-test", strings.TrimSpace(outText))
	require.NoError(t, err)
	assert.Equal(t, "ops-1", claims.UserID)
	assert.Equal(t, jwt.RoleWarehouse, claims.Role)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Minute)

	_, err = run(t, open, "token", "--user", "ops-1", "--role", "root")
	assert.Error(t, err)
}
