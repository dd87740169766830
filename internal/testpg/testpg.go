// Package testpg provides a migrated Postgres pool for integration tests.
package testpg

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"commerce-backoffice/internal/migrate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// Tables lists every application table, children first.
var Tables = []string{
	"pay_later", "payment_details", "payments",
	"shipping_addresses", "billing_addresses", "order_taxes", "order_items", "orders",
	"conversion_rates", "staging_records", "cart_items", "carts",
	"prices", "product_attributes", "products", "customers",
}

// Pool returns a migrated pool with all tables truncated. It uses TEST_DB_DSN
// when set, otherwise a shared Postgres container. The test is skipped when
// neither is available.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		containerOnce.Do(func() { containerDSN, containerErr = startContainer(ctx) })
		if containerErr != nil {
			t.Skipf("no test database: %v", containerErr)
		}
		dsn = containerDSN
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("connect db: %v", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		t.Skipf("ping db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrate.Apply(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	Reset(ctx, t, pool)
	return pool
}

// Reset truncates every table and restarts identities.
func Reset(ctx context.Context, t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	q := "TRUNCATE TABLE "
	for i, name := range Tables {
		if i > 0 {
			q += ", "
		}
		q += name
	}
	q += " RESTART IDENTITY CASCADE"
	if _, err := pool.Exec(ctx, q); err != nil {
		t.Fatalf("reset tables: %v", err)
	}
}

func startContainer(ctx context.Context) (dsn string, err error) {
	defer func() {
		// testcontainers panics when no Docker daemon is reachable.
		if r := recover(); r != nil {
			err = errNoDocker{r}
		}
	}()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("commerce_test"),
		postgres.WithUsername("commerce"),
		postgres.WithPassword("commerce"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return "", err
	}
	return container.ConnectionString(ctx, "sslmode=disable")
}

type errNoDocker struct{ v any }

func (e errNoDocker) Error() string { return "docker unavailable" }
