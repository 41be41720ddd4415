// Package testdb opens a private in-memory sqlite database with the auth schema.
package testdb

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/snapbuy/pkg/db"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "sqlite://file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := db.Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	require.NoError(t, gdb.AutoMigrate(models.All()...))
	return gdb
}
