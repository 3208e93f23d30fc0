package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/musebox/musebox-backend/pkg/db/models"
)

func setupUsersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`DROP TABLE IF EXISTS users`).Error)

	schema := `
CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  display_name TEXT NOT NULL,
  is_staff INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedUser(t *testing.T, db *gorm.DB, staff bool) *models.User {
	t.Helper()

	user := &models.User{
		ID:          uuid.New(),
		Email:       uuid.NewString() + "@musebox.dev",
		DisplayName: "Seeded User",
		IsStaff:     staff,
		IsActive:    true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestCreateDefaultsToActive(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	created, err := repo.Create(context.Background(), CreateUserDTO{
		Email:       "ops@musebox.dev",
		DisplayName: "Ops",
		IsStaff:     true,
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	found, err := repo.FindByEmail(context.Background(), "ops@musebox.dev")
	require.NoError(t, err)
	assert.True(t, found.IsStaff)

	dto := FromModel(found)
	require.NotNil(t, dto)
	assert.Equal(t, "ops@musebox.dev", dto.Email)
}

func TestFindByIDUnknownIsNotFound(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUpdateLastLogin(t *testing.T) {
	db := setupUsersTestDB(t)
	repo := NewRepository(db)
	user := seedUser(t, db, false)

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.UpdateLastLogin(context.Background(), user.ID, at))

	found, err := repo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.WithinDuration(t, at, *found.LastLoginAt, time.Second)
}
