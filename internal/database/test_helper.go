package database

import (
	"testing"

	"nexusmc-api/internal/config"
	"nexusmc-api/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Child tables first so deletes never trip a foreign key.
var testTables = []string{"audit_logs", "blacklisted_tokens", "refresh_tokens", "users"}

// SetupTestDB returns a migrated in-memory SQLite database that is closed when the test ends.
func SetupTestDB(t testing.TB) *DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Every pooled connection would otherwise get its own empty in-memory database.
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: gdb, cfg: &config.DatabaseConfig{MaxConnections: 1, MaxIdleConns: 1}}
	if err := db.AutoMigrate(); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// CreateTestUser inserts a user with a placeholder hash and an empty profile.
func CreateTestUser(t testing.TB, db *DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "hashed_password", Role: models.RoleUser}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user %s: %v", email, err)
	}
	return user
}

func CleanupTestDB(t testing.TB, db *DB) {
	t.Helper()

	for _, table := range testTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			t.Logf("cleanup %s: %v", table, err)
		}
	}
}
