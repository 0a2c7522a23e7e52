package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/tapcards-backend/pkg/config"
)

type ledgerRow struct {
	ID   int64
	Note string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&ledgerRow{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromGorm(conn)
	ctx := context.Background()

	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Note: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{Note: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}

	var count int64
	if err := conn.Model(&ledgerRow{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the committed row, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	conn := newTestDB(t)
	client := NewFromGorm(conn)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			tx.Create(&ledgerRow{Note: "panicked"})
			panic("kaboom")
		})
	}()

	var count int64
	conn.Model(&ledgerRow{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected rollback after panic, got %d rows", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn := newTestDB(t)
	if err := conn.Create(&ledgerRow{Note: "dup"}).Error; err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	err := conn.Create(&ledgerRow{Note: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation, got %v", err)
	}

	pgErr := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
	if !IsUniqueViolation(pgErr, "users_email_key") {
		t.Fatal("expected pg unique violation to match constraint")
	}
	if IsUniqueViolation(pgErr, "orders_reference_key") {
		t.Fatal("constraint name should narrow the match")
	}
	if IsUniqueViolation(errors.New("boom"), "") || IsUniqueViolation(nil, "") {
		t.Fatal("unrelated errors are not unique violations")
	}
}

func TestNewRequiresDSNForPostgres(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, Options{}, nil); err == nil {
		t.Fatal("expected missing DSN to fail")
	}
}
