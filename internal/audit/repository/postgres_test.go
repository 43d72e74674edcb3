package repository

import (
	"context"
	"testing"
	"time"

	"adinsights/backend/internal/audit/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs("a1", "b1", "acc-1", "sign_in", "auth", "10.0.0.1", "", at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Create(context.Background(), &domain.AuditLog{
		ID: "a1", BrandID: "b1", AccountID: "acc-1", Action: "sign_in", Resource: "auth", IP: "10.0.0.1", CreatedAt: at,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByBrand(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM audit_logs WHERE brand_id = \\$1").
		WithArgs("b1", int32(10), int32(0)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "brand_id", "account_id", "action", "resource", "ip", "metadata", "created_at"}).
			AddRow("a2", "b1", "acc-1", "refresh", "auth", "ip", "", at).
			AddRow("a1", "b1", "acc-1", "authenticate", "auth", "ip", "", at))

	logs, err := repo.ListByBrand(context.Background(), "b1", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "a2", logs[0].ID)
	assert.Equal(t, "authenticate", logs[1].Action)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_ListByBrand_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)

	mock.ExpectQuery("FROM audit_logs").WithArgs("b1", int32(10), int32(0)).WillReturnError(pgx.ErrTxClosed)
	_, err = repo.ListByBrand(context.Background(), "b1", 10, 0)
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}
