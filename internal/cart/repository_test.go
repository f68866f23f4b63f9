package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetCartLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()
	ctx := context.Background()
	userID := uint(42)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}).
			AddRow(1, "Product A", 2, "100.00").
			AddRow(2, "Product B", 1, "40.00")

		mock.ExpectQuery(`SELECT .* FROM carts c JOIN products p`).
			WithArgs(userID).
			WillReturnRows(rows)

		lines, err := repo.GetCartLines(ctx, db, userID)
		require.NoError(t, err)
		require.Len(t, lines, 2)

		assert.Equal(t, "Product A", lines[0].ProductName)
		assert.True(t, lines[0].Subtotal().Equal(decimal.RequireFromString("200")))
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM carts c JOIN products p`).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "quantity", "price"}))

		lines, err := repo.GetCartLines(ctx, db, userID)
		require.NoError(t, err)
		assert.Empty(t, lines)
	})

	t.Run("DBError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT .* FROM carts c JOIN products p`).
			WillReturnError(errors.New("db error"))

		_, err := repo.GetCartLines(ctx, db, userID)
		assert.Error(t, err)
	})
}

func TestRepository_ClearCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository()

	mock.ExpectExec(`DELETE FROM carts WHERE user_id = \$1`).
		WithArgs(uint(42)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	assert.NoError(t, repo.ClearCart(context.Background(), db, 42))
	assert.NoError(t, mock.ExpectationsWereMet())
}
