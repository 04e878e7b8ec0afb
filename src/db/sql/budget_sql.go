package db

import (
	"context"
	"errors"
	"fmt"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const budgetColumns = `id, family_id, category_id, amount::text, created_at, updated_at`

func scanBudget(row pgx.Row) (*models.Budget, error) {
	var b models.Budget
	var amount string
	err := row.Scan(&b.ID, &b.FamilyID, &b.CategoryID, &amount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("scan amount %q: %w", amount, err)
	}
	return &b, nil
}

func CreateBudget(ctx context.Context, pool *pgxpool.Pool, budget *models.Budget) (*models.Budget, error) {
	query := `
		INSERT INTO budgets (id, family_id, category_id, amount)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING ` + budgetColumns
	return scanBudget(pool.QueryRow(ctx, query, uuid.New(), budget.FamilyID, budget.CategoryID, budget.Amount.String()))
}

func GetBudgetByID(ctx context.Context, pool *pgxpool.Pool, familyID, budgetID uuid.UUID) (*models.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1 AND family_id = $2`
	b, err := scanBudget(pool.QueryRow(ctx, query, budgetID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return b, err
}

func GetAllBudgetsForFamily(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID) ([]models.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE family_id = $1 ORDER BY created_at DESC`
	rows, err := pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *b)
	}
	return budgets, rows.Err()
}

func UpdateBudget(ctx context.Context, pool *pgxpool.Pool, budget *models.Budget) (*models.Budget, error) {
	query := `
		UPDATE budgets
		SET amount = $1::numeric, category_id = $2, updated_at = NOW()
		WHERE id = $3 AND family_id = $4
		RETURNING ` + budgetColumns
	b, err := scanBudget(pool.QueryRow(ctx, query, budget.Amount.String(), budget.CategoryID, budget.ID, budget.FamilyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return b, err
}

func DeleteBudget(ctx context.Context, pool *pgxpool.Pool, familyID, budgetID uuid.UUID) error {
	query := `DELETE FROM budgets WHERE id = $1 AND family_id = $2`
	cmd, err := pool.Exec(ctx, query, budgetID, familyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
