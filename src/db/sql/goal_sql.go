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

const goalColumns = `id, family_id, name, target_amount::text, current_amount::text, target_date, active, created_at, updated_at`

func scanGoal(row pgx.Row) (*models.Goal, error) {
	var g models.Goal
	var target, current string
	err := row.Scan(&g.ID, &g.FamilyID, &g.Name, &target, &current, &g.TargetDate, &g.Active, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if g.TargetAmount, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("scan target_amount %q: %w", target, err)
	}
	if g.CurrentAmount, err = decimal.NewFromString(current); err != nil {
		return nil, fmt.Errorf("scan current_amount %q: %w", current, err)
	}
	return &g, nil
}

func CreateGoal(ctx context.Context, pool *pgxpool.Pool, goal *models.Goal) (*models.Goal, error) {
	query := `
		INSERT INTO goals (id, family_id, name, target_amount, current_amount, target_date, active)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		RETURNING ` + goalColumns
	return scanGoal(pool.QueryRow(ctx, query,
		uuid.New(), goal.FamilyID, goal.Name, goal.TargetAmount.String(), goal.CurrentAmount.String(), goal.TargetDate, goal.Active))
}

func GetGoal(ctx context.Context, pool *pgxpool.Pool, familyID, goalID uuid.UUID) (*models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE id = $1 AND family_id = $2`
	g, err := scanGoal(pool.QueryRow(ctx, query, goalID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return g, err
}

func ListGoals(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID) ([]models.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE family_id = $1 ORDER BY created_at DESC`
	rows, err := pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []models.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func UpdateGoal(ctx context.Context, pool *pgxpool.Pool, goal *models.Goal) (*models.Goal, error) {
	query := `
		UPDATE goals
		SET name = $1, target_amount = $2::numeric, current_amount = $3::numeric, target_date = $4, active = $5, updated_at = NOW()
		WHERE id = $6 AND family_id = $7
		RETURNING ` + goalColumns
	g, err := scanGoal(pool.QueryRow(ctx, query,
		goal.Name, goal.TargetAmount.String(), goal.CurrentAmount.String(), goal.TargetDate, goal.Active, goal.ID, goal.FamilyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return g, err
}

func DeleteGoal(ctx context.Context, pool *pgxpool.Pool, familyID, goalID uuid.UUID) error {
	query := `DELETE FROM goals WHERE id = $1 AND family_id = $2`
	cmd, err := pool.Exec(ctx, query, goalID, familyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
