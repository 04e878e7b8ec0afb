package db

import (
	"context"
	"errors"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ruleColumns = `id, family_id, name, conditions, category_id, created_at, updated_at`

func scanRule(row pgx.Row) (*models.TransactionRule, error) {
	var r models.TransactionRule
	err := row.Scan(&r.ID, &r.FamilyID, &r.Name, &r.Conditions, &r.CategoryID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func CreateTransactionRule(ctx context.Context, pool *pgxpool.Pool, rule *models.TransactionRule) (*models.TransactionRule, error) {
	query := `
		INSERT INTO transaction_rules (id, family_id, name, conditions, category_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + ruleColumns
	return scanRule(pool.QueryRow(ctx, query, uuid.New(), rule.FamilyID, rule.Name, rule.Conditions, rule.CategoryID))
}

func GetTransactionRuleByID(ctx context.Context, pool *pgxpool.Pool, familyID, ruleID uuid.UUID) (*models.TransactionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM transaction_rules WHERE id = $1 AND family_id = $2`
	r, err := scanRule(pool.QueryRow(ctx, query, ruleID, familyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return r, err
}

// GetAllTransactionRules returns rules in creation order, which is the order
// they are evaluated in.
func GetAllTransactionRules(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID) ([]models.TransactionRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM transaction_rules WHERE family_id = $1 ORDER BY created_at, id`
	rows, err := pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.TransactionRule{}
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, rows.Err()
}

func UpdateTransactionRule(ctx context.Context, pool *pgxpool.Pool, rule *models.TransactionRule) (*models.TransactionRule, error) {
	query := `
		UPDATE transaction_rules
		SET name = $1, conditions = $2, category_id = $3, updated_at = NOW()
		WHERE id = $4 AND family_id = $5
		RETURNING ` + ruleColumns
	r, err := scanRule(pool.QueryRow(ctx, query, rule.Name, rule.Conditions, rule.CategoryID, rule.ID, rule.FamilyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return r, err
}

func DeleteTransactionRule(ctx context.Context, pool *pgxpool.Pool, familyID, ruleID uuid.UUID) error {
	query := `DELETE FROM transaction_rules WHERE id = $1 AND family_id = $2`
	cmd, err := pool.Exec(ctx, query, ruleID, familyID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
