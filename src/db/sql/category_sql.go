package db

import (
	"context"
	"errors"

	"famfin-server/src/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func CreateCategory(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID, name string) (*models.Category, error) {
	query := `
		INSERT INTO categories (id, family_id, name)
		VALUES ($1, $2, $3)
		RETURNING id, family_id, name, created_at
	`
	var c models.Category
	err := pool.QueryRow(ctx, query, uuid.New(), familyID, name).Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func GetCategory(ctx context.Context, pool *pgxpool.Pool, familyID, categoryID uuid.UUID) (*models.Category, error) {
	query := `SELECT id, family_id, name, created_at FROM categories WHERE id = $1 AND family_id = $2`
	var c models.Category
	err := pool.QueryRow(ctx, query, categoryID, familyID).Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func ListCategories(ctx context.Context, pool *pgxpool.Pool, familyID uuid.UUID) ([]models.Category, error) {
	query := `SELECT id, family_id, name, created_at FROM categories WHERE family_id = $1 ORDER BY name`
	rows, err := pool.Query(ctx, query, familyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.FamilyID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
