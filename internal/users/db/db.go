package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-library/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateUser(ctx context.Context, user models.User) error {
	_, err := d.Bun.NewInsert().Model(&user).Exec(ctx)
	return err
}

func (d *DB) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("email = ?", email).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) NameExists(ctx context.Context, name string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("name = ?", name).
		Exists(ctx)
}

func (d *DB) EmailExists(ctx context.Context, email string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Where("email = ?", email).
		Exists(ctx)
}

func (d *DB) UpdateName(ctx context.Context, id, name string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("name = ?", name).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hash).
		Where("id = ?", id).
		Exec(ctx)
	return err
}

func (d *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DB) DeleteUser(ctx context.Context, id string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
