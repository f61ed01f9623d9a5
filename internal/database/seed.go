package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// defaultCategory is one of the categories every fresh install starts with.
type defaultCategory struct {
	Key         string
	Name        string
	Description string
}

// DefaultCategories are inserted by Seed when missing.
var DefaultCategories = []defaultCategory{
	{Key: "layouts", Name: "页面结构", Description: "页面布局相关的提示词，包括首屏、侧栏、网格、瀑布流等"},
	{Key: "cards", Name: "卡片形式", Description: "卡片组件相关的提示词"},
	{Key: "components", Name: "基础组件", Description: "通用 UI 组件相关的提示词"},
	{Key: "animations", Name: "动效方式", Description: "动画和过渡效果相关的提示词"},
	{Key: "colors", Name: "配色搭配", Description: "配色方案相关的提示词"},
}

// SeedAdmin describes the development admin account.
type SeedAdmin struct {
	Email    string
	Username string
	Password string
}

// Seed populates the database with the default categories and a
// development admin user. Rows that already exist are left untouched, so
// Seed can run on every start.
func Seed(ctx context.Context, db *sql.DB, admin SeedAdmin) error {
	for _, c := range DefaultCategories {
		res, err := db.ExecContext(ctx, `
			INSERT INTO categories (key, name, description)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING
		`, c.Key, c.Name, c.Description)
		if err != nil {
			return fmt.Errorf("seed category %s: %w", c.Key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("seeded category", "key", c.Key)
		}
	}

	if admin.Email == "" {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO users (email, username, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT DO NOTHING
	`, admin.Email, admin.Username, string(hash))
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("database seeded with default admin user", "email", admin.Email)
	} else {
		slog.Info("admin user already present, skipping", "email", admin.Email)
	}
	return nil
}
