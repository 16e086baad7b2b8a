package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/pkg/constants"
	apperrors "github.com/coverline/backend/pkg/errors"
)

const adminColumns = "id, name, email, role, password_hash, created_date"

// AdminRepository handles database operations for back-office admins
type AdminRepository struct {
	db *sql.DB
	tm *TransactionManager
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(db *sql.DB, tm *TransactionManager) *AdminRepository {
	return &AdminRepository{db: db, tm: tm}
}

// Insert creates a new admin row
func (r *AdminRepository) Insert(ctx context.Context, admin *models.Admin) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, name, email, role, password_hash, created_date)
		VALUES (?, ?, ?, ?, ?, NOW())
	`, constants.TableAdmin)

	exec := r.tm.ExecutorFor(ctx)
	_, err := exec.ExecContext(ctx, query, admin.ID, admin.Name, admin.Email, admin.Role, admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to insert admin: %w", err)
	}
	return nil
}

// Get retrieves an admin by ID
func (r *AdminRepository) Get(ctx context.Context, adminID string) (*models.Admin, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", adminColumns, constants.TableAdmin)
	return r.scanOne(ctx, query, adminID)
}

// GetByEmail retrieves an admin by email for login
func (r *AdminRepository) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE email = ?", adminColumns, constants.TableAdmin)
	return r.scanOne(ctx, query, email)
}

// ExistsByEmail reports whether an admin with this email exists
func (r *AdminRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE email = ?)", constants.TableAdmin)

	exec := r.tm.ExecutorFor(ctx)
	var exists bool
	if err := exec.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check admin existence: %w", err)
	}
	return exists, nil
}

func (r *AdminRepository) scanOne(ctx context.Context, query string, arg string) (*models.Admin, error) {
	exec := r.tm.ExecutorFor(ctx)
	row := exec.QueryRowContext(ctx, query, arg)

	var admin models.Admin
	err := row.Scan(&admin.ID, &admin.Name, &admin.Email, &admin.Role, &admin.PasswordHash, &admin.CreatedDate)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("admin", arg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan admin: %w", err)
	}
	return &admin, nil
}
