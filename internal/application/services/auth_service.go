package services

import (
	"context"
	"log"

	"github.com/coverline/backend/internal/domain/models"
	"github.com/coverline/backend/internal/infrastructure/persistence"
	"github.com/coverline/backend/pkg/auth"
	apperrors "github.com/coverline/backend/pkg/errors"
)

// AuthService authenticates back-office admins and issues session tokens
type AuthService struct {
	admins *persistence.AdminRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(admins *persistence.AdminRepository) *AuthService {
	return &AuthService{admins: admins}
}

// Login verifies credentials and returns a signed session token. Wrong
// email and wrong password produce the same error so login probing cannot
// distinguish them.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.Admin, error) {
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", nil, apperrors.NewForbiddenError("credentials", "invalid email or password")
		}
		return "", nil, err
	}

	if !auth.VerifyPassword(password, admin.PasswordHash) {
		return "", nil, apperrors.NewForbiddenError("credentials", "invalid email or password")
	}

	token, err := auth.GenerateToken(auth.ActorSession{
		ID:    admin.ID,
		Name:  admin.Name,
		Email: admin.Email,
		Role:  admin.Role,
	})
	if err != nil {
		return "", nil, err
	}

	log.Printf("🔑 Admin %s logged in", admin.Email)
	return token, admin, nil
}

// GetAdmin loads an admin by ID, used by handlers to resolve the actor
// behind a session.
func (s *AuthService) GetAdmin(ctx context.Context, adminID string) (*models.Admin, error) {
	return s.admins.Get(ctx, adminID)
}
