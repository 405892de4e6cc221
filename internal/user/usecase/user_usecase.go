package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/allisson/go-pwdhash"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/newsletter/internal/errors"
	"github.com/allisson/newsletter/internal/user/domain"
	appValidation "github.com/allisson/newsletter/internal/validation"
)

// UserUseCase handles admin user business logic.
type UserUseCase struct {
	userRepo       UserRepository
	passwordHasher *pwdhash.PasswordHasher
	now            func() time.Time
}

// NewUserUseCase creates a new UserUseCase using Argon2id with the interactive policy.
func NewUserUseCase(userRepo UserRepository) (*UserUseCase, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create password hasher")
	}

	return &UserUseCase{
		userRepo:       userRepo,
		passwordHasher: hasher,
		now:            time.Now,
	}, nil
}

func validateCreateUserInput(input CreateUserInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.Name,
			validation.Required.Error("name is required"),
			appValidation.NotBlank,
			validation.Length(1, 255).Error("name must be between 1 and 255 characters"),
		),
		validation.Field(&input.Email,
			validation.Required.Error("email is required"),
			appValidation.NotBlank,
			appValidation.Email,
			validation.Length(5, 255).Error("email must be between 5 and 255 characters"),
		),
		validation.Field(&input.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 128).Error("password must be between 8 and 128 characters"),
			appValidation.PasswordStrength{
				MinLength:      8,
				RequireUpper:   true,
				RequireLower:   true,
				RequireNumber:  true,
				RequireSpecial: true,
			},
		),
	)
	return appValidation.WrapValidationError(err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new admin user.
func (uc *UserUseCase) CreateUser(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateCreateUserInput(input); err != nil {
		return nil, err
	}

	hashedPassword, err := uc.passwordHasher.Hash([]byte(input.Password))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to hash password")
	}

	now := uc.now().UTC()
	user := &domain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Name:         strings.TrimSpace(input.Name),
		Email:        normalizeEmail(input.Email),
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate checks an email/password pair. Unknown emails and wrong passwords
// both return ErrInvalidCredentials.
func (uc *UserUseCase) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := uc.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if apperrors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := uc.passwordHasher.Verify([]byte(password), user.PasswordHash)
	if err != nil || !ok {
		return nil, domain.ErrInvalidCredentials
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (uc *UserUseCase) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return uc.userRepo.GetByID(ctx, id)
}
