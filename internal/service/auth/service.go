package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
	"github.com/jwalitptl/hospital-api/pkg/auth"
	apperrors "github.com/jwalitptl/hospital-api/pkg/errors"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	userRepo repository.UserRepository
	jwtSvc   auth.JWTService
	hasher   auth.PasswordHasher
}

func NewService(userRepo repository.UserRepository, jwtSvc auth.JWTService, hasher auth.PasswordHasher) *Service {
	return &Service{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
	}
}

// Login checks the password and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to load user: %w", err))
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		log.Info().Str("email", user.Email).Msg("login rejected")
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	return s.issue(user)
}

// Register creates a patient account and its directory profile, then logs
// the new user in.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (*model.LoginResponse, error) {
	var dob *time.Time
	if req.DateOfBirth != "" {
		t, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, apperrors.Validation("date_of_birth must be YYYY-MM-DD", nil)
		}
		dob = &t
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to hash password: %w", err))
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	user := &model.User{
		Name:         firstName + " " + lastName,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RolePatient,
	}
	patient := &model.Patient{
		FirstName:        firstName,
		LastName:         lastName,
		DateOfBirth:      dob,
		Gender:           req.Gender,
		Address:          req.Address,
		Phone:            req.Phone,
		Email:            email,
		EmergencyContact: req.EmergencyContact,
		MedicalHistory:   req.MedicalHistory,
	}

	if err := s.userRepo.CreatePatientAccount(ctx, user, patient); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("email already registered", nil)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to register: %w", err))
	}

	log.Info().Int64("user_id", user.ID).Int64("patient_id", patient.ID).Msg("patient registered")
	return s.issue(user)
}

// Authenticate turns a bearer token into the actor it was issued to.
func (s *Service) Authenticate(token string) (model.Actor, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Actor{}, apperrors.Unauthorized(err)
	}
	role, err := model.ParseRole(claims.Role)
	if err != nil {
		return model.Actor{}, apperrors.Unauthorized(err)
	}
	return model.Actor{UserID: claims.UserID, Email: claims.Email, Role: role}, nil
}

func (s *Service) issue(user *model.User) (*model.LoginResponse, error) {
	token, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to generate token: %w", err))
	}
	return &model.LoginResponse{
		User: model.LoginUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
		},
		Token: token,
	}, nil
}
