package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/umbrella-rental/internal/database"
	"github.com/iliyamo/umbrella-rental/internal/model"
	"github.com/iliyamo/umbrella-rental/internal/repository"
	"github.com/iliyamo/umbrella-rental/internal/utils"
)

var (
	// ErrWrongPassword is returned when a profile password change gives
	// the wrong current password.
	ErrWrongPassword = errors.New("old password incorrect")
	// ErrNoFields is returned for a profile update that changes nothing.
	ErrNoFields = errors.New("no fields to update")
)

// AccountService creates accounts and applies profile changes.
type AccountService struct {
	DB            *sql.DB
	Users         *repository.UserRepo
	Ledger        *Ledger
	BcryptCost    int
	SignupCredits int
}

func NewAccountService(db *sql.DB, ledger *Ledger, bcryptCost, signupCredits int) *AccountService {
	return &AccountService{
		DB:            db,
		Users:         repository.NewUserRepo(db),
		Ledger:        ledger,
		BcryptCost:    bcryptCost,
		SignupCredits: signupCredits,
	}
}

// NewAccount is validated signup input.
type NewAccount struct {
	Username string
	Email    string
	Mobile   string
	Password string
	Name     string
}

// Register creates an account with the given role and grants the signup
// credits through the ledger in the same transaction.
func (s *AccountService) Register(ctx context.Context, in NewAccount, role model.Role) (model.User, error) {
	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		Mobile:       in.Mobile,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         role,
	}
	err = database.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := s.Users.CreateTx(ctx, tx, u); err != nil {
			return err
		}
		if s.SignupCredits > 0 {
			if _, err := s.Ledger.CreditTx(ctx, tx, u.ID, s.SignupCredits, model.TxBonus, "", "Welcome bonus"); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.User{}, failed(err)
	}
	log.WithFields(log.Fields{"user_id": u.ID, "role": role}).Info("account created")
	return s.Users.GetByID(ctx, u.ID)
}

// ProfileInput carries optional profile changes. A password change needs
// OldPassword.
type ProfileInput struct {
	Name         *string
	Email        *string
	Mobile       *string
	ProfileImage *string
	OldPassword  string
	NewPassword  *string
}

// UpdateProfile applies in to the user and returns the fresh row.
func (s *AccountService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (model.User, error) {
	upd := repository.ProfileUpdate{
		Name:         in.Name,
		Email:        in.Email,
		Mobile:       in.Mobile,
		ProfileImage: in.ProfileImage,
	}
	if in.NewPassword != nil {
		u, err := s.Users.GetByID(ctx, userID)
		if err != nil {
			return model.User{}, err
		}
		if !utils.VerifyPassword(u.PasswordHash, in.OldPassword) {
			return model.User{}, ErrWrongPassword
		}
		hash, err := utils.HashPassword(*in.NewPassword, s.BcryptCost)
		if err != nil {
			return model.User{}, err
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		return model.User{}, ErrNoFields
	}
	if err := s.Users.UpdateProfile(ctx, userID, upd); err != nil {
		return model.User{}, err
	}
	return s.Users.GetByID(ctx, userID)
}
