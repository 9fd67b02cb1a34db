package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"landsphere/server/internal/apperr"
	"landsphere/server/internal/database"
	"landsphere/server/internal/models"
)

// NewAccount carries the registration form.
type NewAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

// Register creates an account funded with the starting balance. Ids are handed out in
// sequence starting at 1.
func (e *Engine) Register(ctx context.Context, form NewAccount) (*models.UserAccount, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" || form.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", apperr.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	account := &models.UserAccount{
		Username:   username,
		Credential: string(hash),
		Email:      strings.TrimSpace(form.Email),
		Balance:    e.policy.StartingBalance,
		FullName:   strings.TrimSpace(form.FullName),
		Phone:      strings.TrimSpace(form.Phone),
		Address:    strings.TrimSpace(form.Address),
		CreatedAt:  e.now().UTC(),
	}

	err = e.db.Commit(ctx, func(tx *gorm.DB) error {
		_, err := database.FindAccountByUsername(tx, username)
		if err == nil {
			return fmt.Errorf("username %q already exists: %w", username, apperr.ErrInvalidState)
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return err
		}

		account.ID, err = database.NextAccountID(tx)
		if err != nil {
			return err
		}
		return database.CreateAccount(tx, account)
	})
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":  account.ID,
		"username": account.Username,
	}).Info("Registered account")
	return account, nil
}

// Authenticate checks a username and password pair.
func (e *Engine) Authenticate(ctx context.Context, username, password string) (*models.UserAccount, error) {
	account, err := e.db.AccountByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.Credential), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthorized)
	}
	return account, nil
}

// Account looks up a user. The platform owner id is never an account.
func (e *Engine) Account(ctx context.Context, id int64) (*models.UserAccount, error) {
	return e.db.Account(ctx, id)
}

// Dashboard gathers a user's balance, ledger entries and holdings. The admin user sees
// the whole ledger.
func (e *Engine) Dashboard(ctx context.Context, userID int64) (*models.Dashboard, error) {
	account, err := e.db.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	isAdmin := userID == e.policy.AdminUserID
	var records []models.TransactionRecord
	if isAdmin {
		records, err = e.db.Transactions(ctx)
	} else {
		records, err = e.db.TransactionsForUser(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	owned, err := e.db.ListingsOwnedBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	properties := e.catalog.Join(owned)
	for i := range properties {
		properties[i].OwnerName = account.DisplayName()
	}

	return &models.Dashboard{
		Account:      *account,
		Transactions: records,
		Properties:   properties,
		IsAdmin:      isAdmin,
	}, nil
}
