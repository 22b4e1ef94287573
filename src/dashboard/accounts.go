package dashboard

import (
	"context"
	"errors"
	"strings"
	"time"

	"stock-watch/src/models"
	"stock-watch/src/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// -----------------------------------------------------------------------------

// Register creates an account and logs the session in with an empty watchlist.
func (d *Dashboard) Register(ctx context.Context, sess Session, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.BcryptCost)
	if err != nil {
		return err
	}

	account := &models.MAccount{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.DB.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			return ErrUsernameTaken
		}
		return err
	}

	d.Logger.Info("Registered account %s", username)
	sess.Set(SessionUsername, username)
	saveWatchlist(sess, models.MWatchlist{})
	return nil
}

// -----------------------------------------------------------------------------

// Login checks the password and keeps whatever watchlist the session has.
func (d *Dashboard) Login(ctx context.Context, sess Session, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	account, err := d.DB.GetAccount(ctx, username)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}

	sess.Set(SessionUsername, account.Username)
	if sess.Get(SessionWatchlist) == nil {
		saveWatchlist(sess, models.MWatchlist{})
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *Dashboard) Logout(sess Session) {
	sess.Clear()
}
