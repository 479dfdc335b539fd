// Package services contains server-side business logic. This file implements
// CredentialService: sign-up, sign-in, password change and the
// forgot/reset password flow.
package services

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"text/template"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/cryptox"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/mail"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

const (
	resetSubject     = "Password reset"
	resetSentMessage = "Password reset link has been sent to your email"
	resetDoneMessage = "Password has been reset"
)

var resetEmailTmpl = template.Must(template.New("reset_email").Parse(
	`You asked to reset the password of your account.

Follow the link below within {{.ValidFor}} to choose a new password:

{{.Link}}

If you did not ask for this, ignore this email.
`))

// CredentialService issues login tokens and manages stored passwords.
//
// Write paths run in a RepositoryManager transaction so concurrent
// requests for the same user observe each other's changes in order.
type CredentialService struct {
	repomanager  repomanager.RepositoryManager
	hasher       cryptox.PasswordHasher
	signer       *auth.Signer
	mailer       mail.Mailer
	resetURLBase string
	resetTTL     time.Duration
	mailTimeout  time.Duration
	log          logging.Logger
	now          func() time.Time

	// compared against on unknown emails so both sign-in failures cost
	// one hash comparison
	dummyHash string
}

func NewCredentialService(
	m repomanager.RepositoryManager,
	hasher cryptox.PasswordHasher,
	signer *auth.Signer,
	mailer mail.Mailer,
	cfg *config.Config,
	log logging.Logger,
) (*CredentialService, error) {
	seed, err := common.MakeRandHexString(16)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}
	dummy, err := hasher.Hash(seed)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	return &CredentialService{
		repomanager:  m,
		hasher:       hasher,
		signer:       signer,
		mailer:       mailer,
		resetURLBase: cfg.ResetURLBase,
		resetTTL:     cfg.ResetTokenValidityDuration,
		mailTimeout:  cfg.MailSendTimeout,
		log:          log,
		now:          time.Now,
		dummyHash:    dummy,
	}, nil
}

// WithClock replaces the time source used for password change timestamps.
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	s.now = now
	return s
}

// SignUp creates a user and returns a login token for it.
func (s *CredentialService) SignUp(ctx context.Context, reg models.Registration) (*models.AuthResult, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	if reg.Password == "" {
		return nil, fmt.Errorf("%w: password is required", common.ErrValidation)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *models.User
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repo users.Repository) error {
		_, err := repo.FindByEmail(ctx, email, false)
		switch {
		case err == nil:
			return common.ErrDuplicateUser
		case !errors.Is(err, common.ErrorNotFound):
			return fmt.Errorf("error searching user: %w", err)
		}

		created, err = repo.Create(ctx, &models.User{
			Email:        email,
			Name:         strings.TrimSpace(reg.Name),
			PasswordHash: hash,
		})
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrDuplicateUser
		}
		if err != nil {
			return fmt.Errorf("error creating user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "user signed up", "user_id", created.ID)
	return s.IssueToken(created)
}

// SignIn checks the password of the user registered under email.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *CredentialService) SignIn(ctx context.Context, email, password string) (*models.AuthResult, error) {
	email = canonicalEmail(email)

	user, err := s.repomanager.Users().FindByEmail(ctx, email, true)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_, _ = s.hasher.Compare(password, s.dummyHash)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if err := s.checkPassword(password, user.PasswordHash); err != nil {
		return nil, err
	}

	return s.IssueToken(user)
}

// ChangePassword replaces the password of a user who knows the current
// one. Every login token issued before the change stops being accepted.
func (s *CredentialService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) (*models.AuthResult, error) {
	email = canonicalEmail(email)
	if newPassword == "" {
		return nil, fmt.Errorf("%w: new password is required", common.ErrValidation)
	}

	var saved *models.User
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, repo users.Repository) error {
		user, err := repo.FindByEmail(ctx, email, true)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				_, _ = s.hasher.Compare(oldPassword, s.dummyHash)
				return common.ErrInvalidCredentials
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		if err := s.checkPassword(oldPassword, user.PasswordHash); err != nil {
			return err
		}

		hash, err := s.hasher.Hash(newPassword)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		user.SetPassword(hash, s.now())

		saved, err = repo.Save(ctx, user)
		if err != nil {
			return fmt.Errorf("error saving user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info(ctx, "password changed", "user_id", saved.ID)

	// issued at the change time so it is the oldest token still accepted
	token, err := s.signer.SignAt(saved.Email, saved.ID, *saved.PasswordChangedAt)
	if err != nil {
		return nil, err
	}
	return newAuthResult(token, saved), nil
}

// ForgotPassword stores a short-lived reset token on the user and mails a
// link that embeds it. The send is bounded by the mail timeout since the
// user row stays locked until it returns.
//
// An unknown email yields ErrUserNotFound, which tells the caller whether
// an account exists.
// TODO: answer with the same confirmation for unknown emails once clients
// no longer rely on the not-found response.
func (s *CredentialService) ForgotPassword(ctx context.Context, email string) (*models.MessageResult, error) {
	email = canonicalEmail(email)

	err := s.repomanager.WithTx(ctx, func(ctx context.Context, repo users.Repository) error {
		user, err := repo.FindByEmail(ctx, email, false)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrUserNotFound
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		token, err := s.signer.SignReset(user.Email)
		if err != nil {
			return fmt.Errorf("sign reset token: %w", err)
		}

		user.PasswordResetToken = token
		if _, err := repo.Save(ctx, user); err != nil {
			return fmt.Errorf("error saving user: %w", err)
		}

		body, err := s.resetEmailBody(token)
		if err != nil {
			return err
		}

		if err := s.sendEmail(ctx, mail.Message{To: user.Email, Subject: resetSubject, Body: body}); err != nil {
			return fmt.Errorf("send reset email: %w", err)
		}

		s.log.Info(ctx, "password reset requested", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.MessageResult{Message: resetSentMessage}, nil
}

// ResetPassword sets a new password for the owner of a reset token.
//
// The token must verify and must be the one currently stored on the user,
// so each token works once. A successful reset does not sign the user in;
// the result echoes the consumed token.
func (s *CredentialService) ResetPassword(ctx context.Context, token, newPassword string) (*models.ResetResult, error) {
	if newPassword == "" {
		return nil, fmt.Errorf("%w: new password is required", common.ErrValidation)
	}

	claims, err := s.signer.VerifyReset(token)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	err = s.repomanager.WithTx(ctx, func(ctx context.Context, repo users.Repository) error {
		user, err := repo.FindByEmail(ctx, claims.Email, false)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenInvalid
			}
			return fmt.Errorf("error searching user: %w", err)
		}

		if subtle.ConstantTimeCompare([]byte(user.PasswordResetToken), []byte(token)) != 1 {
			return common.ErrTokenInvalid
		}

		user.SetPassword(hash, s.now())
		if _, err := repo.Save(ctx, user); err != nil {
			return fmt.Errorf("error saving user: %w", err)
		}

		s.log.Info(ctx, "password reset", "user_id", user.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &models.ResetResult{Message: resetDoneMessage, Token: token}, nil
}

// IssueToken signs a login token for user and packages it with the
// public projection of the user. The user value is not modified.
func (s *CredentialService) IssueToken(user *models.User) (*models.AuthResult, error) {
	token, err := s.signer.Sign(user.Email, user.ID)
	if err != nil {
		return nil, err
	}
	return newAuthResult(token, user), nil
}

func newAuthResult(token string, user *models.User) *models.AuthResult {
	return &models.AuthResult{
		Status: common.StatusSuccess,
		Token:  token,
		Data:   models.AuthData{User: user.Public()},
	}
}

func (s *CredentialService) checkPassword(password, hash string) error {
	ok, err := s.hasher.Compare(password, hash)
	if err != nil {
		if errors.Is(err, cryptox.ErrInvalidHash) {
			return fmt.Errorf("stored password hash: %w", err)
		}
		return common.ErrInvalidCredentials
	}
	if !ok {
		return common.ErrInvalidCredentials
	}
	return nil
}

func (s *CredentialService) sendEmail(ctx context.Context, msg mail.Message) error {
	if s.mailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.mailTimeout)
		defer cancel()
	}
	return s.mailer.SendEmail(ctx, msg)
}

func (s *CredentialService) resetEmailBody(token string) (string, error) {
	var buf bytes.Buffer
	err := resetEmailTmpl.Execute(&buf, struct {
		Link     string
		ValidFor time.Duration
	}{
		Link:     s.resetURLBase + token,
		ValidFor: s.resetTTL,
	})
	if err != nil {
		return "", fmt.Errorf("render reset email: %w", err)
	}
	return buf.String(), nil
}

func canonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeEmail canonicalizes email and rejects anything that is not a
// bare address.
func normalizeEmail(email string) (string, error) {
	email = canonicalEmail(email)
	a, err := netmail.ParseAddress(email)
	if err != nil || a.Address != email {
		return "", fmt.Errorf("%w: email is malformed", common.ErrValidation)
	}
	return email, nil
}
