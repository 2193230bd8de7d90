package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"healthhub/internal/domain"
	"healthhub/internal/store"
	"healthhub/internal/wechat"
)

const defaultActiveDays = 7

// Authenticator exchanges a mini-program login code for a WeChat session.
type Authenticator interface {
	Login(ctx context.Context, code string) (wechat.Session, error)
}

// SessionSaver persists the WeChat session key after a login.
type SessionSaver interface {
	Save(ctx context.Context, userID int64, sessionKey string) error
}

// TokenIssuer mints API access tokens for logged-in users.
type TokenIssuer interface {
	Issue(userID int64) (string, error)
}

// UserService handles login-or-create and account maintenance. Identity is
// WeChat-asserted: the openid is the unique account key, created on first
// login and never changed afterwards.
type UserService struct {
	store    store.UserStore
	wechat   Authenticator
	sessions SessionSaver
	tokens   TokenIssuer
	log      *slog.Logger
}

// NewUserService wires the service. sessions may be nil when no Redis is
// configured; session keys are then not retained.
func NewUserService(st store.UserStore, auth Authenticator, sessions SessionSaver, tokens TokenIssuer, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{store: st, wechat: auth, sessions: sessions, tokens: tokens, log: log}
}

// UserStats is the administrative counters snapshot.
type UserStats struct {
	Total    int64 `json:"totalUsers"`
	TodayNew int64 `json:"todayNewUsers"`
	Active   int64 `json:"activeUsers"`
}

// ListQuery filters the administrative user listing. Page is 1-based.
type ListQuery struct {
	Nickname string
	Status   *domain.UserStatus
	Page     int
	Size     int
}

// Login performs the WeChat code exchange and logs the user in, creating the
// account on first contact. Returns the user and a signed access token.
func (s *UserService) Login(ctx context.Context, code string) (domain.User, string, error) {
	if strings.TrimSpace(code) == "" {
		return domain.User{}, "", fmt.Errorf("%w: login code is required", ErrInvalidInput)
	}
	sess, err := s.wechat.Login(ctx, code)
	if err != nil {
		if errors.Is(err, wechat.ErrCodeInvalid) {
			return domain.User{}, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return domain.User{}, "", fmt.Errorf("wechat login: %w", err)
	}

	user, ok, err := s.store.FindByOpenid(sess.Openid)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("load user: %w", err)
	}
	switch {
	case !ok:
		user = domain.User{
			Openid:  sess.Openid,
			Unionid: sess.Unionid,
			Status:  domain.UserActive,
		}
		if err := s.store.InsertUser(&user); err != nil {
			// A concurrent first login can win the insert; fall back to the
			// row the winner created.
			if errors.Is(err, store.ErrConflict) {
				user, ok, err = s.store.FindByOpenid(sess.Openid)
				if err != nil || !ok {
					return domain.User{}, "", fmt.Errorf("load user after conflict: %w", err)
				}
			} else {
				return domain.User{}, "", fmt.Errorf("create user: %w", err)
			}
		} else {
			s.log.Info("created user", "user_id", user.ID)
		}
	case sess.Unionid != "" && sess.Unionid != user.Unionid:
		user.Unionid = sess.Unionid
		if err := s.store.UpdateUser(user); err != nil {
			s.log.Warn("unionid refresh failed", "user_id", user.ID, "err", err)
		}
	}

	if s.sessions != nil && sess.SessionKey != "" {
		if err := s.sessions.Save(ctx, user.ID, sess.SessionKey); err != nil {
			s.log.Warn("session key save failed", "user_id", user.ID, "err", err)
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// GetProfile returns a user by id.
func (s *UserService) GetProfile(id int64) (domain.User, bool, error) {
	if id <= 0 {
		return domain.User{}, false, nil
	}
	return s.store.FindUserByID(id)
}

// UpdateProfile rewrites profile fields. Openid and account status are never
// changed through this path (status is the admin toggle's job), and a phone
// number held by another account is a conflict.
func (s *UserService) UpdateProfile(u domain.User) (domain.User, error) {
	if u.ID <= 0 {
		return domain.User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	existing, ok, err := s.store.FindUserByID(u.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return domain.User{}, ErrNotFound
	}
	u.Status = existing.Status
	if u.Phone != "" {
		owner, ok, err := s.store.FindByPhone(u.Phone)
		if err != nil {
			return domain.User{}, fmt.Errorf("check phone: %w", err)
		}
		if ok && owner.ID != u.ID {
			return domain.User{}, fmt.Errorf("%w: phone already in use", ErrConflict)
		}
	}
	if err := s.store.UpdateUser(u); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	updated, _, err := s.store.FindUserByID(u.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("reload user: %w", err)
	}
	return updated, nil
}

// List pages through users for the admin view.
func (s *UserService) List(q ListQuery) ([]domain.User, int64, error) {
	if q.Page < 1 {
		q.Page = defaultPage
	}
	if q.Size < 1 {
		q.Size = defaultSize
	}
	storeQuery := store.UserQuery{
		Nickname: q.Nickname,
		Status:   q.Status,
		Offset:   (q.Page - 1) * q.Size,
		Limit:    q.Size,
	}
	users, err := s.store.ListUsers(storeQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	total, err := s.store.CountUsers(storeQuery)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	return users, total, nil
}

// UpdateStatus enables or disables an account.
func (s *UserService) UpdateStatus(id int64, status domain.UserStatus) error {
	if id <= 0 {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	_, ok, err := s.store.FindUserByID(id)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return ErrNotFound
	}
	return s.store.UpdateUserStatus(id, status)
}

// Statistics reports account counters. activeDays bounds the recent-activity
// window and defaults to a week.
func (s *UserService) Statistics(activeDays int) (UserStats, error) {
	if activeDays < 1 {
		activeDays = defaultActiveDays
	}
	total, err := s.store.CountTotalUsers()
	if err != nil {
		return UserStats{}, fmt.Errorf("count users: %w", err)
	}
	todayNew, err := s.store.CountUsersCreatedSince(startOfToday())
	if err != nil {
		return UserStats{}, fmt.Errorf("count today users: %w", err)
	}
	active, err := s.store.CountUsersUpdatedSince(time.Now().UTC().AddDate(0, 0, -activeDays))
	if err != nil {
		return UserStats{}, fmt.Errorf("count active users: %w", err)
	}
	return UserStats{Total: total, TodayNew: todayNew, Active: active}, nil
}
