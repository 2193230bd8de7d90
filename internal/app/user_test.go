package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"healthhub/internal/domain"
	"healthhub/internal/store"
	"healthhub/internal/wechat"
)

type fakeWechat struct {
	session wechat.Session
	err     error
	calls   int
}

func (f *fakeWechat) Login(_ context.Context, _ string) (wechat.Session, error) {
	f.calls++
	return f.session, f.err
}

type fakeSessions struct {
	saved map[int64]string
	err   error
}

func (f *fakeSessions) Save(_ context.Context, userID int64, key string) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[int64]string)
	}
	f.saved[userID] = key
	return nil
}

type fakeTokens struct{}

func (fakeTokens) Issue(userID int64) (string, error) {
	return fmt.Sprintf("token-%d", userID), nil
}

func TestLoginCreatesUserOnFirstContact(t *testing.T) {
	st := store.NewMemoryStore()
	wc := &fakeWechat{session: wechat.Session{Openid: "o-abc", SessionKey: "sk-1"}}
	sessions := &fakeSessions{}
	svc := NewUserService(st, wc, sessions, fakeTokens{}, nil)

	user, token, err := svc.Login(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID == 0 || user.Openid != "o-abc" {
		t.Fatalf("user = %+v, want created account", user)
	}
	if user.Status != domain.UserActive {
		t.Fatalf("status = %q, want active", user.Status)
	}
	if token != fmt.Sprintf("token-%d", user.ID) {
		t.Fatalf("token = %q", token)
	}
	if sessions.saved[user.ID] != "sk-1" {
		t.Fatalf("session key not saved: %v", sessions.saved)
	}
}

func TestLoginReusesExistingAccount(t *testing.T) {
	st := store.NewMemoryStore()
	existing := domain.User{Openid: "o-abc", Nickname: "Lee", Status: domain.UserActive}
	if err := st.InsertUser(&existing); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	wc := &fakeWechat{session: wechat.Session{Openid: "o-abc"}}
	svc := NewUserService(st, wc, nil, fakeTokens{}, nil)

	user, _, err := svc.Login(context.Background(), "code-2")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != existing.ID || user.Nickname != "Lee" {
		t.Fatalf("user = %+v, want the existing account", user)
	}
	total, _ := st.CountTotalUsers()
	if total != 1 {
		t.Fatalf("user count = %d, want 1", total)
	}
}

func TestLoginSessionSaveFailureIsAbsorbed(t *testing.T) {
	st := store.NewMemoryStore()
	wc := &fakeWechat{session: wechat.Session{Openid: "o-def", SessionKey: "sk-2"}}
	sessions := &fakeSessions{err: errors.New("redis down")}
	svc := NewUserService(st, wc, sessions, fakeTokens{}, nil)

	_, token, err := svc.Login(context.Background(), "code-3")
	if err != nil {
		t.Fatalf("session failure must not block login, got %v", err)
	}
	if token == "" {
		t.Fatalf("token empty")
	}
}

func TestLoginRejectsBlankCode(t *testing.T) {
	svc := NewUserService(store.NewMemoryStore(), &fakeWechat{}, nil, fakeTokens{}, nil)
	_, _, err := svc.Login(context.Background(), "  ")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLoginInvalidCode(t *testing.T) {
	wc := &fakeWechat{err: wechat.ErrCodeInvalid}
	svc := NewUserService(store.NewMemoryStore(), wc, nil, fakeTokens{}, nil)
	_, _, err := svc.Login(context.Background(), "expired")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestLoginRefreshesUnionid(t *testing.T) {
	st := store.NewMemoryStore()
	existing := domain.User{Openid: "o-ghi", Status: domain.UserActive}
	if err := st.InsertUser(&existing); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	wc := &fakeWechat{session: wechat.Session{Openid: "o-ghi", Unionid: "u-1"}}
	svc := NewUserService(st, wc, nil, fakeTokens{}, nil)

	user, _, err := svc.Login(context.Background(), "code-4")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Unionid != "u-1" {
		t.Fatalf("unionid = %q, want refreshed", user.Unionid)
	}
}

func TestUpdateProfilePhoneConflict(t *testing.T) {
	st := store.NewMemoryStore()
	first := domain.User{Openid: "o-1", Phone: "13800000001", Status: domain.UserActive}
	second := domain.User{Openid: "o-2", Status: domain.UserActive}
	if err := st.InsertUser(&first); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.InsertUser(&second); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewUserService(st, &fakeWechat{}, nil, fakeTokens{}, nil)

	second.Phone = "13800000001"
	_, err := svc.UpdateProfile(second)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestUpdateProfilePreservesStatus(t *testing.T) {
	st := store.NewMemoryStore()
	u := domain.User{Openid: "o-keep", Status: domain.UserActive}
	if err := st.InsertUser(&u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewUserService(st, &fakeWechat{}, nil, fakeTokens{}, nil)

	// The usual profile PUT carries no status field.
	updated, err := svc.UpdateProfile(domain.User{ID: u.ID, Nickname: "new-name"})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Status != domain.UserActive {
		t.Fatalf("status = %q, want active preserved", updated.Status)
	}
	if updated.Nickname != "new-name" {
		t.Fatalf("nickname = %q", updated.Nickname)
	}

	// Status changes are the admin toggle's job; a profile update cannot
	// smuggle one in.
	updated, err = svc.UpdateProfile(domain.User{ID: u.ID, Status: domain.UserDisabled})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.Status != domain.UserActive {
		t.Fatalf("status = %q, want active despite request status", updated.Status)
	}
}

func TestUpdateProfileNotFound(t *testing.T) {
	svc := NewUserService(store.NewMemoryStore(), &fakeWechat{}, nil, fakeTokens{}, nil)
	_, err := svc.UpdateProfile(domain.User{ID: 99, Nickname: "Ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListUsersFiltersByStatus(t *testing.T) {
	st := store.NewMemoryStore()
	active := domain.User{Openid: "o-a", Status: domain.UserActive}
	disabled := domain.User{Openid: "o-b", Status: domain.UserDisabled}
	if err := st.InsertUser(&active); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.InsertUser(&disabled); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewUserService(st, &fakeWechat{}, nil, fakeTokens{}, nil)

	status := domain.UserDisabled
	users, total, err := svc.List(ListQuery{Status: &status})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(users) != 1 || users[0].Openid != "o-b" {
		t.Fatalf("got %d/%d %+v, want the disabled user only", len(users), total, users)
	}
}

func TestUserStatistics(t *testing.T) {
	st := store.NewMemoryStore()
	u := domain.User{Openid: "o-stat", Status: domain.UserActive}
	if err := st.InsertUser(&u); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewUserService(st, &fakeWechat{}, nil, fakeTokens{}, nil)

	stats, err := svc.Statistics(0)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.Total != 1 || stats.TodayNew != 1 || stats.Active != 1 {
		t.Fatalf("stats = %+v, want 1/1/1", stats)
	}
}
