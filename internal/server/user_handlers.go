package server

import (
	"net/http"

	"healthhub/internal/app"
	"healthhub/internal/domain"
)

type loginRequest struct {
	Code string `json:"code"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, token, err := s.users.Login(r.Context(), req.Code)
	if err != nil {
		writeServiceError(w, err, "login failed")
		return
	}
	writeResult(w, loginResponse{Token: token, User: user})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, codeUnauthorized, "missing token")
		return
	}
	user, found, err := s.users.GetProfile(userID)
	if err != nil {
		writeError(w, codeError, "load profile failed")
		return
	}
	if !found {
		writeError(w, codeNotFound, "user not found")
		return
	}
	writeResult(w, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, codeUnauthorized, "missing token")
		return
	}
	var user domain.User
	if !decodeBody(w, r, &user) {
		return
	}
	user.ID = userID
	updated, err := s.users.UpdateProfile(user)
	if err != nil {
		writeServiceError(w, err, "update profile failed")
		return
	}
	writeResult(w, updated)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := intParam(query.Get("page"), 1)
	size := intParam(query.Get("size"), 10)
	var status *domain.UserStatus
	if raw := query.Get("status"); raw != "" {
		parsed, ok := domain.ParseUserStatus(raw)
		if !ok {
			writeError(w, codeParamError, "invalid status")
			return
		}
		status = &parsed
	}
	users, total, err := s.users.List(app.ListQuery{
		Nickname: query.Get("nickname"),
		Status:   status,
		Page:     page,
		Size:     size,
	})
	if err != nil {
		writeError(w, codeError, "list users failed")
		return
	}
	writeResult(w, map[string]any{
		"list":  users,
		"total": total,
		"page":  page,
		"size":  size,
	})
}

func (s *Server) handleUpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, ok := domain.ParseUserStatus(req.Status)
	if !ok {
		writeError(w, codeParamError, "invalid status")
		return
	}
	if err := s.users.UpdateStatus(req.ID, status); err != nil {
		writeServiceError(w, err, "update user status failed")
		return
	}
	writeResult(w, nil)
}

func (s *Server) handleUserStatistics(w http.ResponseWriter, r *http.Request) {
	activeDays := intParam(r.URL.Query().Get("activeDays"), 0)
	stats, err := s.users.Statistics(activeDays)
	if err != nil {
		writeError(w, codeError, "user statistics failed")
		return
	}
	writeResult(w, stats)
}
