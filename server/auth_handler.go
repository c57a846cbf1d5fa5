package server

import (
	"errors"
	"fmt"
	"net/http"

	"medprofile/core/auth"
	"medprofile/core/validation"
	"medprofile/logger"
	"medprofile/model"
	"medprofile/repository"

	"github.com/google/uuid"
)

// identical for unknown users and wrong passwords so usernames cannot be probed
const msgInvalidCredentials = "Invalid username or password"

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterHandler handles user registration requests
func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if errs := validation.ValidateRegistration(validation.RegistrationInput{
		Username:  req.Username,
		Password:  req.Password,
		Email:     req.Email,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
	}); len(errs) > 0 {
		writeValidationError(w, "Validation failed", errs)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		logger.Error("[Register] 密码哈希失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	user := model.NewUser(uuid.NewString(), req.Username, hashedPassword, req.Email, model.PersonalData{
		FullName:  req.FullName,
		BirthDate: req.BirthDate,
		Gender:    req.Gender,
		Phone:     req.Phone,
	})

	created, err := h.userRepo.Create(r.Context(), user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			logger.Warn("[Register] 用户名已存在", logger.String("username", req.Username))
			writeError(w, http.StatusConflict, "User with this username already exists")
			return
		}
		logger.Error("[Register] 创建用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error during registration")
		return
	}

	logger.Info("[Register] 注册成功", logger.String("username", created.Username), logger.String("userID", created.ID))
	writeSuccess(w, http.StatusCreated, "User registered successfully", map[string]interface{}{
		"user": created.Summary(),
	})
}

// LoginHandler handles user login requests
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.userRepo.FindByUsername(r.Context(), req.Username)
	if err != nil {
		logger.Error("[Login] 查询用户失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}
	if user == nil {
		logger.Warn("[Login] 用户不存在", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.Warn("[Login] 密码验证失败", logger.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	h.userRepo.UpdateLastLogin(r.Context(), user.ID)
	h.invalidateIdentity(r.Context(), user.ID)

	token, err := h.tokens.Issue(user.ID, user.Username)
	if err != nil {
		logger.Error("[Login] 生成Token失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "Server error during login")
		return
	}

	logger.Info("[Login] 登录成功", logger.String("username", user.Username))
	writeSuccess(w, http.StatusOK, "Login successful", map[string]interface{}{
		"token": token,
		"user":  user.LoginView(),
	})
}

// MeHandler returns the identity resolved from the access token.
func (h *APIHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token not provided")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]interface{}{
		"user": user,
	})
}

// ProfileGreetingHandler is a demonstration of a protected route.
func (h *APIHandler) ProfileGreetingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Access token not provided")
		return
	}
	writeSuccess(w, http.StatusOK, fmt.Sprintf("Welcome, %s!", user.Username), map[string]interface{}{
		"secretData": "This data is only available to authenticated users",
		"user":       user,
	})
}
