package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"car-listing-api-server/internal/auth"
	"car-listing-api-server/internal/database"
	"car-listing-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const avatarBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

type TokenIssuer interface {
	Generate(userID string) (string, error)
}

type AuthHandler struct {
	Users  UserStore
	Tokens TokenIssuer
	Log    *zap.Logger
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	switch {
	case req.Email == "" || req.Username == "" || req.Password == "":
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	case len(req.Password) < 6:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Password should be at least 6 characters long"})
		return
	case len(req.Username) < 3:
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username should be at least 3 characters long"})
		return
	}

	ctx := c.Request.Context()
	if taken, err := h.Users.ExistsByEmail(ctx, req.Email); err != nil {
		h.internalError(c, "Error in register route", err)
		return
	} else if taken {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Email already exists"})
		return
	}
	if taken, err := h.Users.ExistsByUsername(ctx, req.Username); err != nil {
		h.internalError(c, "Error in register route", err)
		return
	} else if taken {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Username already exists"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internalError(c, "Error hashing password", err)
		return
	}

	user := &models.User{
		Email:        req.Email,
		Username:     req.Username,
		Password:     hashed,
		ProfileImage: avatarBaseURL + url.QueryEscape(req.Username),
	}
	if err := h.Users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"message": "Email or username already exists"})
			return
		}
		h.internalError(c, "Error in register route", err)
		return
	}

	token, err := h.Tokens.Generate(user.ID.Hex())
	if err != nil {
		h.internalError(c, "Error generating token", err)
		return
	}

	c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "All fields are required"})
		return
	}

	user, err := h.Users.FindByEmail(c.Request.Context(), req.Email)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}
	if err != nil {
		h.internalError(c, "Error in login route", err)
		return
	}
	if !auth.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid credentials"})
		return
	}

	token, err := h.Tokens.Generate(user.ID.Hex())
	if err != nil {
		h.internalError(c, "Error generating token", err)
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func (h *AuthHandler) internalError(c *gin.Context, msg string, err error) {
	h.Log.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}
