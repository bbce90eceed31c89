package controllers

import (
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/greenify/greenify/config"
	"github.com/greenify/greenify/middleware"
	"github.com/greenify/greenify/models"
	"github.com/greenify/greenify/repository"
	"github.com/greenify/greenify/services"
	"github.com/greenify/greenify/utils"
)

var (
	errUsernameTaken = errors.New("username already taken")
	errEmailTaken    = errors.New("email already in use")
)

// AuthController handles registration, login and account management.
type AuthController struct {
	db    *gorm.DB
	locks *services.UserLocks
	cache services.StreakCache
}

// NewAuthController creates an AuthController. locks must be the table the
// entry service uses so account deletion cannot interleave with an upsert.
func NewAuthController(db *gorm.DB, locks *services.UserLocks, cache services.StreakCache) *AuthController {
	return &AuthController{db: db, locks: locks, cache: cache}
}

// Register creates an account and returns its public fields.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		// Only checked when captchas are enabled
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	if config.Get().CaptchaEnabled && !utils.VerifyCaptcha(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid or expired captcha")
		return
	}

	username := utils.SanitizeText(req.Username)
	if l := len([]rune(username)); l < 3 || l > 64 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-64 characters")
		return
	}
	email := utils.NormalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40002, "invalid email address")
		return
	}

	ip := ctx.ClientIP()
	if !utils.RegistrationAllowed(ctx.Request.Context(), ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily registration limit reached")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user := models.User{Username: username, Email: email, PasswordHash: hash}
	err = a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if taken, err := exists(tx, "username = ?", username); err != nil {
			return err
		} else if taken {
			return errUsernameTaken
		}
		if taken, err := exists(tx, "email = ?", email); err != nil {
			return err
		} else if taken {
			return errEmailTaken
		}
		return tx.Create(&user).Error
	})
	switch {
	case errors.Is(err, errUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, "Username already taken")
		return
	case errors.Is(err, errEmailTaken):
		utils.Error(ctx, http.StatusConflict, 40902, "Email already in use")
		return
	case err != nil:
		utils.L().Sugar().Errorf("register %s failed: %v", username, err)
		utils.Error(ctx, http.StatusInternalServerError, 50002, "failed to create user")
		return
	}

	utils.RegistrationRecorded(ctx.Request.Context(), ip)
	utils.Created(ctx, publicUser(user))
}

// Captcha returns a fresh captcha id and its image as a data URI.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"captcha_id": id, "image": image})
}

// Login verifies credentials and issues a token.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).Where("username = ?", utils.SanitizeText(req.Username)).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, expiresAt, err := utils.GenerateToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt,
		"user":       publicUser(user),
	})
}

// Logout revokes the bearer token until it would have expired.
func (a *AuthController) Logout(ctx *gin.Context) {
	a.revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the caller's account.
func (a *AuthController) Me(ctx *gin.Context) {
	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, publicUser(*user))
}

// ChangeUsername renames the caller.
func (a *AuthController) ChangeUsername(ctx *gin.Context) {
	var req struct {
		NewUsername string `json:"newUsername" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}
	username := utils.SanitizeText(req.NewUsername)
	if l := len([]rune(username)); l < 3 || l > 64 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3-64 characters")
		return
	}

	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	if user.Username == username {
		utils.Success(ctx, publicUser(*user))
		return
	}

	err := a.db.WithContext(ctx.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if taken, err := exists(tx, "username = ? AND id <> ?", username, user.ID); err != nil {
			return err
		} else if taken {
			return errUsernameTaken
		}
		user.Username = username
		return tx.Save(user).Error
	})
	if errors.Is(err, errUsernameTaken) {
		utils.Error(ctx, http.StatusConflict, 40901, "Username already taken")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to update username")
		return
	}
	utils.Success(ctx, publicUser(*user))
}

// ChangePassword replaces the caller's password and revokes the current token.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	var req struct {
		NewPassword string `json:"newPassword" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid request payload")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if errors.Is(err, utils.ErrPasswordTooShort) {
		utils.Error(ctx, http.StatusBadRequest, 40002, err.Error())
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	user, ok := a.currentUser(ctx)
	if !ok {
		return
	}
	if err := a.db.WithContext(ctx.Request.Context()).Model(user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to update password")
		return
	}
	a.revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "password updated"})
}

// Delete removes the caller together with all entries and the streak record.
func (a *AuthController) Delete(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}

	unlock := a.locks.Lock(userID)
	reqCtx := ctx.Request.Context()
	err := a.db.WithContext(reqCtx).Transaction(func(tx *gorm.DB) error {
		if err := repository.NewEntryStore(tx).DeleteUserEntries(reqCtx, userID); err != nil {
			return err
		}
		if err := repository.NewStreakStore(tx).DeleteStreak(reqCtx, userID); err != nil {
			return err
		}
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == nil {
		if cerr := a.cache.Invalidate(reqCtx, userID); cerr != nil {
			utils.L().Warn("streak cache invalidate failed", zap.Uint("user_id", userID), zap.Error(cerr))
		}
	}
	unlock()

	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to delete user")
		return
	}

	a.revokeCurrentToken(ctx)
	ctx.Status(http.StatusNoContent)
}

func (a *AuthController) currentUser(ctx *gin.Context) (*models.User, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return nil, false
	}
	return &user, true
}

func (a *AuthController) revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		return
	}
	expiresAt := time.Now().Add(utils.TokenTTL())
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
}

func exists(tx *gorm.DB, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := tx.Model(&models.User{}).Where(query, args...).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func publicUser(user models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"created_at": user.CreatedAt,
	}
}
