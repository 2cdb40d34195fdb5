package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/choreista/platform_be_chores/internal/models"
	"github.com/choreista/platform_be_chores/internal/services/mailer"
	"github.com/choreista/platform_be_chores/internal/utils"
)

type Config struct {
	JWTSecret  string
	ExpiresMin int
	BcryptCost int
}

type AuthService struct {
	DB     *gorm.DB
	Mailer mailer.Mailer
	cfg    Config
	now    func() time.Time
}

func NewAuthService(db *gorm.DB, m mailer.Mailer, cfg Config) *AuthService {
	if m == nil {
		m = mailer.LogMailer{}
	}
	return &AuthService{DB: db, Mailer: m, cfg: cfg, now: time.Now}
}

// Session is a user together with the bearer token that was just issued for them.
type Session struct {
	User  *models.User
	Token string
}

type RegisterInput struct {
	FirstName   string `json:"firstName" validate:"max=100"`
	LastName    string `json:"lastName" validate:"max=100"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,bcryptlen"`
	PhoneNumber string `json:"phoneNumber" validate:"max=30"`
	Role        string `json:"role"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates the account, its confirmation codes and a first session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	role := models.RoleWorker
	if in.Role != "" {
		r, ok := models.ParseRole(in.Role)
		if !ok {
			return nil, utils.ValidationError("Validation error", utils.FieldErrors{"role": {"role must be choreowner or worker"}})
		}
		role = r
	}

	db := s.DB.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	if count > 0 {
		return nil, emailTaken()
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, utils.InternalError(err)
	}

	user := &models.User{
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Email:             in.Email,
		PhoneNumber:       strings.TrimSpace(in.PhoneNumber),
		Password:          hash,
		Role:              role,
		RegisterCode:      utils.NewConfirmationCode(),
		ResetPasswordCode: utils.NewConfirmationCode(),
	}
	user.Notifications = datatypes.NewJSONType(models.DefaultNotifications())

	var token string
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		token, err = s.issueToken(tx, user)
		return err
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, emailTaken()
	}
	if err != nil {
		return nil, utils.InternalError(err)
	}

	if err := s.Mailer.SendCode(ctx, user.Email, user.RegisterCode); err != nil {
		utils.Logger.WithError(err).WithField("user_id", user.ID).Warn("register: send code failed")
	}
	if err := s.Mailer.AddContact(ctx, user.Email, user.FirstName, user.LastName); err != nil {
		utils.Logger.WithError(err).WithField("user_id", user.ID).Warn("register: add contact failed")
	}

	return &Session{User: user, Token: token}, nil
}

func emailTaken() error {
	return utils.ConflictError("Email already exists", utils.FieldErrors{"email": {"Email already exists"}})
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login issues an additional session; existing sessions stay valid.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", in.Email).First(&user).Error; err != nil {
		return nil, utils.NotFoundOr(err, "No such account")
	}
	if !utils.CheckPassword(user.Password, in.Password) {
		return nil, utils.AuthError("Unable to login")
	}

	token, err := s.issueToken(db, &user)
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return &Session{User: &user, Token: token}, nil
}

func (s *AuthService) issueToken(tx *gorm.DB, user *models.User) (string, error) {
	token, err := utils.SignJWT(s.cfg.JWTSecret, user.ID.String(), string(user.Role), s.cfg.ExpiresMin)
	if err != nil {
		return "", err
	}
	sess := models.Session{
		TokenHash: utils.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().UTC().Add(time.Duration(s.cfg.ExpiresMin) * time.Minute),
	}
	if err := tx.Create(&sess).Error; err != nil {
		return "", err
	}
	return token, nil
}

// Authenticate resolves a bearer token to its user. The token must carry a
// valid signature, be unexpired and still have a live session row.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, utils.AuthError("Please authenticate")
	}
	claims, err := utils.ParseJWT(s.cfg.JWTSecret, token)
	if err != nil {
		return nil, utils.AuthError("Please authenticate")
	}

	db := s.DB.WithContext(ctx)
	var sess models.Session
	if err := db.Where("token_hash = ?", utils.HashToken(token)).First(&sess).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.AuthError("Please authenticate")
		}
		return nil, utils.InternalError(err)
	}
	if sess.Expired(s.now()) || sess.UserID.String() != claims.UserID {
		return nil, utils.AuthError("Please authenticate")
	}

	var user models.User
	if err := db.First(&user, "id = ?", sess.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.AuthError("Please authenticate")
		}
		return nil, utils.InternalError(err)
	}
	return &user, nil
}

// Logout revokes exactly the presented token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	err := s.DB.WithContext(ctx).
		Where("token_hash = ?", utils.HashToken(token)).
		Delete(&models.Session{}).Error
	if err != nil {
		return utils.InternalError(err)
	}
	return nil
}

// LogoutAll revokes every session of userID.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
		return utils.InternalError(err)
	}
	return nil
}

// Confirm verifies the account with either the registration or the reset
// code. The code that matched is consumed.
func (s *AuthService) Confirm(ctx context.Context, userID uuid.UUID, code string) (*models.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, utils.ValidationError("Wrong confirmation code provided, please try again", nil)
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "User not found")
	}

	updates := map[string]interface{}{"is_verified": true}
	switch code {
	case user.RegisterCode:
		updates["register_code"] = ""
		user.RegisterCode = ""
	case user.ResetPasswordCode:
		updates["reset_password_code"] = ""
		user.ResetPasswordCode = ""
	default:
		return nil, utils.ValidationError("Wrong confirmation code provided, please try again", nil)
	}

	if err := db.Model(&user).Updates(updates).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	user.IsVerified = true
	return &user, nil
}

// ResendCode mails a fresh registration code.
func (s *AuthService) ResendCode(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, utils.NotFoundOr(err, "User not found")
	}

	user.RegisterCode = utils.NewConfirmationCode()
	if err := db.Model(&user).Update("register_code", user.RegisterCode).Error; err != nil {
		return nil, utils.InternalError(err)
	}
	if err := s.Mailer.SendCode(ctx, user.Email, user.RegisterCode); err != nil {
		return nil, utils.InternalError(err)
	}
	return &user, nil
}

// SendResetCode regenerates the reset code for email and mails it. Mail
// delivery is best effort.
func (s *AuthService) SendResetCode(ctx context.Context, email string) error {
	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return utils.NotFoundOr(err, "No account registered under that email")
	}

	code := utils.NewConfirmationCode()
	if err := db.Model(&user).Update("reset_password_code", code).Error; err != nil {
		return utils.InternalError(err)
	}
	if err := s.Mailer.SendCode(ctx, user.Email, code); err != nil {
		utils.Logger.WithError(err).WithField("user_id", user.ID).Warn("reset: send code failed")
	}
	return nil
}

type ResetPasswordInput struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=8,bcryptlen"`
}

// ResetPassword sets a new password, revokes every session and signs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	in.Code = strings.TrimSpace(in.Code)
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	if err := db.Where("email = ?", in.Email).First(&user).Error; err != nil {
		return nil, utils.NotFoundOr(err, "No account registered under that email")
	}
	if user.ResetPasswordCode == "" || user.ResetPasswordCode != in.Code {
		return nil, utils.ValidationError("Wrong confirmation code provided, please try again", nil)
	}

	hash, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, utils.InternalError(err)
	}

	var token string
	err = db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&user).Updates(map[string]interface{}{
			"password":            hash,
			"reset_password_code": "",
			"is_verified":         true,
		}).Error
		if err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		token, err = s.issueToken(tx, &user)
		return err
	})
	if err != nil {
		return nil, utils.InternalError(err)
	}
	user.Password = hash
	user.ResetPasswordCode = ""
	user.IsVerified = true
	return &Session{User: &user, Token: token}, nil
}

// SignInWithEmail finds or creates the account behind a verified federated
// identity and opens a session for it.
func (s *AuthService) SignInWithEmail(ctx context.Context, email, firstName, lastName string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, utils.ValidationError("Email is required", nil)
	}

	db := s.DB.WithContext(ctx)
	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, herr := utils.HashPassword(utils.RandomState(32), s.cfg.BcryptCost)
		if herr != nil {
			return nil, utils.InternalError(herr)
		}
		user = models.User{
			FirstName:  firstName,
			LastName:   lastName,
			Email:      email,
			Password:   hash,
			Role:       models.RoleWorker,
			IsVerified: true,
		}
		user.Notifications = datatypes.NewJSONType(models.DefaultNotifications())
		if err := db.Create(&user).Error; err != nil {
			return nil, utils.InternalError(err)
		}
	default:
		return nil, utils.InternalError(err)
	}

	token, err := s.issueToken(db, &user)
	if err != nil {
		return nil, utils.InternalError(err)
	}
	return &Session{User: &user, Token: token}, nil
}

// PurgeExpiredSessions deletes every session past its expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", s.now().UTC()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
