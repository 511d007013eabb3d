package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"eskan-backend/internal/auth"
	"eskan-backend/internal/mailer"
	"eskan-backend/internal/models"
	"eskan-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// AccountService covers registration, sessions, passwords and the admin
// user directory.
type AccountService struct {
	db        *gorm.DB
	sessions  *auth.Sessions
	audit     *AuditRecorder
	notifier  *Notifier
	mail      mailer.Mailer
	templates mailer.Templates
	resetTTL  time.Duration
	log       logrus.FieldLogger
	now       func() time.Time
}

type AccountDeps struct {
	Sessions  *auth.Sessions
	Audit     *AuditRecorder
	Notifier  *Notifier
	Mailer    mailer.Mailer
	Templates mailer.Templates
	ResetTTL  time.Duration
	Logger    logrus.FieldLogger
}

func NewAccountService(db *gorm.DB, deps AccountDeps) *AccountService {
	log := deps.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &AccountService{
		db:        db,
		sessions:  deps.Sessions,
		audit:     deps.Audit,
		notifier:  deps.Notifier,
		mail:      deps.Mailer,
		templates: deps.Templates,
		resetTTL:  deps.ResetTTL,
		log:       log,
		now:       utcNow,
	}
	if s.audit == nil {
		s.audit = NewAuditRecorder(db, log)
	}
	if s.notifier == nil {
		s.notifier = NewNotifier(db, log)
	}
	if s.resetTTL <= 0 {
		s.resetTTL = time.Hour
	}
	return s
}

type Registration struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
	PhoneNumber     string
	UserType        models.UserType
}

type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	Email       *string
	FullName    *string
	PhoneNumber *string
	City        *string
	DateOfBirth *time.Time
}

type UserQuery struct {
	// Role filters by profile user_type.
	Role string
	// Status is active or inactive.
	Status string
	Search string
	Page   int
	Limit  int
}

// Register creates the account and its profile and opens a session.
func (s *AccountService) Register(ctx context.Context, r Registration, ip string) (*models.User, string, error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.UserType == "" {
		r.UserType = models.UserTypeTenant
	}

	fields := map[string]string{}
	if !usernamePattern.MatchString(r.Username) {
		fields["username"] = "may only contain letters, digits, dots, dashes and underscores"
	}
	if !strings.Contains(r.Email, "@") {
		fields["email"] = "invalid email address"
	}
	if err := utils.ValidatePasswordLength(r.Password); err != nil {
		fields["password"] = err.Error()
	} else if r.Password != r.PasswordConfirm {
		fields["password"] = "passwords do not match"
	}
	if r.UserType == models.UserTypeAdmin || !r.UserType.Valid() {
		fields["user_type"] = "must be one of tenant, landlord, agent, office"
	}
	phone := ""
	if strings.TrimSpace(r.PhoneNumber) != "" {
		if phone = utils.NormalizePhone(r.PhoneNumber); phone == "" {
			fields["phone_number"] = "invalid phone number"
		}
	}
	if len(fields) == 0 {
		if taken, err := s.exists(ctx, "username", r.Username); err != nil {
			return nil, "", err
		} else if taken {
			fields["username"] = "username already exists"
		}
		if taken, err := s.exists(ctx, "email", r.Email); err != nil {
			return nil, "", err
		} else if taken {
			fields["email"] = "email already registered"
		}
	}
	if len(fields) > 0 {
		return nil, "", FieldErrors(fields)
	}

	hash, err := utils.HashPassword(r.Password)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(r.FirstName),
		LastName:     strings.TrimSpace(r.LastName),
		IsActive:     true,
		Profile: &models.UserProfile{
			UserType:    r.UserType,
			FullName:    strings.TrimSpace(r.FirstName + " " + r.LastName),
			Email:       r.Email,
			PhoneNumber: phone,
		},
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	s.notifier.UserRegistered(ctx, user, user.Profile)
	s.audit.Activity(ctx, ActivityEntry{
		ActorID:     &user.ID,
		Action:      models.ActionCreateUser,
		ContentType: "user",
		ObjectID:    fmt.Sprint(user.ID),
		ObjectName:  user.Username,
		Description: "New account: " + user.Username,
		IPAddress:   ip,
	})
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "user_type": r.UserType}).Info("user registered")
	return user, token, nil
}

func (s *AccountService) Login(ctx context.Context, username, password string) (*models.User, string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", Unauthorized("invalid username or password")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}
	if ok, err := utils.VerifyPassword(password, user.PasswordHash); err != nil || !ok {
		return nil, "", Unauthorized("invalid username or password")
	}
	if !user.IsActive {
		return nil, "", Unauthorized("account is deactivated")
	}

	token, err := s.sessions.Start(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	profile, err := s.EnsureProfile(ctx, &user)
	if err != nil {
		return nil, "", err
	}
	now := s.now()
	profile.LastLoginAt = &now
	if err := s.db.WithContext(ctx).Model(profile).Update("last_login_at", now).Error; err != nil {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "error": err}).Warn("failed to stamp last login")
	}
	return &user, token, nil
}

func (s *AccountService) Logout(ctx context.Context, token string) error {
	return s.sessions.End(ctx, token)
}

// Authenticate resolves a bearer token into a viewer. Deactivated accounts
// are rejected even while their session is alive.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*Viewer, error) {
	userID, err := s.sessions.Authenticate(ctx, token)
	if err != nil {
		return nil, Unauthorized("invalid or expired token")
	}
	var user models.User
	err = s.db.WithContext(ctx).Preload("Profile").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, Unauthorized("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil, Unauthorized("account is deactivated")
	}
	profile, err := s.EnsureProfile(ctx, &user)
	if err != nil {
		return nil, err
	}
	return &Viewer{User: &user, Profile: profile}, nil
}

// EnsureProfile returns the user's profile, creating a tenant profile for
// accounts that predate profiles.
func (s *AccountService) EnsureProfile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	if user.Profile != nil {
		return user.Profile, nil
	}
	profile := models.UserProfile{
		UserID:   user.ID,
		UserType: models.UserTypeTenant,
		Email:    user.Email,
	}
	if user.IsStaff {
		profile.UserType = models.UserTypeAdmin
	}
	err := s.db.WithContext(ctx).
		Where(models.UserProfile{UserID: user.ID}).
		Attrs(profile).
		FirstOrCreate(&profile).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}
	user.Profile = &profile
	return &profile, nil
}

func (s *AccountService) ChangePassword(ctx context.Context, v *Viewer, oldPassword, newPassword, confirm string) error {
	if !v.Authenticated() {
		return Unauthorized("authentication required")
	}
	if ok, err := utils.VerifyPassword(oldPassword, v.User.PasswordHash); err != nil || !ok {
		return FieldErrors(map[string]string{"old_password": "current password is incorrect"})
	}
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	return s.setPassword(ctx, v.User, newPassword)
}

// RequestPasswordReset mails a single-use token. Unknown addresses succeed
// silently so the endpoint does not reveal which emails are registered.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if !user.IsActive {
		return nil
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.sessions.SaveResetToken(ctx, token, user.ID, s.resetTTL); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if s.mail == nil {
		return nil
	}
	msg := s.templates.PasswordReset(user.Email, user.DisplayName(), token, s.resetTTL)
	if err := s.mail.Send(ctx, msg); err != nil {
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "error": err}).Warn("failed to send password reset mail")
	}
	return nil
}

func (s *AccountService) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirm string) error {
	if err := validateNewPassword(newPassword, confirm); err != nil {
		return err
	}
	userID, ok, err := s.sessions.ConsumeResetToken(ctx, strings.TrimSpace(token))
	if err != nil {
		return fmt.Errorf("failed to check reset token: %w", err)
	}
	if !ok {
		return Validation("invalid or expired reset token")
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		return Validation("invalid or expired reset token")
	}
	return s.setPassword(ctx, &user, newPassword)
}

func (s *AccountService) UpdateMe(ctx context.Context, v *Viewer, in ProfileUpdate) (*models.User, error) {
	if !v.Authenticated() {
		return nil, Unauthorized("authentication required")
	}
	user := v.User
	profile, err := s.EnsureProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !strings.Contains(email, "@") {
			return nil, FieldErrors(map[string]string{"email": "invalid email address"})
		}
		if email != user.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, user.ID).Count(&count).Error; err != nil {
				return nil, fmt.Errorf("failed to check email: %w", err)
			}
			if count > 0 {
				return nil, FieldErrors(map[string]string{"email": "email already registered"})
			}
		}
		user.Email = email
		profile.Email = email
	}
	if in.PhoneNumber != nil {
		phone := ""
		if strings.TrimSpace(*in.PhoneNumber) != "" {
			if phone = utils.NormalizePhone(*in.PhoneNumber); phone == "" {
				return nil, FieldErrors(map[string]string{"phone_number": "invalid phone number"})
			}
		}
		profile.PhoneNumber = phone
	}
	if in.FirstName != nil {
		user.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		user.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.FullName != nil {
		profile.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.City != nil {
		profile.City = strings.TrimSpace(*in.City)
	}
	if in.DateOfBirth != nil {
		dob := in.DateOfBirth.UTC()
		profile.DateOfBirth = &dob
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Select("FirstName", "LastName", "Email").Updates(user).Error; err != nil {
			return err
		}
		return tx.Model(profile).Select("FullName", "Email", "PhoneNumber", "City", "DateOfBirth").Updates(profile).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

func (s *AccountService) SetDeviceToken(ctx context.Context, v *Viewer, token string) error {
	if !v.Authenticated() || v.Profile == nil {
		return Unauthorized("authentication required")
	}
	token = strings.TrimSpace(token)
	if err := s.db.WithContext(ctx).Model(v.Profile).Update("device_token", token).Error; err != nil {
		return fmt.Errorf("failed to store device token: %w", err)
	}
	v.Profile.DeviceToken = token
	return nil
}

func (s *AccountService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, Validation("username is required")
	}
	taken, err := s.exists(ctx, "username", username)
	return !taken, err
}

func (s *AccountService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, Validation("email is required")
	}
	taken, err := s.exists(ctx, "email", email)
	return !taken, err
}

func (s *AccountService) ListUsers(ctx context.Context, v *Viewer, q UserQuery) ([]models.User, int64, error) {
	if err := requireAdmin(v); err != nil {
		return nil, 0, err
	}
	page, limit := Paginate(q.Page, q.Limit)

	query := func() *gorm.DB {
		db := s.db.WithContext(ctx).Model(&models.User{})
		switch q.Status {
		case "active":
			db = db.Where("users.is_active = ?", true)
		case "inactive":
			db = db.Where("users.is_active = ?", false)
		}
		if q.Role != "" {
			db = db.Joins("JOIN user_profiles ON user_profiles.user_id = users.id").
				Where("user_profiles.user_type = ?", q.Role)
		}
		if term := strings.TrimSpace(q.Search); term != "" {
			like := "%" + strings.ToLower(term) + "%"
			db = db.Where("(LOWER(users.username) LIKE ? OR LOWER(users.first_name) LIKE ? OR LOWER(users.last_name) LIKE ? OR LOWER(users.email) LIKE ?)",
				like, like, like, like)
		}
		return db
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}
	var users []models.User
	err := query().Preload("Profile").
		Order("users.created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *AccountService) GetUser(ctx context.Context, v *Viewer, id uint) (*models.User, error) {
	if err := requireAdmin(v); err != nil {
		return nil, err
	}
	var user models.User
	err := s.db.WithContext(ctx).Preload("Profile").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, NotFound("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// SetUserStatus activates or deactivates an account. Admins cannot lock
// themselves out.
func (s *AccountService) SetUserStatus(ctx context.Context, v *Viewer, id uint, active bool) (*models.User, error) {
	user, err := s.GetUser(ctx, v, id)
	if err != nil {
		return nil, err
	}
	if !active && user.ID == v.User.ID {
		return nil, Conflict("you cannot deactivate your own account")
	}
	user.IsActive = active
	if err := s.db.WithContext(ctx).Model(user).Update("is_active", active).Error; err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "active": active, "admin_id": v.User.ID}).Info("user status updated")
	return user, nil
}

// CreateAdmin provisions a staff account with an admin profile.
func (s *AccountService) CreateAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, FieldErrors(map[string]string{"username": "invalid username"})
	}
	if err := utils.ValidatePasswordLength(password); err != nil {
		return nil, FieldErrors(map[string]string{"password": err.Error()})
	}
	if taken, err := s.exists(ctx, "username", username); err != nil {
		return nil, err
	} else if taken {
		return nil, FieldErrors(map[string]string{"username": "username already exists"})
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	email = strings.ToLower(strings.TrimSpace(email))
	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsStaff:      true,
		IsActive:     true,
		Profile:      &models.UserProfile{UserType: models.UserTypeAdmin, Email: email},
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, nil
}

func (s *AccountService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	user.PasswordHash = hash
	return nil
}

func (s *AccountService) exists(ctx context.Context, column, value string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where(column+" = ?", value).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", column, err)
	}
	return count > 0, nil
}

func validateNewPassword(password, confirm string) error {
	if err := utils.ValidatePasswordStrength(password); err != nil {
		return FieldErrors(map[string]string{"new_password": err.Error()})
	}
	if password != confirm {
		return FieldErrors(map[string]string{"new_password": "passwords do not match"})
	}
	return nil
}
