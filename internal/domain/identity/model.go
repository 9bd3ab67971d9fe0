package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olawuwo-abideen/healthcare/internal/platform/auth"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User maps to the users table. Password hash and reset token never leave
// the service.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Firstname       *string    `db:"firstname" json:"firstname,omitempty"`
	Lastname        *string    `db:"lastname" json:"lastname,omitempty"`
	Age             *int       `db:"age" json:"age,omitempty"`
	Email           string     `db:"email" json:"email"`
	PhoneNumber     string     `db:"phonenumber" json:"phonenumber"`
	UserImage       *string    `db:"userimage" json:"userimage,omitempty"`
	Gender          *string    `db:"gender" json:"gender,omitempty"`
	PasswordHash    string     `db:"password" json:"-"`
	Role            string     `db:"role" json:"role"`
	ResetToken      *string    `db:"reset_token" json:"-"`
	Specialization  *string    `db:"specialization" json:"specialization,omitempty"`
	ExperienceYears *int       `db:"experience_years" json:"experienceyears,omitempty"`
	ClinicAddress   *string    `db:"clinic_address" json:"clinicaddress,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
	DeletedAt       *time.Time `db:"deleted_at" json:"-"`
}

// FirstnameOrEmpty returns the first name, or "" when unset.
func (u *User) FirstnameOrEmpty() string {
	if u.Firstname == nil {
		return ""
	}
	return *u.Firstname
}

func (u *User) IsDoctor() bool  { return u.Role == auth.RoleDoctor }
func (u *User) IsPatient() bool { return u.Role == auth.RolePatient }

// Principal converts the user into the authenticated caller of a request.
func (u *User) Principal() *auth.Principal {
	return &auth.Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// -- Requests --

type SignupRequest struct {
	Firstname   string `json:"firstname" validate:"required,max=30"`
	Lastname    string `json:"lastname" validate:"required,max=30"`
	Email       string `json:"email" validate:"required,email,max=50"`
	PhoneNumber string `json:"phonenumber" validate:"required,phone"`
	Password    string `json:"password" validate:"required,min=6,max=72"`
	Role        string `json:"role" validate:"required,oneof=patient doctor"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

type UpdateProfileRequest struct {
	Firstname   string `json:"firstname" validate:"required,max=30"`
	Lastname    string `json:"lastname" validate:"required,max=30"`
	Age         int    `json:"age" validate:"required,max=150"`
	PhoneNumber string `json:"phonenumber" validate:"required,phone"`
	Gender      string `json:"gender" validate:"required,oneof=male female"`
}

type UpdateDoctorProfileRequest struct {
	UpdateProfileRequest
	Specialization  string `json:"specialization" validate:"required,max=100"`
	ExperienceYears int    `json:"experienceyears" validate:"min=0,max=80"`
	ClinicAddress   string `json:"clinicaddress" validate:"required"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token *auth.IssuedToken
	User  *User
}
