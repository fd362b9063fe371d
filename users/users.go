package users

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-portal-session/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Profile is the read-only snapshot of the logged in user as returned by the backend.
type Profile struct {
	ID            string        `json:"id" validate:"required"`
	FullName      string        `json:"fullName"`
	Email         string        `json:"email" validate:"required,email"`
	Role          RoleType      `json:"role" validate:"required"`
	AccountStatus AccountStatus `json:"accountStatus" validate:"required"`
	PhoneNumber   *string       `json:"phoneNumber,omitempty"`
	Industry      *string       `json:"industry,omitempty" validate:"omitempty,max=120"`
}

// Normalize canonicalises the role and account status in place and validates
// the required fields.
func (p *Profile) Normalize() error {
	if p == nil {
		return fmt.Errorf("[Profile.Normalize] nil profile")
	}

	role, err := ParseRole(string(p.Role))
	if err != nil {
		return fmt.Errorf("[Profile.Normalize] %w", err)
	}
	status, err := ParseAccountStatus(string(p.AccountStatus))
	if err != nil {
		return fmt.Errorf("[Profile.Normalize] %w", err)
	}
	p.Role = role
	p.AccountStatus = status
	p.Email = strings.TrimSpace(p.Email)

	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("[Profile.Normalize] %w", err)
	}
	return nil
}

// Clone returns a deep copy so callers can never mutate a shared snapshot.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.PhoneNumber = utils.Clone(p.PhoneNumber)
	c.Industry = utils.Clone(p.Industry)
	return &c
}

// Equal compares two profiles field by field, including optional fields.
func (p *Profile) Equal(o *Profile) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.ID == o.ID &&
		p.FullName == o.FullName &&
		p.Email == o.Email &&
		p.Role == o.Role &&
		p.AccountStatus == o.AccountStatus &&
		utils.Value(p.PhoneNumber) == utils.Value(o.PhoneNumber) &&
		utils.Value(p.Industry) == utils.Value(o.Industry)
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
