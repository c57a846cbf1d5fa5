// Package validation holds the field rules applied to registration and
// profile input. Absent optional fields are always valid; every violated
// rule is reported, not just the first one.
package validation

import (
	"errors"
	"regexp"
	"time"

	"medprofile/model"
)

const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6

	MinHeight = 50.0
	MaxHeight = 250.0
	MinWeight = 2.0
	MaxWeight = 300.0
)

// Violation messages returned to clients.
const (
	MsgUsernameTooShort = "Username must be at least 3 characters long"
	MsgUsernameTooLong  = "Username must be at most 50 characters long"
	MsgPasswordTooShort = "Password must be at least 6 characters long"
	MsgInvalidEmail     = "Invalid email format"
	MsgInvalidBirthDate = "Invalid birth date"
	MsgInvalidGender    = "Gender must be one of: male, female, other"
	MsgInvalidBloodType = "Invalid blood type"
	MsgInvalidHeight    = "Invalid height value (allowed 50-250 cm)"
	MsgInvalidWeight    = "Invalid weight value (allowed 2-300 kg)"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

	bloodTypes = map[string]struct{}{
		"A+": {}, "A-": {}, "B+": {}, "B-": {},
		"AB+": {}, "AB-": {}, "O+": {}, "O-": {},
	}
	genders = map[string]struct{}{
		model.GenderMale:   {},
		model.GenderFemale: {},
		model.GenderOther:  {},
	}

	minBirthDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

	birthDateLayouts = []string{"2006-01-02", time.RFC3339, time.RFC3339Nano}
)

// ErrEmptyBirthDate is returned by CalculateAge when no birth date is known.
var ErrEmptyBirthDate = errors.New("birth date is empty")

// RegistrationInput is the subset of the registration body that carries rules.
type RegistrationInput struct {
	Username  string
	Password  string
	Email     string
	BirthDate string
	Gender    string
}

// MedicalInput is the subset of a medical-profile body that carries rules.
type MedicalInput struct {
	BloodType string
	Height    float64
	Weight    float64
	BirthDate string
}

// Result is the outcome of ValidateMedicalProfile.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidateRegistration returns every rule the registration input violates.
func ValidateRegistration(in RegistrationInput) []string {
	var errs []string

	// length is counted in characters, not bytes
	usernameLen := len([]rune(in.Username))
	if usernameLen < MinUsernameLength {
		errs = append(errs, MsgUsernameTooShort)
	}
	if usernameLen > MaxUsernameLength {
		errs = append(errs, MsgUsernameTooLong)
	}
	if len([]rune(in.Password)) < MinPasswordLength {
		errs = append(errs, MsgPasswordTooShort)
	}
	if in.Email != "" && !IsValidEmail(in.Email) {
		errs = append(errs, MsgInvalidEmail)
	}
	if !IsValidBirthDate(in.BirthDate) {
		errs = append(errs, MsgInvalidBirthDate)
	}
	if !IsValidGender(in.Gender) {
		errs = append(errs, MsgInvalidGender)
	}
	return errs
}

// ValidateMedicalProfile applies the blood type, height, weight and birth
// date rules and collects all violations.
func ValidateMedicalProfile(in MedicalInput) Result {
	errs := []string{}
	if !IsValidBloodType(in.BloodType) {
		errs = append(errs, MsgInvalidBloodType)
	}
	if !IsValidHeight(in.Height) {
		errs = append(errs, MsgInvalidHeight)
	}
	if !IsValidWeight(in.Weight) {
		errs = append(errs, MsgInvalidWeight)
	}
	if !IsValidBirthDate(in.BirthDate) {
		errs = append(errs, MsgInvalidBirthDate)
	}
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

// IsValidEmail checks the basic local@domain.tld shape.
func IsValidEmail(v string) bool {
	return emailPattern.MatchString(v)
}

func IsValidBloodType(v string) bool {
	if v == "" {
		return true
	}
	_, ok := bloodTypes[v]
	return ok
}

func IsValidGender(v string) bool {
	if v == "" {
		return true
	}
	_, ok := genders[v]
	return ok
}

// IsValidHeight accepts zero (not provided) or 50..250 cm inclusive.
func IsValidHeight(v float64) bool {
	return v == 0 || (v >= MinHeight && v <= MaxHeight)
}

// IsValidWeight accepts zero (not provided) or 2..300 kg inclusive.
func IsValidWeight(v float64) bool {
	return v == 0 || (v >= MinWeight && v <= MaxWeight)
}

// IsValidBirthDate accepts an empty value or a date between 1900-01-01 and now.
func IsValidBirthDate(v string) bool {
	return isValidBirthDateAt(v, time.Now())
}

func isValidBirthDateAt(v string, now time.Time) bool {
	if v == "" {
		return true
	}
	d, err := ParseBirthDate(v)
	if err != nil {
		return false
	}
	// date-only values parse as UTC midnight, so today must compare as the whole calendar day
	latest := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, time.UTC)
	return !d.Before(minBirthDate) && !d.After(latest)
}

// ParseBirthDate parses a date-only (2006-01-02) or RFC3339 value.
func ParseBirthDate(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// CalculateAge returns the number of full years since birthDate.
func CalculateAge(birthDate string) (int, error) {
	if birthDate == "" {
		return 0, ErrEmptyBirthDate
	}
	birth, err := ParseBirthDate(birthDate)
	if err != nil {
		return 0, err
	}
	return ageAt(birth, time.Now()), nil
}

func ageAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
