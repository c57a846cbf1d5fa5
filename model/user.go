package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Gender values accepted in PersonalData.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// User is a registered account together with its profile documents.
type User struct {
	ID             string         `json:"id" gorm:"primaryKey;size:36"`
	Username       string         `json:"username" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash   string         `json:"-" gorm:"column:password_hash;size:255;not null"` // never serialized
	Email          string         `json:"email" gorm:"size:255"`
	PersonalData   PersonalData   `json:"personalData" gorm:"type:json"`
	MedicalProfile MedicalProfile `json:"medicalProfile" gorm:"type:json"`
	IsActive       bool           `json:"isActive" gorm:"not null;default:true"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	LastLogin      *time.Time     `json:"lastLogin"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// PersonalData is replaced as a whole by the owning user.
type PersonalData struct {
	FullName         string `json:"fullName"`
	BirthDate        string `json:"birthDate"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	EmergencyContact string `json:"emergencyContact"`
}

// Scan 实现 sql.Scanner 接口
func (p *PersonalData) Scan(value interface{}) error {
	return scanJSON(value, p)
}

// Value 实现 driver.Valuer 接口
func (p PersonalData) Value() (driver.Value, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// MedicalProfile is replaced as a whole by the owning user. Height is in
// centimetres and weight in kilograms; zero means not provided.
type MedicalProfile struct {
	BloodType          string   `json:"bloodType"`
	Height             float64  `json:"height"`
	Weight             float64  `json:"weight"`
	ChronicDiseases    []string `json:"chronicDiseases"`
	Allergies          []string `json:"allergies"`
	CurrentMedications []string `json:"currentMedications"`
	Notes              string   `json:"notes"`
}

// Normalize replaces nil lists with empty ones so they encode as [].
func (m *MedicalProfile) Normalize() {
	if m.ChronicDiseases == nil {
		m.ChronicDiseases = []string{}
	}
	if m.Allergies == nil {
		m.Allergies = []string{}
	}
	if m.CurrentMedications == nil {
		m.CurrentMedications = []string{}
	}
}

// Scan 实现 sql.Scanner 接口
func (m *MedicalProfile) Scan(value interface{}) error {
	if err := scanJSON(value, m); err != nil {
		return err
	}
	m.Normalize()
	return nil
}

// Value 实现 driver.Valuer 接口
func (m MedicalProfile) Value() (driver.Value, error) {
	m.Normalize()
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func scanJSON(value interface{}, dst interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

// NewUser builds a fresh account with empty profile documents.
func NewUser(id, username, passwordHash, email string, personal PersonalData) *User {
	now := time.Now().UTC()
	u := &User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Email:        email,
		PersonalData: personal,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	u.MedicalProfile.Normalize()
	return u
}

// UserSummary is returned after registration.
type UserSummary struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PersonalData PersonalData `json:"personalData"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// LoginUser is the user part of a successful login response.
type LoginUser struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PersonalData PersonalData `json:"personalData"`
}

// Summary returns the registration view of u.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PersonalData: u.PersonalData,
		CreatedAt:    u.CreatedAt,
	}
}

// LoginView returns the login view of u.
func (u *User) LoginView() LoginUser {
	return LoginUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PersonalData: u.PersonalData,
	}
}

// WithoutNotes returns a copy of u with the medical notes blanked. This is the
// default read projection.
func (u *User) WithoutNotes() *User {
	c := *u
	c.MedicalProfile.Notes = ""
	c.MedicalProfile.Normalize()
	return &c
}
