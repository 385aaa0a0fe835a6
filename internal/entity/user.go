package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleDonor   Role = "donor"
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

type BloodGroup string

const (
	BloodGroupAPos  BloodGroup = "A+"
	BloodGroupANeg  BloodGroup = "A-"
	BloodGroupBPos  BloodGroup = "B+"
	BloodGroupBNeg  BloodGroup = "B-"
	BloodGroupOPos  BloodGroup = "O+"
	BloodGroupONeg  BloodGroup = "O-"
	BloodGroupABPos BloodGroup = "AB+"
	BloodGroupABNeg BloodGroup = "AB-"
)

// BloodGroups is the fixed set in display order.
var BloodGroups = []BloodGroup{
	BloodGroupAPos, BloodGroupANeg,
	BloodGroupBPos, BloodGroupBNeg,
	BloodGroupOPos, BloodGroupONeg,
	BloodGroupABPos, BloodGroupABNeg,
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	Profile      *Profile  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

type Profile struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Name         string     `gorm:"size:200;not null" json:"name"`
	BloodGroup   BloodGroup `gorm:"size:3;not null;index" json:"blood_group"`
	City         string     `gorm:"size:100;not null" json:"city"`
	Role         Role       `gorm:"size:10;not null;default:'patient';index" json:"role"`
	EverDonated  bool       `gorm:"not null;default:false" json:"ever_donated"`
	LastDonation *time.Time `gorm:"type:date" json:"last_donation"`
	Bio          string     `gorm:"type:text" json:"bio"`
	PhotoURL     *string    `gorm:"type:text" json:"photo,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"date_created"`
	User         *User      `gorm:"foreignKey:UserID" json:"-"`
}

// NormalizeDonation enforces that last_donation is only set for someone who
// has donated.
func (p *Profile) NormalizeDonation() {
	if !p.EverDonated {
		p.LastDonation = nil
	}
}
