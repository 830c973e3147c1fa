package models

import "time"

// OTP is the single live one-time code for a mobile number.
type OTP struct {
	Mobile    string    `gorm:"primaryKey;size:32" bson:"_id" json:"mobile"`
	Code      string    `gorm:"column:otp;size:6;not null" bson:"otp" json:"-"`
	ExpiresAt time.Time `gorm:"not null" bson:"expiresAt" json:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// Expired reports whether the code is no longer usable at now.
func (o *OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

func (OTP) TableName() string {
	return "otps"
}
