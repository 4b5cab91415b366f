package model

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
)

// PushSubscription is a staff browser that receives dashboard counter pushes.
// Label is free text the staff member picks, e.g. "front desk tablet".
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey" json:"endpoint"`
	P256DH    string    `gorm:"column:p256dh;not null" json:"-"`
	Auth      string    `gorm:"not null" json:"-"`
	Label     string    `gorm:"size:80" json:"label,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"subscribed_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PushSubscription) TableName() string { return "staff_push_subscriptions" }

// WebPush returns the subscription in the form the push sender expects.
func (s PushSubscription) WebPush() *webpush.Subscription {
	return &webpush.Subscription{
		Endpoint: s.Endpoint,
		Keys:     webpush.Keys{P256dh: s.P256DH, Auth: s.Auth},
	}
}
