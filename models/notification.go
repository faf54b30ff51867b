package models

import "time"

const (
	NotificationNewInvoice      = "new_invoice"
	NotificationPaymentReceived = "payment_received"
)

type Notification struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	Type      string    `gorm:"size:50;not null" json:"type"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName overrides the table name
func (Notification) TableName() string {
	return "notifications"
}
