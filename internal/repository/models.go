package repository

import (
	"time"

	"github.com/kursadbilgin/notify-relay/internal/domain"
)

// NotificationCheckModel is the persistence model for the notification_check table.
type NotificationCheckModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	DmID        int64     `gorm:"column:dm_id;not null;index"`
	NotifyCheck int       `gorm:"column:notify_check;not null"`
	CrDate      time.Time `gorm:"column:cr_date;not null"`
	UpdateDate  time.Time `gorm:"column:update_date;not null"`
}

func (NotificationCheckModel) TableName() string {
	return "notification_check"
}

// APILogModel is the persistence model for api_logs.
type APILogModel struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	Endpoint        string    `gorm:"column:endpoint;type:varchar(255);not null"`
	Method          string    `gorm:"column:method;type:varchar(10);not null"`
	RequestPayload  string    `gorm:"column:request_payload;type:text"`
	ResponsePayload string    `gorm:"column:response_payload;type:text"`
	StatusCode      int       `gorm:"column:status_code;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;not null"`
}

func (APILogModel) TableName() string {
	return "api_logs"
}

func notificationCheckModelFromDomain(n *domain.NotificationCheck) *NotificationCheckModel {
	if n == nil {
		return nil
	}

	return &NotificationCheckModel{
		ID:          n.ID,
		DmID:        n.DmID,
		NotifyCheck: n.NotifyCheck,
		CrDate:      n.CrDate,
		UpdateDate:  n.UpdateDate,
	}
}

func apiLogModelFromDomain(l *domain.APILog) *APILogModel {
	if l == nil {
		return nil
	}

	return &APILogModel{
		ID:              l.ID,
		Endpoint:        l.Endpoint,
		Method:          l.Method,
		RequestPayload:  l.RequestPayload,
		ResponsePayload: l.ResponsePayload,
		StatusCode:      l.StatusCode,
		CreatedAt:       l.CreatedAt,
	}
}

func apiLogModelToDomain(m *APILogModel) *domain.APILog {
	if m == nil {
		return nil
	}

	return &domain.APILog{
		ID:              m.ID,
		Endpoint:        m.Endpoint,
		Method:          m.Method,
		RequestPayload:  m.RequestPayload,
		ResponsePayload: m.ResponsePayload,
		StatusCode:      m.StatusCode,
		CreatedAt:       m.CreatedAt,
	}
}
