package models

import (
	"time"

	"github.com/google/uuid"
)

// WeeklyReport is append-only; one row per user per week.
type WeeklyReport struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:weekly_reports_user_week_key" json:"user_id"`
	WeekStart      time.Time `gorm:"column:week_start;type:date;not null;uniqueIndex:weekly_reports_user_week_key" json:"week_start"`
	WeekEnd        time.Time `gorm:"column:week_end;type:date;not null" json:"week_end"`
	ReportHTML     string    `gorm:"column:report_html;not null" json:"report_html"`
	ReportText     string    `gorm:"column:report_text;not null" json:"report_text"`
	UsedSampleData bool      `gorm:"column:used_sample_data;not null;default:false" json:"used_sample_data"`
	GeneratedAt    time.Time `gorm:"column:generated_at;not null" json:"generated_at"`
}
