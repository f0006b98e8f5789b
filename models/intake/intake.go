package intake

import (
	"time"

	"gorm.io/gorm"
)

// IntakeRequest represents one AI categorization request for a free-text
// service description.
type IntakeRequest struct {
	ID        uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID string `json:"request_id" gorm:"type:varchar(24);uniqueIndex;not null"`
	SubjectID string `json:"subject_id" gorm:"type:varchar(255);index;default:''"`

	Description string `json:"description" gorm:"type:text;not null"`
	Status      string `json:"status" gorm:"type:varchar(50);not null;default:'processing';index"` // processing, success, failed

	// Suggested fields extracted by the model
	ServiceType    string  `json:"service_type" gorm:"type:varchar(100);default:''"`
	Category       string  `json:"category" gorm:"type:varchar(100);default:''"`
	EstimatedHours float64 `json:"estimated_hours" gorm:"default:0"`

	ErrorMessage     string `json:"error_message" gorm:"type:text;default:''"`
	ProcessingTimeMs int64  `json:"processing_time_ms" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for IntakeRequest
func (IntakeRequest) TableName() string {
	return "intake_requests"
}

// BeforeCreate hook to set default values
func (ir *IntakeRequest) BeforeCreate(tx *gorm.DB) error {
	if ir.Status == "" {
		ir.Status = "processing"
	}
	return nil
}

// MarkAsSuccess marks the request as successful and saves the suggestion
func (ir *IntakeRequest) MarkAsSuccess(db *gorm.DB, s *Suggestion, processingTime int64) error {
	ir.Status = "success"
	ir.ServiceType = s.ServiceType
	ir.Category = s.Category
	ir.EstimatedHours = s.EstimatedHours
	ir.ProcessingTimeMs = processingTime

	return db.Save(ir).Error
}

// MarkAsFailed marks the request as failed with error message
func (ir *IntakeRequest) MarkAsFailed(db *gorm.DB, errorMsg string, processingTime int64) error {
	ir.Status = "failed"
	ir.ErrorMessage = errorMsg
	ir.ProcessingTimeMs = processingTime

	return db.Save(ir).Error
}

// Suggestion is the structured categorization extracted from a description.
type Suggestion struct {
	RequestID        string  `json:"request_id,omitempty"`
	ServiceType      string  `json:"service_type"`
	Category         string  `json:"category"`
	EstimatedHours   float64 `json:"estimated_hours"`
	ProcessingTimeMs int64   `json:"processing_time_ms,omitempty"`
}
