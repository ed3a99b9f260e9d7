package models

import "time"

// Patient is the registry entry for one clinic patient. The primary key is
// the clinic's own display id (e.g. "A1147"), not a surrogate.
type Patient struct {
	ID                   string    `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"not null" json:"name"`
	DateOfBirth          time.Time `gorm:"type:date;not null" json:"date_of_birth"`
	Address              string    `gorm:"not null" json:"address"`
	PhoneNumberPrimary   string    `gorm:"not null" json:"phone_number_primary"`
	PhoneNumberSecondary string    `json:"phone_number_secondary"`

	FatherName       string `json:"father_name"`
	FatherOccupation string `json:"father_occupation"`
	MotherName       string `json:"mother_name"`
	MotherOccupation string `json:"mother_occupation"`
	Para             string `json:"para"`

	Languages []string `gorm:"serializer:json" json:"languages"`

	Hospital           string   `json:"hospital"`
	Delivery           string   `json:"delivery"`
	BirthWeightKg      *float64 `json:"birth_weight_kg"`
	BirthLengthCm      *float64 `json:"birth_length_cm"`
	BirthOfcCm         *int     `json:"birth_ofc_cm"`
	G6pd               string   `json:"g6pd"`
	TshMlul            *int     `json:"tsh_mlul"`
	Feeding            string   `json:"feeding"`
	Allergies          string   `json:"allergies"`
	VaccinationSummary string   `json:"vaccination_summary"`
	OtherNotes         string   `json:"other_notes"`

	Visits []Visit `gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE" json:"visits,omitempty"`
}

// Visit is one consultation record.
type Visit struct {
	VisitID   int       `gorm:"primaryKey;autoIncrement" json:"visit_id"`
	PatientID string    `gorm:"not null;index" json:"patient_id"`
	Date      time.Time `gorm:"type:date;not null" json:"-"`
	Time      string    `gorm:"not null" json:"time"` // HH:MM:SS

	Weight      float64 `gorm:"not null" json:"weight"`
	AgeAtVisit  string  `json:"age_at_visit"`
	DoctorNotes string  `json:"doctor_notes"`
	FollowUp    string  `json:"follow_up"`

	TotalCharge   float64 `json:"total_charge"`
	PaymentMethod string  `json:"payment_method"`
	ReceiptNumber string  `json:"receipt_number"`

	MCDays      int        `json:"mc_days"`
	MCStartDate *time.Time `gorm:"type:date" json:"-"`
	MCEndDate   *time.Time `gorm:"type:date" json:"-"`

	Dispensations []Dispensation    `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"dispensations"`
	Attachments   []VisitAttachment `gorm:"foreignKey:VisitID;constraint:OnDelete:CASCADE" json:"attachments"`
}

// Dispensation is one medication line item on a visit. Position preserves the
// order the medicines were entered in; it is never re-sorted.
type Dispensation struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	VisitID      int    `gorm:"not null;index" json:"-"`
	Position     int    `gorm:"not null" json:"-"`
	MedicineName string `gorm:"not null" json:"medicine_name"`
	Instructions string `json:"instructions"`
	Quantity     string `gorm:"not null" json:"quantity"`
	Notes        string `json:"notes"`
	IsDispensed  bool   `json:"is_dispensed"`
}

// VisitAttachment is one stored file linked to a visit.
type VisitAttachment struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	VisitID          int    `gorm:"not null;index" json:"-"`
	OriginalFilename string `gorm:"not null" json:"original_filename"`
	FilePath         string `gorm:"not null" json:"file_path"`
	FileType         string `json:"file_type"`
}

// SystemConfig is a key-value configuration row (admin PIN hash, search
// limit).
type SystemConfig struct {
	Key   string `gorm:"primaryKey"`
	Value string
}

// Config keys.
const (
	ConfigAdminPIN    = "admin_pin"
	ConfigSearchLimit = "search_limit"
)
