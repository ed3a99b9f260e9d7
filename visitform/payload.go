package visitform

// DispensationPayload is the wire shape of one medication line item.
type DispensationPayload struct {
	MedicineName string `json:"medicine_name"`
	Instructions string `json:"instructions"`
	Quantity     string `json:"quantity"`
	Notes        string `json:"notes"`
	IsDispensed  bool   `json:"is_dispensed"`
}

// VisitPayload is the single normalized body submitted on save, for both
// create and update. The visit id is carried in the URL, never in the body.
type VisitPayload struct {
	PatientID     string                `json:"patient_id"`
	Date          string                `json:"date"`
	Time          string                `json:"time"` // HH:MM:SS
	Weight        float64               `json:"weight"`
	AgeAtVisit    string                `json:"age_at_visit"`
	DoctorNotes   string                `json:"doctor_notes"`
	FollowUp      string                `json:"follow_up"`
	TotalCharge   float64               `json:"total_charge"`
	PaymentMethod string                `json:"payment_method"`
	ReceiptNumber string                `json:"receipt_number"`
	MCDays        int                   `json:"mc_days"`
	MCStartDate   *string               `json:"mc_start_date"`
	MCEndDate     *string               `json:"mc_end_date"`
	Dispensations []DispensationPayload `json:"dispensations"`
}
