package visitform

import (
	"context"
	"errors"
	"io"
	"math"
	"time"
)

// Payment methods accepted on the wire.
const (
	PaymentCash   = "Cash"
	PaymentTnG    = "TnG"
	PaymentOnline = "Online"
)

// FollowUpOptions is the fixed suggestion list for the follow-up field. The
// field itself stays free text.
var FollowUpOptions = []string{
	"No follow-up needed",
	"Review in 3 days",
	"Review in 1 week",
	"Review in 2 weeks",
	"Review in 1 month",
	"Refer if no improvement",
}

// State is the form's lifecycle position.
type State int

const (
	Viewing State = iota
	Editing
	Saving
)

var (
	ErrNotEditing       = errors.New("form is not in editing state")
	ErrNotViewing       = errors.New("form is not in viewing state")
	ErrInvalidPayment   = errors.New("payment method must be Cash, TnG or Online")
	ErrNegativeWeight   = errors.New("weight cannot be negative")
	ErrMCEndBeforeStart = errors.New("mc end date is before its start date")
)

// Attachment is a stored file reference on a visit record. Existing
// attachments are removed via an immediate separate call, never batched with
// the visit save.
type Attachment struct {
	ID               int
	OriginalFilename string
	FilePath         string
}

// Record is one consultation record as the form sees it. VisitID is zero
// until the backend assigns one on first save.
type Record struct {
	VisitID       int
	PatientID     string
	Date          time.Time
	TimeOfDay     string // "HH:MM" while editing, "HH:MM:SS" after save
	Weight        float64
	AgeAtVisit    string // frozen snapshot, recomputed only while the date field is edited
	DoctorNotes   string
	FollowUp      string
	TotalCharge   float64
	PaymentMethod string
	ReceiptNumber string
	MCDays        int
	MCStart       time.Time
	MCEnd         time.Time
	Dispensations []Dispensation
	Attachments   []Attachment
}

type fileSelection struct {
	filename string
	data     io.Reader
}

// Form is the visit-record edit state machine. It owns one record's working
// state for its lifetime and reconciles the medication ledger, the MC range
// resolver, the age snapshot and the optional file selection into a single
// save call against the gateway.
type Form struct {
	gateway    PersistenceGateway
	patientDOB time.Time // zero when unknown; age snapshot is then left alone

	state  State
	record Record

	work    Record
	ledger  *MedicationLedger
	mc      MCRange
	newFile *fileSelection
}

// NewForm opens a form for a brand new visit. Defaults follow the entry
// screen: today's date, the current time, Cash payment, age snapshot taken
// from the patient's date of birth. The form starts in Editing.
func NewForm(gateway PersistenceGateway, patientID string, patientDOB time.Time, now time.Time) *Form {
	rec := Record{
		PatientID:     patientID,
		Date:          time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		TimeOfDay:     now.Format("15:04"),
		PaymentMethod: PaymentCash,
	}
	if !patientDOB.IsZero() {
		rec.AgeAtVisit = AgeAt(patientDOB, rec.Date)
	}

	f := &Form{gateway: gateway, patientDOB: patientDOB, record: rec}
	f.enterEditing()
	return f
}

// OpenForm wraps an existing record read-only; call BeginEdit to mutate it.
func OpenForm(gateway PersistenceGateway, record Record, patientDOB time.Time) *Form {
	return &Form{gateway: gateway, patientDOB: patientDOB, state: Viewing, record: record}
}

func (f *Form) State() State { return f.state }

// Record returns the last committed record.
func (f *Form) Record() Record { return f.record }

// Working returns the editable working copy with the ledger and resolver
// folded back in, for display while editing. Outside Editing it falls back
// to the committed record.
func (f *Form) Working() Record {
	if f.state == Viewing || f.ledger == nil {
		return f.record
	}
	w := f.work
	w.Dispensations = f.ledger.Entries()
	w.MCDays = f.mc.Days
	w.MCStart = f.mc.Start
	w.MCEnd = f.mc.End
	return w
}

// Ledger exposes the medication ledger while editing.
func (f *Form) Ledger() *MedicationLedger { return f.ledger }

// MCManual reports whether the resolver is in manual override mode.
func (f *Form) MCManual() bool { return f.mc.Manual }

// BeginEdit snapshots the current record into editable working state,
// including re-deriving whether MC manual mode should default on.
func (f *Form) BeginEdit() error {
	if f.state != Viewing {
		return ErrNotViewing
	}
	f.enterEditing()
	return nil
}

func (f *Form) enterEditing() {
	f.work = f.record
	f.ledger = NewMedicationLedger(f.record.Dispensations)
	f.mc = LoadMCRange(f.record.MCDays, f.record.MCStart, f.record.MCEnd)
	f.newFile = nil
	f.state = Editing
}

// Cancel discards all working-state changes, including any staged-but-
// uncommitted medication entry and any selected-but-unuploaded file.
func (f *Form) Cancel() error {
	if f.state != Editing {
		return ErrNotEditing
	}
	f.ledger = nil
	f.newFile = nil
	f.state = Viewing
	return nil
}

// SetDate changes the visit date and re-derives the age snapshot from the
// patient's date of birth. This is the only path that recomputes the
// otherwise frozen age_at_visit string.
func (f *Form) SetDate(d time.Time) {
	if f.state != Editing {
		return
	}
	f.work.Date = d
	if !f.patientDOB.IsZero() {
		f.work.AgeAtVisit = AgeAt(f.patientDOB, d)
	}
}

func (f *Form) SetTime(hhmm string) {
	if f.state != Editing {
		return
	}
	f.work.TimeOfDay = hhmm
}

func (f *Form) SetWeight(kg float64) {
	if f.state != Editing {
		return
	}
	f.work.Weight = kg
}

func (f *Form) SetDoctorNotes(notes string) {
	if f.state != Editing {
		return
	}
	f.work.DoctorNotes = notes
}

func (f *Form) SetFollowUp(followUp string) {
	if f.state != Editing {
		return
	}
	f.work.FollowUp = followUp
}

// SetTotalCharge stores the charge rounded to 2 decimal places, mirroring the
// on-blur rounding of the charge field.
func (f *Form) SetTotalCharge(amount float64) {
	if f.state != Editing {
		return
	}
	f.work.TotalCharge = round2(amount)
}

func (f *Form) SetPaymentMethod(method string) error {
	if f.state != Editing {
		return ErrNotEditing
	}
	switch method {
	case PaymentCash, PaymentTnG, PaymentOnline:
		f.work.PaymentMethod = method
		return nil
	}
	return ErrInvalidPayment
}

func (f *Form) SetReceiptNumber(number string) {
	if f.state != Editing {
		return
	}
	f.work.ReceiptNumber = number
}

// SetMCDays changes the certificate day count. When no start date has been
// picked yet the visit date stands in for it, so a plain "5 days" entry
// resolves against the consultation day.
func (f *Form) SetMCDays(days int) {
	if f.state != Editing {
		return
	}
	if f.mc.Start.IsZero() && days > 0 {
		f.mc.Start = f.work.Date
	}
	f.mc.SetDays(days)
}

func (f *Form) SetMCStart(start time.Time) {
	if f.state != Editing {
		return
	}
	f.mc.SetStart(start)
}

func (f *Form) SetMCEnd(end time.Time) {
	if f.state != Editing {
		return
	}
	f.mc.SetEnd(end)
}

func (f *Form) SetMCManual(on bool) {
	if f.state != Editing {
		return
	}
	f.mc.SetManual(on)
}

// SelectFile stages one file to upload after the next successful save. At
// most one new file may be added per save; selecting again replaces the
// previous choice.
func (f *Form) SelectFile(filename string, data io.Reader) {
	if f.state != Editing {
		return
	}
	f.newFile = &fileSelection{filename: filename, data: data}
}

func (f *Form) ClearFile() {
	f.newFile = nil
}

// RemoveAttachment deletes one existing attachment immediately, independent
// of the save pipeline. Local state only changes once the call succeeds.
func (f *Form) RemoveAttachment(ctx context.Context, attachmentID int) error {
	if err := f.gateway.DeleteAttachment(ctx, attachmentID); err != nil {
		return err
	}
	f.record.Attachments = withoutAttachment(f.record.Attachments, attachmentID)
	if f.state == Editing {
		f.work.Attachments = withoutAttachment(f.work.Attachments, attachmentID)
	}
	return nil
}

// Validate runs the checks the save confirmation prompt re-validates before
// it is allowed to open.
func (f *Form) Validate() error {
	if f.state != Editing {
		return ErrNotEditing
	}
	if f.work.Weight < 0 {
		return ErrNegativeWeight
	}
	switch f.work.PaymentMethod {
	case PaymentCash, PaymentTnG, PaymentOnline:
	default:
		return ErrInvalidPayment
	}
	if f.mc.Days > 0 && !f.mc.Start.IsZero() && !f.mc.End.IsZero() && f.mc.End.Before(f.mc.Start) {
		return ErrMCEndBeforeStart
	}
	return nil
}

// BuildPayload assembles the normalized wire body: seconds appended to the
// time, charge and weight rounded to 2dp, MC dates collapsed to null when the
// day count is zero, ledger entries mapped with is_dispensed always true.
func (f *Form) BuildPayload() VisitPayload {
	p := VisitPayload{
		PatientID:     f.work.PatientID,
		Date:          f.work.Date.Format(DateLayout),
		Time:          normalizeTime(f.work.TimeOfDay),
		Weight:        round2(f.work.Weight),
		AgeAtVisit:    f.work.AgeAtVisit,
		DoctorNotes:   f.work.DoctorNotes,
		FollowUp:      f.work.FollowUp,
		TotalCharge:   round2(f.work.TotalCharge),
		PaymentMethod: f.work.PaymentMethod,
		ReceiptNumber: f.work.ReceiptNumber,
		MCDays:        f.mc.Days,
		Dispensations: []DispensationPayload{},
	}

	if f.mc.Days > 0 {
		if !f.mc.Start.IsZero() {
			s := f.mc.Start.Format(DateLayout)
			p.MCStartDate = &s
		}
		if !f.mc.End.IsZero() {
			e := f.mc.End.Format(DateLayout)
			p.MCEndDate = &e
		}
	}

	for _, d := range f.ledger.Entries() {
		p.Dispensations = append(p.Dispensations, DispensationPayload{
			MedicineName: d.MedicineName,
			Instructions: d.Instructions,
			Quantity:     d.Quantity,
			Notes:        d.Notes,
			IsDispensed:  true,
		})
	}

	return p
}

// Save runs the two-step commit: one create-or-update call with the
// normalized payload, then, only if that succeeded and a new file was
// selected, one upload scoped to the now-known visit id.
//
// A primary failure returns the form to Editing with every edit intact. An
// upload failure is returned as *UploadError: the visit is already persisted
// and the form lands in Viewing, so the user must re-open edit and re-attach.
// The save affordance must stay disabled while the form reports Saving.
func (f *Form) Save(ctx context.Context) error {
	if err := f.Validate(); err != nil {
		return err
	}

	payload := f.BuildPayload()
	pending := f.newFile
	f.state = Saving

	var saved Record
	var err error
	if f.work.VisitID == 0 {
		saved, err = f.gateway.CreateVisit(ctx, payload)
	} else {
		saved, err = f.gateway.UpdateVisit(ctx, f.work.VisitID, payload)
	}
	if err != nil {
		f.state = Editing
		return err
	}

	f.record = saved
	f.work = Record{}
	f.ledger = nil
	f.newFile = nil
	f.state = Viewing

	if pending != nil {
		att, upErr := f.gateway.UploadAttachment(ctx, saved.VisitID, pending.filename, pending.data)
		if upErr != nil {
			return &UploadError{VisitID: saved.VisitID, Err: upErr}
		}
		f.record.Attachments = append(f.record.Attachments, att)
	}

	return nil
}

// Delete removes the whole visit. Independent of the save pipeline and only
// valid from Viewing.
func (f *Form) Delete(ctx context.Context) error {
	if f.state != Viewing {
		return ErrNotViewing
	}
	if f.record.VisitID == 0 {
		return errors.New("visit has never been saved")
	}
	return f.gateway.DeleteVisit(ctx, f.record.VisitID)
}

func withoutAttachment(list []Attachment, id int) []Attachment {
	out := list[:0:0]
	for _, a := range list {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}

func normalizeTime(t string) string {
	if len(t) == 5 {
		return t + ":00"
	}
	return t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
