package visitform

import "errors"

var ErrIncompleteDispensation = errors.New("dispensation requires a medicine name and a quantity")

// Dispensation is one line item of medication given to a patient during a
// visit. Entries created through the form always carry IsDispensed = true.
type Dispensation struct {
	MedicineName string
	Instructions string
	Quantity     string
	Notes        string
	IsDispensed  bool
}

// MedicationLedger holds the ordered dispensation list of the visit being
// edited, plus a scratch draft and a single edit cursor. Order is insertion
// order and is never re-sorted.
type MedicationLedger struct {
	entries   []Dispensation
	draft     Dispensation
	editIndex int // -1 when no entry is under edit
}

func NewMedicationLedger(entries []Dispensation) *MedicationLedger {
	l := &MedicationLedger{editIndex: -1}
	l.entries = append(l.entries, entries...)
	return l
}

// Entries returns a copy of the committed list in insertion order.
func (l *MedicationLedger) Entries() []Dispensation {
	out := make([]Dispensation, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MedicationLedger) Len() int { return len(l.entries) }

// Draft returns the staged entry currently in the scratch buffer.
func (l *MedicationLedger) Draft() Dispensation { return l.draft }

// EditIndex returns the index under edit, or -1 when none is.
func (l *MedicationLedger) EditIndex() int { return l.editIndex }

// StageEntry places a pending entry in the scratch buffer. No validation
// happens until Commit.
func (l *MedicationLedger) StageEntry(d Dispensation) {
	l.draft = d
}

// Commit validates the scratch buffer and moves it into the list: a replace
// at the edit cursor when one is set, an append otherwise. On validation
// failure the list and cursor are left untouched.
func (l *MedicationLedger) Commit() error {
	if l.draft.MedicineName == "" || l.draft.Quantity == "" {
		return ErrIncompleteDispensation
	}

	entry := l.draft
	entry.IsDispensed = true

	if l.editIndex >= 0 {
		l.entries[l.editIndex] = entry
		l.editIndex = -1
	} else {
		l.entries = append(l.entries, entry)
	}

	l.draft = Dispensation{}
	return nil
}

// BeginEdit copies the entry at index into the scratch buffer and sets the
// cursor. Calling it again with a different index discards the previous
// scratch buffer without warning.
func (l *MedicationLedger) BeginEdit(index int) error {
	if index < 0 || index >= len(l.entries) {
		return errors.New("dispensation index out of range")
	}
	l.draft = l.entries[index]
	l.editIndex = index
	return nil
}

// CancelEdit clears the cursor and scratch buffer without touching the list.
func (l *MedicationLedger) CancelEdit() {
	l.editIndex = -1
	l.draft = Dispensation{}
}

// Remove deletes the entry at index. Removing the entry under edit implicitly
// cancels that edit.
func (l *MedicationLedger) Remove(index int) error {
	if index < 0 || index >= len(l.entries) {
		return errors.New("dispensation index out of range")
	}
	l.entries = append(l.entries[:index], l.entries[index+1:]...)
	if index == l.editIndex {
		l.CancelEdit()
	} else if l.editIndex > index {
		l.editIndex--
	}
	return nil
}
