package visitform

import (
	"errors"
	"testing"
)

func TestLedgerCommitRequiresNameAndQuantity(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Amoxicillin", Quantity: "14", IsDispensed: true},
	})

	l.StageEntry(Dispensation{MedicineName: "Paracetamol"})
	if err := l.Commit(); !errors.Is(err, ErrIncompleteDispensation) {
		t.Fatalf("Commit without quantity: got %v, want ErrIncompleteDispensation", err)
	}
	if l.Len() != 1 {
		t.Errorf("list changed on failed commit: len = %d, want 1", l.Len())
	}
	if l.EditIndex() != -1 {
		t.Errorf("cursor changed on failed commit: %d", l.EditIndex())
	}

	l.StageEntry(Dispensation{Quantity: "10"})
	if err := l.Commit(); !errors.Is(err, ErrIncompleteDispensation) {
		t.Fatalf("Commit without name: got %v, want ErrIncompleteDispensation", err)
	}
}

func TestLedgerCommitAppends(t *testing.T) {
	l := NewMedicationLedger(nil)

	l.StageEntry(Dispensation{MedicineName: "Paracetamol", Instructions: "TDS", Quantity: "10"})
	if err := l.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	l.StageEntry(Dispensation{MedicineName: "Cetirizine", Quantity: "5"})
	if err := l.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].MedicineName != "Paracetamol" || entries[1].MedicineName != "Cetirizine" {
		t.Errorf("insertion order not preserved: %+v", entries)
	}
	for i, e := range entries {
		if !e.IsDispensed {
			t.Errorf("entry %d not marked dispensed", i)
		}
	}
	if d := l.Draft(); d.MedicineName != "" || d.Quantity != "" {
		t.Errorf("scratch buffer not cleared after commit: %+v", d)
	}
}

func TestLedgerEditRoundTrip(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
		{MedicineName: "Cetirizine", Quantity: "5", IsDispensed: true},
	})

	if err := l.BeginEdit(1); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	if l.Draft().MedicineName != "Cetirizine" {
		t.Fatalf("draft = %+v, want copy of entry 1", l.Draft())
	}

	// Committing without changing anything keeps the list identical
	if err := l.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if l.Len() != 2 {
		t.Errorf("len = %d after no-op edit, want 2", l.Len())
	}
	if got := l.Entries()[1]; got.MedicineName != "Cetirizine" || got.Quantity != "5" {
		t.Errorf("entry 1 changed: %+v", got)
	}
	if l.EditIndex() != -1 {
		t.Errorf("cursor not cleared after commit: %d", l.EditIndex())
	}
}

func TestLedgerEditReplaces(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
	})

	if err := l.BeginEdit(0); err != nil {
		t.Fatalf("BeginEdit: %v", err)
	}
	d := l.Draft()
	d.Quantity = "20"
	l.StageEntry(d)
	if err := l.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1 (replace, not append)", l.Len())
	}
	if got := l.Entries()[0].Quantity; got != "20" {
		t.Errorf("quantity = %q, want %q", got, "20")
	}
}

func TestLedgerCancelEdit(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
	})

	l.BeginEdit(0)
	l.StageEntry(Dispensation{MedicineName: "Ibuprofen", Quantity: "6"})
	l.CancelEdit()

	if l.EditIndex() != -1 {
		t.Errorf("cursor = %d after cancel, want -1", l.EditIndex())
	}
	if l.Draft().MedicineName != "" {
		t.Errorf("scratch buffer survived cancel: %+v", l.Draft())
	}
	if got := l.Entries()[0].MedicineName; got != "Paracetamol" {
		t.Errorf("list mutated by cancel: %q", got)
	}
}

func TestLedgerRemoveUnderEditCancels(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
		{MedicineName: "Cetirizine", Quantity: "5", IsDispensed: true},
	})

	l.BeginEdit(1)
	if err := l.Remove(1); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	if l.Len() != 1 {
		t.Errorf("len = %d, want 1", l.Len())
	}
	if l.EditIndex() != -1 {
		t.Errorf("edit not cancelled by removal: cursor = %d", l.EditIndex())
	}
	if l.Draft().MedicineName != "" {
		t.Errorf("scratch buffer survived removal: %+v", l.Draft())
	}
}

func TestLedgerRemoveBeforeCursorKeepsEntryUnderEdit(t *testing.T) {
	l := NewMedicationLedger([]Dispensation{
		{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
		{MedicineName: "Cetirizine", Quantity: "5", IsDispensed: true},
	})

	l.BeginEdit(1)
	if err := l.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if l.EditIndex() != 0 {
		t.Errorf("cursor = %d, want 0 (still pointing at Cetirizine)", l.EditIndex())
	}
}
