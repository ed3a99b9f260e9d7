// Package recent keeps the small most-recently-opened patient list shown on
// the dashboard. It is a device-local convenience, layered as an MRU policy
// over an injected key-value store; nothing here implies server persistence.
package recent

import (
	"context"
	"encoding/json"
	"log"
)

const (
	storageKey = "clinic_recent_patients"
	maxRecents = 5
)

// Store is the key-value capability the list is persisted through. A missing
// key reads as the empty string.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Patient is the trimmed-down entry kept per recently opened patient. Only
// the fields the dashboard shows are stored, to keep the value small.
type Patient struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayID   string `json:"display_id"`
	DateOfBirth string `json:"date_of_birth"`
}

// List is a capped most-recently-used list of patients.
type List struct {
	store Store
}

func NewList(store Store) *List {
	return &List{store: store}
}

// Recent returns the list, most recent first. Read problems degrade to an
// empty list; recents are a convenience and never block the caller.
func (l *List) Recent(ctx context.Context) []Patient {
	raw, err := l.store.Get(ctx, storageKey)
	if err != nil {
		log.Printf("Error reading recent patients: %v", err)
		return nil
	}
	if raw == "" {
		return nil
	}

	var patients []Patient
	if err := json.Unmarshal([]byte(raw), &patients); err != nil {
		log.Printf("Error decoding recent patients: %v", err)
		return nil
	}
	return patients
}

// Add moves the patient to the front, dropping any previous occurrence, and
// trims the list to its cap.
func (l *List) Add(ctx context.Context, p Patient) error {
	recents := l.Recent(ctx)

	kept := make([]Patient, 0, len(recents)+1)
	kept = append(kept, p)
	for _, r := range recents {
		if r.ID != p.ID {
			kept = append(kept, r)
		}
	}
	if len(kept) > maxRecents {
		kept = kept[:maxRecents]
	}

	raw, err := json.Marshal(kept)
	if err != nil {
		return err
	}
	return l.store.Set(ctx, storageKey, string(raw))
}
