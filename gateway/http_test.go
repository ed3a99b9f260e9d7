package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bryanlje/clinic/visitform"
)

func strPtr(s string) *string { return &s }

func TestCreateVisitRoundTrip(t *testing.T) {
	var received visitform.VisitPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/visits" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(visitBody{
			VisitID:       42,
			PatientID:     received.PatientID,
			Date:          received.Date,
			Time:          received.Time,
			Weight:        received.Weight,
			TotalCharge:   received.TotalCharge,
			PaymentMethod: received.PaymentMethod,
			MCDays:        received.MCDays,
			MCStartDate:   received.MCStartDate,
			MCEndDate:     received.MCEndDate,
			Dispensations: received.Dispensations,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	record, err := client.CreateVisit(context.Background(), visitform.VisitPayload{
		PatientID:     "P0007",
		Date:          "2024-01-10",
		Time:          "14:30:00",
		Weight:        12.5,
		TotalCharge:   45.68,
		PaymentMethod: visitform.PaymentCash,
		MCDays:        3,
		MCStartDate:   strPtr("2024-01-10"),
		MCEndDate:     strPtr("2024-01-12"),
		Dispensations: []visitform.DispensationPayload{
			{MedicineName: "Paracetamol", Quantity: "10", IsDispensed: true},
		},
	})
	if err != nil {
		t.Fatalf("CreateVisit: %v", err)
	}

	if received.PatientID != "P0007" || received.Time != "14:30:00" {
		t.Errorf("sent payload = %+v", received)
	}
	if record.VisitID != 42 {
		t.Errorf("VisitID = %d, want 42", record.VisitID)
	}
	if got := record.MCStart.Format(visitform.DateLayout); got != "2024-01-10" {
		t.Errorf("MCStart = %s", got)
	}
	if got := record.MCEnd.Format(visitform.DateLayout); got != "2024-01-12" {
		t.Errorf("MCEnd = %s", got)
	}
	if len(record.Dispensations) != 1 || record.Dispensations[0].MedicineName != "Paracetamol" {
		t.Errorf("Dispensations = %+v", record.Dispensations)
	}
}

func TestUpdateVisitUsesPut(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/v1/visits/42" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(visitBody{VisitID: 42, PatientID: "P0007", Date: "2024-01-10", Time: "14:30:00"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	record, err := client.UpdateVisit(context.Background(), 42, visitform.VisitPayload{
		PatientID: "P0007",
		Date:      "2024-01-10",
		Time:      "14:30:00",
	})
	if err != nil {
		t.Fatalf("UpdateVisit: %v", err)
	}
	if record.VisitID != 42 {
		t.Errorf("VisitID = %d", record.VisitID)
	}
}

func TestServerErrorBodySurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "patient not found"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateVisit(context.Background(), visitform.VisitPayload{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "patient not found") {
		t.Errorf("error = %v, want the server message included", err)
	}
}

func TestUploadAttachmentSendsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/visits/42/upload" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()

		if header.Filename != "scan.pdf" {
			t.Errorf("filename = %q", header.Filename)
		}
		data, _ := io.ReadAll(file)
		if string(data) != "%PDF-1.4" {
			t.Errorf("content = %q", data)
		}

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(attachmentBody{
			ID:               9,
			OriginalFilename: header.Filename,
			FilePath:         "/uploads/42/ab12cd34_scan.pdf",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	attachment, err := client.UploadAttachment(context.Background(), 42, "scan.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("UploadAttachment: %v", err)
	}
	if attachment.ID != 9 || attachment.OriginalFilename != "scan.pdf" {
		t.Errorf("attachment = %+v", attachment)
	}
}

func TestDeleteVisitAndAttachment(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Errorf("method = %s", r.Method)
		}
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if err := client.DeleteVisit(context.Background(), 42); err != nil {
		t.Fatalf("DeleteVisit: %v", err)
	}
	if err := client.DeleteAttachment(context.Background(), 9); err != nil {
		t.Fatalf("DeleteAttachment: %v", err)
	}

	want := []string{"/api/v1/visits/42", "/api/v1/attachments/9"}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("request %d path = %q, want %q", i, paths[i], p)
		}
	}
}
