package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bryanlje/clinic/visitform"
)

// Client is the HTTP implementation of visitform.PersistenceGateway. It talks
// to the visits API and translates between the wire bodies and the form's
// in-memory record.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type attachmentBody struct {
	ID               int    `json:"id"`
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
}

type visitBody struct {
	VisitID       int                             `json:"visit_id"`
	PatientID     string                          `json:"patient_id"`
	Date          string                          `json:"date"`
	Time          string                          `json:"time"`
	Weight        float64                         `json:"weight"`
	AgeAtVisit    string                          `json:"age_at_visit"`
	DoctorNotes   string                          `json:"doctor_notes"`
	FollowUp      string                          `json:"follow_up"`
	TotalCharge   float64                         `json:"total_charge"`
	PaymentMethod string                          `json:"payment_method"`
	ReceiptNumber string                          `json:"receipt_number"`
	MCDays        int                             `json:"mc_days"`
	MCStartDate   *string                         `json:"mc_start_date"`
	MCEndDate     *string                         `json:"mc_end_date"`
	Dispensations []visitform.DispensationPayload `json:"dispensations"`
	Attachments   []attachmentBody                `json:"attachments"`
}

func (c *Client) CreateVisit(ctx context.Context, payload visitform.VisitPayload) (visitform.Record, error) {
	url := fmt.Sprintf("%s/api/v1/visits", c.baseURL)
	return c.sendVisit(ctx, http.MethodPost, url, payload, http.StatusCreated)
}

func (c *Client) UpdateVisit(ctx context.Context, visitID int, payload visitform.VisitPayload) (visitform.Record, error) {
	url := fmt.Sprintf("%s/api/v1/visits/%d", c.baseURL, visitID)
	return c.sendVisit(ctx, http.MethodPut, url, payload, http.StatusOK)
}

func (c *Client) DeleteVisit(ctx context.Context, visitID int) error {
	url := fmt.Sprintf("%s/api/v1/visits/%d", c.baseURL, visitID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *Client) UploadAttachment(ctx context.Context, visitID int, filename string, file io.Reader) (visitform.Attachment, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	if err := writer.Close(); err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to finish form: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/visits/%d/upload", c.baseURL, visitID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return visitform.Attachment{}, apiError(resp)
	}

	var uploaded attachmentBody
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		return visitform.Attachment{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return visitform.Attachment{
		ID:               uploaded.ID,
		OriginalFilename: uploaded.OriginalFilename,
		FilePath:         uploaded.FilePath,
	}, nil
}

func (c *Client) DeleteAttachment(ctx context.Context, attachmentID int) error {
	url := fmt.Sprintf("%s/api/v1/attachments/%d", c.baseURL, attachmentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

func (c *Client) sendVisit(ctx context.Context, method, url string, payload visitform.VisitPayload, wantStatus int) (visitform.Record, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return visitform.Record{}, fmt.Errorf("failed to marshal visit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return visitform.Record{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return visitform.Record{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		return visitform.Record{}, apiError(resp)
	}

	var body visitBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return visitform.Record{}, fmt.Errorf("failed to decode response: %w", err)
	}
	return toRecord(&body)
}

func toRecord(body *visitBody) (visitform.Record, error) {
	date, err := time.Parse(visitform.DateLayout, body.Date)
	if err != nil {
		return visitform.Record{}, fmt.Errorf("bad visit date in response: %w", err)
	}

	record := visitform.Record{
		VisitID:       body.VisitID,
		PatientID:     body.PatientID,
		Date:          date,
		TimeOfDay:     body.Time,
		Weight:        body.Weight,
		AgeAtVisit:    body.AgeAtVisit,
		DoctorNotes:   body.DoctorNotes,
		FollowUp:      body.FollowUp,
		TotalCharge:   body.TotalCharge,
		PaymentMethod: body.PaymentMethod,
		ReceiptNumber: body.ReceiptNumber,
		MCDays:        body.MCDays,
	}

	if body.MCStartDate != nil {
		start, err := time.Parse(visitform.DateLayout, *body.MCStartDate)
		if err != nil {
			return visitform.Record{}, fmt.Errorf("bad MC start date in response: %w", err)
		}
		record.MCStart = start
	}
	if body.MCEndDate != nil {
		end, err := time.Parse(visitform.DateLayout, *body.MCEndDate)
		if err != nil {
			return visitform.Record{}, fmt.Errorf("bad MC end date in response: %w", err)
		}
		record.MCEnd = end
	}

	for _, d := range body.Dispensations {
		record.Dispensations = append(record.Dispensations, visitform.Dispensation{
			MedicineName: d.MedicineName,
			Instructions: d.Instructions,
			Quantity:     d.Quantity,
			Notes:        d.Notes,
			IsDispensed:  d.IsDispensed,
		})
	}
	for _, a := range body.Attachments {
		record.Attachments = append(record.Attachments, visitform.Attachment{
			ID:               a.ID,
			OriginalFilename: a.OriginalFilename,
			FilePath:         a.FilePath,
		})
	}
	return record, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
