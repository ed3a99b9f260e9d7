package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bryanlje/clinic/models"
	"github.com/bryanlje/clinic/monitoring"
	"github.com/bryanlje/clinic/utils"
	"github.com/bryanlje/clinic/visitform"
)

type VisitHandler struct {
	repo  models.Repository
	kafka utils.KafkaProducer
	files utils.FileStore
}

func NewVisitHandler(repo models.Repository, kafka utils.KafkaProducer, files utils.FileStore) *VisitHandler {
	return &VisitHandler{
		repo:  repo,
		kafka: kafka,
		files: files,
	}
}

type DispensationRequest struct {
	MedicineName string `json:"medicine_name" binding:"required"`
	Instructions string `json:"instructions"`
	Quantity     string `json:"quantity" binding:"required"`
	Notes        string `json:"notes"`
	IsDispensed  bool   `json:"is_dispensed"`
}

type VisitRequest struct {
	PatientID     string                `json:"patient_id" binding:"required"`
	Date          string                `json:"date" binding:"required,datetime=2006-01-02"`
	Time          string                `json:"time" binding:"required"`
	Weight        float64               `json:"weight" binding:"gte=0"`
	AgeAtVisit    string                `json:"age_at_visit"`
	DoctorNotes   string                `json:"doctor_notes"`
	FollowUp      string                `json:"follow_up"`
	TotalCharge   float64               `json:"total_charge" binding:"gte=0"`
	PaymentMethod string                `json:"payment_method" binding:"omitempty,oneof=Cash TnG Online"`
	ReceiptNumber string                `json:"receipt_number"`
	MCDays        int                   `json:"mc_days" binding:"gte=0"`
	MCStartDate   *string               `json:"mc_start_date"`
	MCEndDate     *string               `json:"mc_end_date"`
	Dispensations []DispensationRequest `json:"dispensations"`
}

type AttachmentResponse struct {
	ID               uint   `json:"id"`
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	FileType         string `json:"file_type"`
}

type VisitResponse struct {
	VisitID       int                   `json:"visit_id"`
	PatientID     string                `json:"patient_id"`
	Date          string                `json:"date"`
	Time          string                `json:"time"`
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
	Dispensations []DispensationRequest `json:"dispensations"`
	Attachments   []AttachmentResponse  `json:"attachments"`
}

func (h *VisitHandler) CreateVisit(c *gin.Context) {
	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	visit, err := visitFromRequest(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.repo.GetPatientByID(req.PatientID); err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.CreateVisit(visit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	monitoring.VisitSaves.WithLabelValues("created").Inc()

	resp := toVisitResponse(visit)
	if h.kafka != nil {
		go h.sendVisitEvent("visit_created", resp)
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *VisitHandler) UpdateVisit(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit ID format"})
		return
	}

	var req VisitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.repo.GetVisitByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	visit, err := visitFromRequest(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	visit.VisitID = existing.VisitID

	if err := h.repo.UpdateVisit(visit); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	monitoring.VisitSaves.WithLabelValues("updated").Inc()

	// Reload so the response carries attachments and ordered dispensations
	updated, err := h.repo.GetVisitByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := toVisitResponse(updated)
	if h.kafka != nil {
		go h.sendVisitEvent("visit_updated", resp)
	}

	c.JSON(http.StatusOK, resp)
}

func (h *VisitHandler) DeleteVisit(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit ID format"})
		return
	}

	visit, err := h.repo.GetVisitByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.DeleteVisit(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	monitoring.VisitSaves.WithLabelValues("deleted").Inc()

	// Stored files are cleaned up best-effort once the row is gone
	for _, att := range visit.Attachments {
		if err := h.files.Delete(att.FilePath); err != nil {
			log.Printf("Failed to delete attachment file %s: %v", att.FilePath, err)
		}
	}

	if h.kafka != nil {
		go h.sendVisitEvent("visit_deleted", gin.H{"visit_id": id, "patient_id": visit.PatientID})
	}

	c.Status(http.StatusNoContent)
}

// UploadAttachment accepts the single multipart file of the two-step save.
// It runs only after the visit row exists; a failure here leaves the visit
// intact and is reported as an upload failure, never rolled back.
func (h *VisitHandler) UploadAttachment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid visit ID format"})
		return
	}

	if _, err := h.repo.GetVisitByID(id); err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		monitoring.UploadFailures.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	path, err := h.files.Save(id, fileHeader.Filename, src)
	if err != nil {
		monitoring.UploadFailures.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	attachment := &models.VisitAttachment{
		VisitID:          id,
		OriginalFilename: fileHeader.Filename,
		FilePath:         path,
		FileType:         strings.TrimPrefix(filepath.Ext(fileHeader.Filename), "."),
	}
	if err := h.repo.AddAttachment(attachment); err != nil {
		monitoring.UploadFailures.Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, AttachmentResponse{
		ID:               attachment.ID,
		OriginalFilename: attachment.OriginalFilename,
		FilePath:         attachment.FilePath,
		FileType:         attachment.FileType,
	})
}

// DeleteAttachment removes one attachment independent of its parent visit.
// The stored file goes first; local state is only touched once the delete
// has succeeded server-side.
func (h *VisitHandler) DeleteAttachment(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attachment ID format"})
		return
	}

	attachment, err := h.repo.GetAttachmentByID(uint(id))
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "attachment not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.files.Delete(attachment.FilePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.DeleteAttachment(uint(id)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *VisitHandler) sendVisitEvent(eventType string, data interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	event := map[string]interface{}{
		"event": eventType,
		"data":  data,
	}
	if err := h.kafka.PublishEvent(ctx, utils.VisitEventsTopic, event); err != nil {
		log.Printf("Failed to send Kafka message: %v", err)
	}
}

// visitFromRequest normalizes the wire body into a model row: seconds forced
// onto the time, money rounded to 2dp, MC dates dropped whenever the day
// count is zero.
func visitFromRequest(req *VisitRequest) (*models.Visit, error) {
	date, err := time.Parse(visitform.DateLayout, req.Date)
	if err != nil {
		return nil, err
	}

	visit := &models.Visit{
		PatientID:     req.PatientID,
		Date:          date,
		Time:          normalizeTime(req.Time),
		Weight:        round2(req.Weight),
		AgeAtVisit:    req.AgeAtVisit,
		DoctorNotes:   req.DoctorNotes,
		FollowUp:      req.FollowUp,
		TotalCharge:   round2(req.TotalCharge),
		PaymentMethod: req.PaymentMethod,
		ReceiptNumber: req.ReceiptNumber,
		MCDays:        req.MCDays,
	}

	if req.MCDays > 0 {
		start, err := parseOptionalDate(req.MCStartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseOptionalDate(req.MCEndDate)
		if err != nil {
			return nil, err
		}
		if start != nil && end != nil && end.Before(*start) {
			return nil, visitform.ErrMCEndBeforeStart
		}
		visit.MCStartDate = start
		visit.MCEndDate = end
	}

	for _, d := range req.Dispensations {
		visit.Dispensations = append(visit.Dispensations, models.Dispensation{
			MedicineName: d.MedicineName,
			Instructions: d.Instructions,
			Quantity:     d.Quantity,
			Notes:        d.Notes,
			IsDispensed:  true,
		})
	}

	return visit, nil
}

func toVisitResponse(visit *models.Visit) VisitResponse {
	resp := VisitResponse{
		VisitID:       visit.VisitID,
		PatientID:     visit.PatientID,
		Date:          visit.Date.Format(visitform.DateLayout),
		Time:          visit.Time,
		Weight:        visit.Weight,
		AgeAtVisit:    visit.AgeAtVisit,
		DoctorNotes:   visit.DoctorNotes,
		FollowUp:      visit.FollowUp,
		TotalCharge:   visit.TotalCharge,
		PaymentMethod: visit.PaymentMethod,
		ReceiptNumber: visit.ReceiptNumber,
		MCDays:        visit.MCDays,
		Dispensations: []DispensationRequest{},
		Attachments:   []AttachmentResponse{},
	}

	if visit.MCStartDate != nil {
		s := visit.MCStartDate.Format(visitform.DateLayout)
		resp.MCStartDate = &s
	}
	if visit.MCEndDate != nil {
		e := visit.MCEndDate.Format(visitform.DateLayout)
		resp.MCEndDate = &e
	}

	for _, d := range visit.Dispensations {
		resp.Dispensations = append(resp.Dispensations, DispensationRequest{
			MedicineName: d.MedicineName,
			Instructions: d.Instructions,
			Quantity:     d.Quantity,
			Notes:        d.Notes,
			IsDispensed:  d.IsDispensed,
		})
	}
	for _, a := range visit.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:               a.ID,
			OriginalFilename: a.OriginalFilename,
			FilePath:         a.FilePath,
			FileType:         a.FileType,
		})
	}

	return resp
}

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(visitform.DateLayout, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
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
