package handlers

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bryanlje/clinic/models"
	"github.com/bryanlje/clinic/recent"
	"github.com/bryanlje/clinic/utils"
	"github.com/bryanlje/clinic/visitform"
)

const patientIndex = "patients"

type PatientHandler struct {
	repo    models.Repository
	es      utils.ElasticsearchClient
	recents *recent.List
}

func NewPatientHandler(repo models.Repository, es utils.ElasticsearchClient, recents *recent.List) *PatientHandler {
	return &PatientHandler{
		repo:    repo,
		es:      es,
		recents: recents,
	}
}

type PatientRequest struct {
	ID                   string   `json:"id" binding:"required,min=2,max=20"`
	Name                 string   `json:"name" binding:"required,min=2,max=100"`
	DateOfBirth          string   `json:"date_of_birth" binding:"required,datetime=2006-01-02"`
	Address              string   `json:"address" binding:"required"`
	PhoneNumberPrimary   string   `json:"phone_number_primary" binding:"required"`
	PhoneNumberSecondary string   `json:"phone_number_secondary"`
	FatherName           string   `json:"father_name"`
	FatherOccupation     string   `json:"father_occupation"`
	MotherName           string   `json:"mother_name"`
	MotherOccupation     string   `json:"mother_occupation"`
	Para                 string   `json:"para"`
	Languages            []string `json:"languages"`
	Hospital             string   `json:"hospital"`
	Delivery             string   `json:"delivery"`
	BirthWeightKg        *float64 `json:"birth_weight_kg"`
	BirthLengthCm        *float64 `json:"birth_length_cm"`
	BirthOfcCm           *int     `json:"birth_ofc_cm"`
	G6pd                 string   `json:"g6pd"`
	TshMlul              *int     `json:"tsh_mlul"`
	Feeding              string   `json:"feeding"`
	Allergies            string   `json:"allergies"`
	VaccinationSummary   string   `json:"vaccination_summary"`
	OtherNotes           string   `json:"other_notes"`
}

type PatientSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DateOfBirth string `json:"date_of_birth"`
	Allergies   string `json:"allergies"`
}

type PatientResponse struct {
	PatientSummary
	Address              string          `json:"address"`
	PhoneNumberPrimary   string          `json:"phone_number_primary"`
	PhoneNumberSecondary string          `json:"phone_number_secondary"`
	FatherName           string          `json:"father_name"`
	FatherOccupation     string          `json:"father_occupation"`
	MotherName           string          `json:"mother_name"`
	MotherOccupation     string          `json:"mother_occupation"`
	Para                 string          `json:"para"`
	Languages            []string        `json:"languages"`
	Hospital             string          `json:"hospital"`
	Delivery             string          `json:"delivery"`
	BirthWeightKg        *float64        `json:"birth_weight_kg"`
	BirthLengthCm        *float64        `json:"birth_length_cm"`
	BirthOfcCm           *int            `json:"birth_ofc_cm"`
	G6pd                 string          `json:"g6pd"`
	TshMlul              *int            `json:"tsh_mlul"`
	Feeding              string          `json:"feeding"`
	VaccinationSummary   string          `json:"vaccination_summary"`
	OtherNotes           string          `json:"other_notes"`
	Visits               []VisitResponse `json:"visits"`
}

func (h *PatientHandler) CreatePatient(c *gin.Context) {
	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.repo.GetPatientByID(req.ID); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Patient ID already exists"})
		return
	} else if err != models.ErrNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	patient, err := patientFromRequest(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.repo.CreatePatient(patient); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.indexPatient(c, patient)

	c.JSON(http.StatusCreated, toPatientResponse(patient))
}

// SearchPatients matches patients by a name or id fragment. Elasticsearch
// answers when it is up; the registry database is the fallback so search
// keeps working without it. The row cap comes from the admin-configurable
// search limit.
func (h *PatientHandler) SearchPatients(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}

	limit := h.searchLimit()

	if h.es != nil {
		hits, err := h.es.SearchPatients(c.Request.Context(), patientIndex, query, limit)
		if err == nil {
			c.JSON(http.StatusOK, hits)
			return
		}
		log.Printf("Elasticsearch search failed, falling back to database: %v", err)
	}

	patients, err := h.repo.SearchPatients(query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]PatientSummary, 0, len(patients))
	for i := range patients {
		results = append(results, toPatientSummary(&patients[i]))
	}
	c.JSON(http.StatusOK, results)
}

func (h *PatientHandler) GetPatient(c *gin.Context) {
	id := c.Param("id")

	patient, err := h.repo.GetPatientByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Opening a chart promotes the patient in the recents list; failures
	// never block the read
	if h.recents != nil {
		if err := h.recents.Add(c.Request.Context(), recent.Patient{
			ID:          patient.ID,
			Name:        patient.Name,
			DisplayID:   patient.ID,
			DateOfBirth: patient.DateOfBirth.Format(visitform.DateLayout),
		}); err != nil {
			log.Printf("Failed to record recent patient: %v", err)
		}
	}

	c.JSON(http.StatusOK, toPatientResponse(patient))
}

func (h *PatientHandler) UpdatePatient(c *gin.Context) {
	id := c.Param("id")

	var req PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := h.repo.GetPatientByID(id)
	if err != nil {
		if err == models.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	patient, err := patientFromRequest(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	patient.ID = existing.ID

	if err := h.repo.UpdatePatient(patient); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.indexPatient(c, patient)

	c.JSON(http.StatusOK, toPatientResponse(patient))
}

// RecentPatients returns the device-local MRU list for the dashboard.
func (h *PatientHandler) RecentPatients(c *gin.Context) {
	if h.recents == nil {
		c.JSON(http.StatusOK, []recent.Patient{})
		return
	}
	patients := h.recents.Recent(c.Request.Context())
	if patients == nil {
		patients = []recent.Patient{}
	}
	c.JSON(http.StatusOK, patients)
}

func (h *PatientHandler) searchLimit() int {
	value, err := h.repo.GetConfig(models.ConfigSearchLimit)
	if err != nil {
		return defaultSearchLimit
	}
	limit, err := strconv.Atoi(value)
	if err != nil || limit <= 0 {
		return defaultSearchLimit
	}
	return limit
}

func (h *PatientHandler) indexPatient(c *gin.Context, patient *models.Patient) {
	if h.es == nil {
		return
	}
	doc := toPatientSummary(patient)
	if err := h.es.IndexDocument(c.Request.Context(), patientIndex, patient.ID, doc); err != nil {
		log.Printf("Failed to index patient %s: %v", patient.ID, err)
	}
}

func patientFromRequest(req *PatientRequest) (*models.Patient, error) {
	dob, err := time.Parse(visitform.DateLayout, req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	return &models.Patient{
		ID:                   req.ID,
		Name:                 req.Name,
		DateOfBirth:          dob,
		Address:              req.Address,
		PhoneNumberPrimary:   req.PhoneNumberPrimary,
		PhoneNumberSecondary: req.PhoneNumberSecondary,
		FatherName:           req.FatherName,
		FatherOccupation:     req.FatherOccupation,
		MotherName:           req.MotherName,
		MotherOccupation:     req.MotherOccupation,
		Para:                 req.Para,
		Languages:            req.Languages,
		Hospital:             req.Hospital,
		Delivery:             req.Delivery,
		BirthWeightKg:        req.BirthWeightKg,
		BirthLengthCm:        req.BirthLengthCm,
		BirthOfcCm:           req.BirthOfcCm,
		G6pd:                 req.G6pd,
		TshMlul:              req.TshMlul,
		Feeding:              req.Feeding,
		Allergies:            req.Allergies,
		VaccinationSummary:   req.VaccinationSummary,
		OtherNotes:           req.OtherNotes,
	}, nil
}

func toPatientSummary(patient *models.Patient) PatientSummary {
	return PatientSummary{
		ID:          patient.ID,
		Name:        patient.Name,
		DateOfBirth: patient.DateOfBirth.Format(visitform.DateLayout),
		Allergies:   patient.Allergies,
	}
}

func toPatientResponse(patient *models.Patient) PatientResponse {
	resp := PatientResponse{
		PatientSummary:       toPatientSummary(patient),
		Address:              patient.Address,
		PhoneNumberPrimary:   patient.PhoneNumberPrimary,
		PhoneNumberSecondary: patient.PhoneNumberSecondary,
		FatherName:           patient.FatherName,
		FatherOccupation:     patient.FatherOccupation,
		MotherName:           patient.MotherName,
		MotherOccupation:     patient.MotherOccupation,
		Para:                 patient.Para,
		Languages:            patient.Languages,
		Hospital:             patient.Hospital,
		Delivery:             patient.Delivery,
		BirthWeightKg:        patient.BirthWeightKg,
		BirthLengthCm:        patient.BirthLengthCm,
		BirthOfcCm:           patient.BirthOfcCm,
		G6pd:                 patient.G6pd,
		TshMlul:              patient.TshMlul,
		Feeding:              patient.Feeding,
		VaccinationSummary:   patient.VaccinationSummary,
		OtherNotes:           patient.OtherNotes,
		Visits:               []VisitResponse{},
	}
	for i := range patient.Visits {
		resp.Visits = append(resp.Visits, toVisitResponse(&patient.Visits[i]))
	}
	return resp
}
