package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/bryanlje/clinic/models"
	"github.com/bryanlje/clinic/visitform"
)

const (
	defaultPIN         = "000000"
	defaultSearchLimit = 20
)

// AdminHandler covers the PIN-gated maintenance surface: PIN management,
// the search-limit setting, database backup and the medication CSV export.
type AdminHandler struct {
	repo      models.Repository
	backupDir string
}

func NewAdminHandler(repo models.Repository) *AdminHandler {
	dir := os.Getenv("BACKUP_DIR")
	if dir == "" {
		dir = "backups"
	}
	return &AdminHandler{repo: repo, backupDir: dir}
}

// EnsureDefaults seeds the PIN (hashed) and the search limit on first boot.
// Deleting the admin_pin row resets the PIN to 000000 on the next start.
func (h *AdminHandler) EnsureDefaults() error {
	if _, err := h.repo.GetConfig(models.ConfigAdminPIN); err == models.ErrNotFound {
		hash, hashErr := bcrypt.GenerateFromPassword([]byte(defaultPIN), bcrypt.DefaultCost)
		if hashErr != nil {
			return hashErr
		}
		if err := h.repo.SetConfig(models.ConfigAdminPIN, string(hash)); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if _, err := h.repo.GetConfig(models.ConfigSearchLimit); err == models.ErrNotFound {
		return h.repo.SetConfig(models.ConfigSearchLimit, strconv.Itoa(defaultSearchLimit))
	} else if err != nil {
		return err
	}
	return nil
}

func (h *AdminHandler) checkPIN(pin string) (bool, error) {
	hash, err := h.repo.GetConfig(models.ConfigAdminPIN)
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil, nil
}

type pinRequest struct {
	PIN string `json:"pin" binding:"required,len=6,numeric"`
}

func (h *AdminHandler) VerifyPIN(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.checkPIN(req.PIN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin" binding:"required,len=6,numeric"`
	NewPIN     string `json:"new_pin" binding:"required,len=6,numeric"`
}

func (h *AdminHandler) ChangePIN(c *gin.Context) {
	var req changePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.checkPIN(req.CurrentPIN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPIN), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.repo.SetConfig(models.ConfigAdminPIN, string(hash)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": true})
}

func (h *AdminHandler) GetSearchLimit(c *gin.Context) {
	value, err := h.repo.GetConfig(models.ConfigSearchLimit)
	if err != nil && err != models.ErrNotFound {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	limit, convErr := strconv.Atoi(value)
	if err == models.ErrNotFound || convErr != nil {
		limit = defaultSearchLimit
	}
	c.JSON(http.StatusOK, gin.H{"search_limit": limit})
}

type searchLimitRequest struct {
	PIN         string `json:"pin" binding:"required,len=6,numeric"`
	SearchLimit int    `json:"search_limit" binding:"required,gt=0,lte=200"`
}

func (h *AdminHandler) SetSearchLimit(c *gin.Context) {
	var req searchLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.checkPIN(req.PIN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
		return
	}

	if err := h.repo.SetConfig(models.ConfigSearchLimit, strconv.Itoa(req.SearchLimit)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"search_limit": req.SearchLimit})
}

// Backup writes the full registry (patients with visits, dispensations and
// attachment references) to one timestamped JSON file.
func (h *AdminHandler) Backup(c *gin.Context) {
	var req pinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ok, err := h.checkPIN(req.PIN)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
		return
	}

	patients, err := h.repo.AllPatients()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	filename := filepath.Join(h.backupDir, fmt.Sprintf("clinic_backup_%s.json", time.Now().Format("20060102_150405")))
	file, err := os.Create(filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	responses := make([]PatientResponse, 0, len(patients))
	visitCount := 0
	for i := range patients {
		responses = append(responses, toPatientResponse(&patients[i]))
		visitCount += len(patients[i].Visits)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(responses); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"file":     filename,
		"patients": len(patients),
		"visits":   visitCount,
	})
}

// ExportMedications streams every dispensation in the date range as CSV,
// one row per medication line item.
func (h *AdminHandler) ExportMedications(c *gin.Context) {
	pin := c.Query("pin")
	ok, err := h.checkPIN(pin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "incorrect PIN"})
		return
	}

	from, err := time.Parse(visitform.DateLayout, c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := time.Parse(visitform.DateLayout, c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to date is before from date"})
		return
	}

	visits, err := h.repo.VisitsBetween(from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=medications_%s_%s.csv",
		from.Format(visitform.DateLayout), to.Format(visitform.DateLayout)))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"date", "visit_id", "patient_id", "medicine_name", "quantity", "instructions", "notes"})
	for i := range visits {
		visit := &visits[i]
		for _, d := range visit.Dispensations {
			writer.Write([]string{
				visit.Date.Format(visitform.DateLayout),
				strconv.Itoa(visit.VisitID),
				visit.PatientID,
				d.MedicineName,
				d.Quantity,
				d.Instructions,
				d.Notes,
			})
		}
	}
}
