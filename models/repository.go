package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

// Repository is the persistence boundary for the clinic's registry, visit
// records and configuration rows.
type Repository interface {
	CreatePatient(patient *Patient) error
	GetPatientByID(id string) (*Patient, error)
	UpdatePatient(patient *Patient) error
	SearchPatients(query string, limit int) ([]Patient, error)
	AllPatients() ([]Patient, error)

	CreateVisit(visit *Visit) error
	GetVisitByID(id int) (*Visit, error)
	UpdateVisit(visit *Visit) error
	DeleteVisit(id int) error
	VisitsBetween(from, to time.Time) ([]Visit, error)

	AddAttachment(attachment *VisitAttachment) error
	GetAttachmentByID(id uint) (*VisitAttachment, error)
	DeleteAttachment(id uint) error

	GetConfig(key string) (string, error)
	SetConfig(key, value string) error

	Close() error
}

type PostgresRepository struct {
	db *gorm.DB
}

func NewPostgresRepository() (*PostgresRepository, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&Patient{}, &Visit{}, &Dispensation{}, &VisitAttachment{}, &SystemConfig{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) CreatePatient(patient *Patient) error {
	return r.db.Create(patient).Error
}

func (r *PostgresRepository) GetPatientByID(id string) (*Patient, error) {
	var patient Patient
	err := r.db.
		Preload("Visits", func(db *gorm.DB) *gorm.DB {
			return db.Order("visits.date DESC, visits.time DESC")
		}).
		Preload("Visits.Dispensations", func(db *gorm.DB) *gorm.DB {
			return db.Order("dispensations.position ASC")
		}).
		Preload("Visits.Attachments").
		First(&patient, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &patient, nil
}

func (r *PostgresRepository) UpdatePatient(patient *Patient) error {
	return r.db.Omit("Visits").Save(patient).Error
}

// SearchPatients matches a name or id substring, case-insensitively, capped
// at limit rows.
func (r *PostgresRepository) SearchPatients(query string, limit int) ([]Patient, error) {
	var patients []Patient
	pattern := "%" + query + "%"
	err := r.db.
		Where("name ILIKE ? OR id ILIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&patients).Error
	return patients, err
}

func (r *PostgresRepository) AllPatients() ([]Patient, error) {
	var patients []Patient
	err := r.db.
		Preload("Visits").
		Preload("Visits.Dispensations").
		Preload("Visits.Attachments").
		Order("id ASC").
		Find(&patients).Error
	return patients, err
}

func (r *PostgresRepository) CreateVisit(visit *Visit) error {
	for i := range visit.Dispensations {
		visit.Dispensations[i].Position = i
	}
	return r.db.Create(visit).Error
}

func (r *PostgresRepository) GetVisitByID(id int) (*Visit, error) {
	var visit Visit
	err := r.db.
		Preload("Dispensations", func(db *gorm.DB) *gorm.DB {
			return db.Order("dispensations.position ASC")
		}).
		Preload("Attachments").
		First(&visit, "visit_id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &visit, nil
}

// UpdateVisit rewrites the visit row and replaces its dispensation list
// wholesale, in one transaction. Attachments are managed separately.
func (r *PostgresRepository) UpdateVisit(visit *Visit) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("visit_id = ?", visit.VisitID).Delete(&Dispensation{}).Error; err != nil {
			return err
		}
		dispensations := visit.Dispensations
		for i := range dispensations {
			dispensations[i].ID = 0
			dispensations[i].VisitID = visit.VisitID
			dispensations[i].Position = i
		}
		if err := tx.Omit("Dispensations", "Attachments").Save(visit).Error; err != nil {
			return err
		}
		if len(dispensations) == 0 {
			return nil
		}
		return tx.Create(&dispensations).Error
	})
}

func (r *PostgresRepository) DeleteVisit(id int) error {
	result := r.db.Delete(&Visit{}, "visit_id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) VisitsBetween(from, to time.Time) ([]Visit, error) {
	var visits []Visit
	err := r.db.
		Preload("Dispensations", func(db *gorm.DB) *gorm.DB {
			return db.Order("dispensations.position ASC")
		}).
		Where("date BETWEEN ? AND ?", from, to).
		Order("date ASC, time ASC").
		Find(&visits).Error
	return visits, err
}

func (r *PostgresRepository) AddAttachment(attachment *VisitAttachment) error {
	return r.db.Create(attachment).Error
}

func (r *PostgresRepository) GetAttachmentByID(id uint) (*VisitAttachment, error) {
	var attachment VisitAttachment
	if err := r.db.First(&attachment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &attachment, nil
}

func (r *PostgresRepository) DeleteAttachment(id uint) error {
	result := r.db.Delete(&VisitAttachment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetConfig(key string) (string, error) {
	var row SystemConfig
	if err := r.db.First(&row, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return row.Value, nil
}

func (r *PostgresRepository) SetConfig(key, value string) error {
	row := SystemConfig{Key: key, Value: value}
	return r.db.Save(&row).Error
}

func (r *PostgresRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
