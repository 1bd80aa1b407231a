// Package store persists subjects in Postgres through gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/signalsfoundry/astro-aspects/kb"
	"github.com/signalsfoundry/astro-aspects/model"
)

// SubjectRecord is the table row for a subject. The natal chart is stored
// as JSON so it never has to be re-resolved on read.
type SubjectRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:255;not null"`
	BirthDate string `gorm:"size:10;not null"`
	BirthTime string `gorm:"size:8"`
	TimeZone  string `gorm:"size:64"`
	Latitude  float64
	Longitude float64
	Place     string    `gorm:"size:255"`
	NatalJSON []byte    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"index"`
}

// TableName pins the table name.
func (SubjectRecord) TableName() string { return "subjects" }

// SubjectRepository implements the subject store over gorm.
type SubjectRepository struct {
	db *gorm.DB
}

// Open connects to Postgres with dsn and migrates the schema.
func Open(dsn string) (*SubjectRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	repo := NewSubjectRepository(db)
	if err := repo.Migrate(); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}

// NewSubjectRepository wraps an open gorm handle.
func NewSubjectRepository(db *gorm.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Migrate creates or updates the subjects table.
func (r *SubjectRepository) Migrate() error {
	if err := r.db.AutoMigrate(&SubjectRecord{}); err != nil {
		return fmt.Errorf("migrate subjects: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (r *SubjectRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Put inserts a new subject.
func (r *SubjectRepository) Put(ctx context.Context, subj *model.Subject) error {
	rec, err := ToRecord(subj)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %q", kb.ErrSubjectExists, subj.ID)
	}
	if err != nil {
		return fmt.Errorf("insert subject %q: %w", subj.ID, err)
	}
	return nil
}

// Get loads one subject.
func (r *SubjectRepository) Get(ctx context.Context, id string) (*model.Subject, error) {
	var rec SubjectRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %q", kb.ErrSubjectNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load subject %q: %w", id, err)
	}
	return FromRecord(rec)
}

// List loads every subject ordered by creation time.
func (r *SubjectRepository) List(ctx context.Context) ([]*model.Subject, error) {
	var recs []SubjectRecord
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	out := make([]*model.Subject, 0, len(recs))
	for _, rec := range recs {
		s, err := FromRecord(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Delete removes one subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&SubjectRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete subject %q: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", kb.ErrSubjectNotFound, id)
	}
	return nil
}

// ToRecord flattens a subject into its table row.
func ToRecord(s *model.Subject) (SubjectRecord, error) {
	if s == nil || s.ID == "" {
		return SubjectRecord{}, errors.New("subject ID is required")
	}
	rec := SubjectRecord{
		ID:        s.ID,
		Name:      s.Name,
		BirthDate: s.Birth.Date,
		BirthTime: s.Birth.Time,
		TimeZone:  s.Birth.TimeZone,
		Latitude:  s.Birth.Location.Latitude,
		Longitude: s.Birth.Location.Longitude,
		Place:     s.Birth.Location.Name,
		CreatedAt: s.CreatedAt,
	}
	if s.Natal != nil {
		raw, err := json.Marshal(s.Natal)
		if err != nil {
			return SubjectRecord{}, fmt.Errorf("encode natal chart: %w", err)
		}
		rec.NatalJSON = raw
	}
	return rec, nil
}

// FromRecord rebuilds a subject from its table row.
func FromRecord(rec SubjectRecord) (*model.Subject, error) {
	s := &model.Subject{
		ID:   rec.ID,
		Name: rec.Name,
		Birth: model.BirthData{
			Date:     rec.BirthDate,
			Time:     rec.BirthTime,
			TimeZone: rec.TimeZone,
			Location: model.Location{
				Latitude:  rec.Latitude,
				Longitude: rec.Longitude,
				Name:      rec.Place,
			},
		},
		CreatedAt: rec.CreatedAt,
	}
	if len(rec.NatalJSON) > 0 {
		var chart model.Chart
		if err := json.Unmarshal(rec.NatalJSON, &chart); err != nil {
			return nil, fmt.Errorf("decode natal chart for %q: %w", rec.ID, err)
		}
		s.Natal = &chart
	}
	return s, nil
}
