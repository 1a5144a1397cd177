package implementation

import (
	"context"
	"errors"

	"leadqualify-be/internal/entity"
	"leadqualify-be/internal/mapper"
	"leadqualify-be/internal/model"
	"leadqualify-be/internal/repository/contract"
	"leadqualify-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SummaryRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SummaryMapper
}

func NewSummaryRepository(db *gorm.DB) contract.SummaryRepository {
	return &SummaryRepositoryImpl{
		db:     db,
		mapper: mapper.NewSummaryMapper(),
	}
}

func (r *SummaryRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SummaryRepositoryImpl) Create(ctx context.Context, summary *entity.StructuredSummary) error {
	m, err := r.mapper.ToModel(summary)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	mapped, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*summary = *mapped
	return nil
}

func (r *SummaryRepositoryImpl) Update(ctx context.Context, summary *entity.StructuredSummary) error {
	m, err := r.mapper.ToModel(summary)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	mapped, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*summary = *mapped
	return nil
}

func (r *SummaryRepositoryImpl) Upsert(ctx context.Context, summary *entity.StructuredSummary) error {
	m, err := r.mapper.ToModel(summary)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "page_url"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"page_type", "business_name", "sections", "crawled_at", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	mapped, err := r.mapper.ToEntity(m)
	if err != nil {
		return err
	}
	*summary = *mapped
	return nil
}

func (r *SummaryRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.StructuredSummary{}, id).Error
}

func (r *SummaryRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.StructuredSummary, error) {
	var m model.StructuredSummary
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SummaryRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.StructuredSummary, error) {
	var models []*model.StructuredSummary
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.StructuredSummary, len(models))
	for i, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (r *SummaryRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.StructuredSummary{}).Count(&count).Error
	return count, err
}
