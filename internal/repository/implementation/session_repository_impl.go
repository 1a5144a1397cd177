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
)

type SessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SessionMapper
}

func NewSessionRepository(db *gorm.DB) contract.SessionRepository {
	return &SessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewSessionMapper(),
	}
}

func (r *SessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *entity.SessionState) error {
	m, err := r.mapper.ToModel(session)
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
	*session = *mapped
	return nil
}

func (r *SessionRepositoryImpl) UpdateVersioned(ctx context.Context, session *entity.SessionState) error {
	m, err := r.mapper.ToModel(session)
	if err != nil {
		return err
	}

	// Guarded write: the row must still carry the version we read.
	result := r.db.WithContext(ctx).
		Model(&model.ConversationSession{}).
		Where("id = ? AND version = ?", m.Id, m.Version).
		Updates(map[string]interface{}{
			"current_section_name":  m.CurrentSectionName,
			"step":                  m.Step,
			"follow_up_count":       m.FollowUpCount,
			"selected_lead_option":  m.SelectedLeadOption,
			"selected_sales_option": m.SelectedSalesOption,
			"is_high_risk_flag":     m.IsHighRiskFlag,
			"collected_fields":      m.CollectedFields,
			"history":               m.History,
			"version":               m.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contract.ErrStaleSession
	}

	session.Version = m.Version + 1
	return nil
}

func (r *SessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ConversationSession{}, id).Error
}

func (r *SessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.SessionState, error) {
	var m model.ConversationSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m)
}

func (r *SessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.SessionState, error) {
	var models []*model.ConversationSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.SessionState, len(models))
	for i, m := range models {
		e, err := r.mapper.ToEntity(m)
		if err != nil {
			return nil, err
		}
		entities[i] = e
	}
	return entities, nil
}

func (r *SessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.ConversationSession{}).Count(&count).Error
	return count, err
}
