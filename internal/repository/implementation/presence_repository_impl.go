package implementation

import (
	"context"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/mapper"
	"chat-app-be/internal/model"
	"chat-app-be/internal/repository/contract"
	"chat-app-be/internal/repository/scope"
	"chat-app-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserMapper
}

func NewPresenceRepository(db *gorm.DB) contract.PresenceRepository {
	return &PresenceRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserMapper(),
	}
}

func (r *PresenceRepositoryImpl) Upsert(ctx context.Context, presence *entity.Presence) error {
	m := r.mapper.PresenceToModel(presence)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen"}),
	}).Create(m).Error
}

func (r *PresenceRepositoryImpl) FindByUserIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Presence, error) {
	out := make(map[uuid.UUID]*entity.Presence, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []model.UserStatus
	if err := r.db.WithContext(ctx).Where("user_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].UserId] = r.mapper.PresenceToEntity(&rows[i])
	}
	return out, nil
}

func (r *PresenceRepositoryImpl) FindOnline(ctx context.Context, excludeID uuid.UUID) ([]*entity.UserWithPresence, error) {
	var statuses []model.UserStatus
	err := r.db.WithContext(ctx).
		Scopes(scope.OnlineOnly).
		Where("user_id <> ?", excludeID).
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return []*entity.UserWithPresence{}, nil
	}

	byUser := make(map[uuid.UUID]*model.UserStatus, len(statuses))
	ids := make([]uuid.UUID, 0, len(statuses))
	for i := range statuses {
		byUser[statuses[i].UserId] = &statuses[i]
		ids = append(ids, statuses[i].UserId)
	}

	var users []*model.User
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByIDs{IDs: ids},
		specification.OrderBy{Field: "name"},
	)
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.UserWithPresence, 0, len(users))
	for _, u := range users {
		out = append(out, &entity.UserWithPresence{
			User:     r.mapper.ToEntity(u),
			Presence: r.mapper.PresenceToEntity(byUser[u.Id]),
		})
	}
	return out, nil
}
