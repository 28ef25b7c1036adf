package implementation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/mapper"
	"chat-app-be/internal/model"
	"chat-app-be/internal/repository/contract"
	"chat-app-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MessageMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewMessageMapper(),
	}
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, msg *entity.Message) error {
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.Type == "" {
		msg.Type = entity.MessageTypeText
	}
	if msg.Status == "" {
		msg.Status = entity.MessageStatusSent
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	m := r.mapper.ToModel(msg)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*msg = *r.mapper.ToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Message, error) {
	var m model.Message
	query := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *MessageRepositoryImpl) FindConversation(ctx context.Context, a, b uuid.UUID, limit int, before *time.Time) ([]*entity.Message, error) {
	specs := []specification.Specification{
		specification.Conversation{UserA: a, UserB: b},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit},
	}
	if before != nil {
		specs = append(specs, specification.CreatedBefore{Before: *before})
	}

	var rows []model.Message
	if err := applySpecifications(r.db.WithContext(ctx), specs...).Find(&rows).Error; err != nil {
		return nil, err
	}

	// newest page was fetched, hand it back oldest first
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return r.mapper.ToEntities(rows), nil
}

const recentChatsQuery = `
WITH conv AS (
	SELECT DISTINCT ON (partner_id) partner_id, body, type, created_at
	FROM (
		SELECT CASE WHEN sender_id = @user THEN receiver_id ELSE sender_id END AS partner_id,
			body, type, created_at
		FROM messages
		WHERE (sender_id = @user OR receiver_id = @user) AND deleted_at IS NULL
	) m
	ORDER BY partner_id, created_at DESC
)
SELECT conv.partner_id,
	u.name AS partner_name,
	conv.body AS last_message,
	conv.type AS last_message_type,
	conv.created_at AS last_message_at,
	(SELECT COUNT(*) FROM messages x
		WHERE x.sender_id = conv.partner_id AND x.receiver_id = @user
		AND x.status <> 'read' AND x.deleted_at IS NULL) AS unread_count,
	COALESCE(s.is_online, false) AS partner_online,
	s.last_seen AS partner_last_seen
FROM conv
JOIN users u ON u.id = conv.partner_id AND u.deleted_at IS NULL
LEFT JOIN user_statuses s ON s.user_id = conv.partner_id
ORDER BY conv.created_at DESC`

type recentChatRow struct {
	PartnerId       uuid.UUID
	PartnerName     string
	LastMessage     *string
	LastMessageType string
	LastMessageAt   time.Time
	UnreadCount     int64
	PartnerOnline   bool
	PartnerLastSeen *time.Time
}

func (r *MessageRepositoryImpl) FindRecentChats(ctx context.Context, userID uuid.UUID) ([]*entity.RecentChat, error) {
	var rows []recentChatRow
	if err := r.db.WithContext(ctx).Raw(recentChatsQuery, sql.Named("user", userID)).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*entity.RecentChat, 0, len(rows))
	for _, row := range rows {
		out = append(out, &entity.RecentChat{
			PartnerId:       row.PartnerId,
			PartnerName:     row.PartnerName,
			LastMessage:     row.LastMessage,
			LastMessageType: entity.MessageType(row.LastMessageType),
			LastMessageAt:   row.LastMessageAt,
			UnreadCount:     row.UnreadCount,
			PartnerOnline:   row.PartnerOnline,
			PartnerLastSeen: row.PartnerLastSeen,
		})
	}
	return out, nil
}

func (r *MessageRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.MessageStatus, at time.Time) (bool, error) {
	from := statusStrings(entity.StatusesBefore(status))
	if len(from) == 0 {
		return false, nil
	}

	updates := map[string]interface{}{"status": string(status)}
	switch status {
	case entity.MessageStatusDelivered:
		updates["delivered_at"] = at
	case entity.MessageStatusRead:
		updates["read_at"] = at
		updates["delivered_at"] = gorm.Expr("COALESCE(delivered_at, ?)", at)
	}

	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *MessageRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{}).Error
}

func statusStrings(statuses []entity.MessageStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
