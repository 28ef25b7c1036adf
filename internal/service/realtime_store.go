package service

import (
	"context"

	"chat-app-be/internal/entity"
	"chat-app-be/internal/repository/unitofwork"
)

// RealtimeStore backs the realtime core with the relational repositories.
type RealtimeStore struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewRealtimeStore(uowFactory unitofwork.RepositoryFactory) *RealtimeStore {
	return &RealtimeStore{uowFactory: uowFactory}
}

func (s *RealtimeStore) InsertMessage(ctx context.Context, msg *entity.Message) error {
	return s.uowFactory.NewUnitOfWork(ctx).MessageRepository().Create(ctx, msg)
}

func (s *RealtimeStore) SavePresence(ctx context.Context, presence *entity.Presence) error {
	return s.uowFactory.NewUnitOfWork(ctx).PresenceRepository().Upsert(ctx, presence)
}
