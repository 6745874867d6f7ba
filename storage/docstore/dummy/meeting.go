package dummystore

import (
	"context"

	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

type meetingRepository struct {
	db *DB
}

var _ meeting.Repository = (*meetingRepository)(nil) // interface compliance check

func NewMeetingRepository(db *DB) meeting.Repository {
	return &meetingRepository{db: db}
}

func (repo *meetingRepository) GetLinks(context.Context) (meeting.Links, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.links, nil
}

func (repo *meetingRepository) SetLink(_ context.Context, session, rawURL string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	now := repo.db.Now()
	switch session {
	case student.SessionMorning:
		repo.db.links.Morning = rawURL
		repo.db.links.MorningUpdated = now
	case student.SessionEvening:
		repo.db.links.Evening = rawURL
		repo.db.links.EveningUpdated = now
	default:
		return student.ErrInvalidSession
	}
	return nil
}
