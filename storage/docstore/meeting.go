package docstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/tutorke/darasa/core"
	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

type meetingRepository struct {
	client *redis.Client
	logger core.Logger
}

var _ meeting.Repository = (*meetingRepository)(nil) // interface compliance check

func NewMeetingRepository(client *redis.Client, logger core.Logger) meeting.Repository {
	return &meetingRepository{client: client, logger: logger}
}

func (repo *meetingRepository) GetLinks(ctx context.Context) (meeting.Links, error) {
	raw, err := repo.client.Get(ctx, configLinksKey).Result()
	if err == redis.Nil {
		return meeting.Links{}, nil // not configured yet; reads as empty
	}
	if err != nil {
		return meeting.Links{}, wrapStoreErr(err, "getting meeting links")
	}

	var links meeting.Links
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return meeting.Links{}, errors.Wrap(err, "decoding meeting links")
	}
	return links, nil
}

func (repo *meetingRepository) SetLink(ctx context.Context, session, rawURL string) error {
	links, err := repo.GetLinks(ctx)
	if err != nil {
		return err
	}
	now, err := serverNow(ctx, repo.client)
	if err != nil {
		return err
	}

	switch session {
	case student.SessionMorning:
		links.Morning = rawURL
		links.MorningUpdated = now
	case student.SessionEvening:
		links.Evening = rawURL
		links.EveningUpdated = now
	default:
		return student.ErrInvalidSession
	}

	raw, err := json.Marshal(links)
	if err != nil {
		return errors.Wrap(err, "encoding meeting links")
	}
	if err := repo.client.Set(ctx, configLinksKey, raw, 0).Err(); err != nil {
		return wrapStoreErr(err, "writing meeting links")
	}
	return nil
}
