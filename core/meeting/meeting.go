// Package meeting manages the per-session video-meeting links held in the
// config/zoomLinks singleton document.
package meeting

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/tutorke/darasa/core/student"
)

var (
	// errors
	ErrNotConfigured = errors.New("meeting link not configured")
	ErrInvalidLink   = errors.New("invalid meeting link")
)

// hostMarker gates both teacher-side link updates and student-side redirects;
// the same rule must hold in both places or students get sent to links the
// teacher could never have saved.
const hostMarker = "zoom.us"

type (
	// Links is the config singleton: one meeting URL per session plus the
	// store-assigned time of the last teacher update.
	Links struct {
		Morning        string    `json:"morning"`
		Evening        string    `json:"evening"`
		MorningUpdated time.Time `json:"morningLastUpdated,omitempty"`
		EveningUpdated time.Time `json:"eveningLastUpdated,omitempty"`
	}

	Repository interface {
		// GetLinks is a point read of the singleton. A missing document is
		// not an error; it reads as the zero Links.
		GetLinks(ctx context.Context) (Links, error)
		// SetLink merges the session's URL and stamps its LastUpdated from
		// the store clock.
		SetLink(ctx context.Context, session, rawURL string) error
	}

	Service struct {
		repo Repository
	}
)

// For returns the link for the given session; "" for anything unknown.
func (l Links) For(session string) string {
	switch session {
	case student.SessionMorning:
		return l.Morning
	case student.SessionEvening:
		return l.Evening
	}
	return ""
}

// UpdatedAt returns when the session's link last changed.
func (l Links) UpdatedAt(session string) time.Time {
	switch session {
	case student.SessionMorning:
		return l.MorningUpdated
	case student.SessionEvening:
		return l.EveningUpdated
	}
	return time.Time{}
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Links(ctx context.Context) (Links, error) {
	return svc.repo.GetLinks(ctx)
}

// JoinURL resolves the vetted meeting URL for a session.
// ErrNotConfigured when the link is absent or empty; ErrInvalidLink when the
// stored value no longer passes CheckURL. Neither is retried: the student is
// told to contact the teacher.
func (svc *Service) JoinURL(ctx context.Context, session string) (string, error) {
	if !student.ValidSession(session) {
		return "", student.ErrInvalidSession
	}
	links, err := svc.repo.GetLinks(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting meeting links")
	}
	link := links.For(session)
	if link == "" {
		return "", ErrNotConfigured
	}
	if err := CheckURL(link); err != nil {
		return "", err
	}
	return link, nil
}

// SetLink validates and saves a session's meeting URL.
func (svc *Service) SetLink(ctx context.Context, session, rawURL string) error {
	if !student.ValidSession(session) {
		return student.ErrInvalidSession
	}
	if err := CheckURL(rawURL); err != nil {
		return err
	}
	return svc.repo.SetLink(ctx, session, rawURL)
}

// CheckURL accepts a URL only if it parses and its host contains the
// video-meeting domain marker.
func CheckURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ErrInvalidLink
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidLink
	}
	if !strings.Contains(u.Host, hostMarker) {
		return ErrInvalidLink
	}
	return nil
}
