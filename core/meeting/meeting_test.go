package meeting

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tutorke/darasa/core/student"
)

type stubRepo struct {
	links  Links
	getErr error
	set    map[string]string
}

func (r *stubRepo) GetLinks(context.Context) (Links, error) {
	return r.links, r.getErr
}

func (r *stubRepo) SetLink(_ context.Context, session, rawURL string) error {
	if r.set == nil {
		r.set = make(map[string]string)
	}
	r.set[session] = rawURL
	return nil
}

func TestCheckURL(t *testing.T) {
	tests := []struct {
		name   string
		rawURL string
		valid  bool
	}{
		{"plain meeting link", "https://zoom.us/j/123456789", true},
		{"tenant subdomain", "https://us04web.zoom.us/j/123?pwd=abc", true},
		{"http allowed", "http://zoom.us/j/1", true},
		{"marker in path only", "https://evil.example.com/zoom.us", false},
		{"wrong host", "https://meet.example.com/abc", false},
		{"no scheme", "zoom.us/j/123", false},
		{"empty", "", false},
		{"garbage", "://nope", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckURL(tt.rawURL)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, ErrInvalidLink, err)
			}
		})
	}
}

func TestLinksFor(t *testing.T) {
	l := Links{Morning: "https://zoom.us/j/1", Evening: "https://zoom.us/j/2"}
	assert.Equal(t, "https://zoom.us/j/1", l.For(student.SessionMorning))
	assert.Equal(t, "https://zoom.us/j/2", l.For(student.SessionEvening))
	assert.Empty(t, l.For("afternoon"))
}

func TestJoinURL(t *testing.T) {
	repo := &stubRepo{links: Links{
		Morning:        "https://zoom.us/j/111",
		MorningUpdated: time.Now(),
	}}
	svc := NewService(repo)

	got, err := svc.JoinURL(context.Background(), student.SessionMorning)
	assert.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/111", got)

	_, err = svc.JoinURL(context.Background(), student.SessionEvening)
	assert.Equal(t, ErrNotConfigured, err)

	_, err = svc.JoinURL(context.Background(), "afternoon")
	assert.Equal(t, student.ErrInvalidSession, err)
}

func TestJoinURL_storedLinkNoLongerValid(t *testing.T) {
	repo := &stubRepo{links: Links{Evening: "https://meet.example.com/x"}}
	svc := NewService(repo)

	_, err := svc.JoinURL(context.Background(), student.SessionEvening)
	assert.Equal(t, ErrInvalidLink, err)
}

func TestSetLink(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	err := svc.SetLink(context.Background(), student.SessionMorning, "https://zoom.us/j/9")
	assert.NoError(t, err)
	assert.Equal(t, "https://zoom.us/j/9", repo.set[student.SessionMorning])

	assert.Equal(t, ErrInvalidLink, svc.SetLink(context.Background(), student.SessionMorning, "https://example.com"))
	assert.Equal(t, student.ErrInvalidSession, svc.SetLink(context.Background(), "night", "https://zoom.us/j/9"))
}
