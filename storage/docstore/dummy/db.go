// Package dummystore is an in-memory document store used by tests and local
// development. It honors the same contracts as the redis store: create-only
// student writes, store-assigned timestamps and full-roster subscription
// callbacks on every change.
package dummystore

import (
	"sync"
	"time"

	"github.com/tutorke/darasa/core/meeting"
	"github.com/tutorke/darasa/core/student"
)

type DB struct {
	mu sync.RWMutex

	students map[string]map[string]*student.Student // session -> phone -> record
	links    meeting.Links

	subs    map[string]map[int]func([]student.Student) // session -> sub id -> callback
	nextSub int

	// Now provides the store clock; overridable in tests.
	Now func() time.Time
}

func Open() (*DB, error) {
	db := &DB{
		students: make(map[string]map[string]*student.Student),
		subs:     make(map[string]map[int]func([]student.Student)),
		Now:      func() time.Time { return time.Now().UTC() },
	}
	for _, session := range student.Sessions {
		db.students[session] = make(map[string]*student.Student)
	}
	return db, nil
}
