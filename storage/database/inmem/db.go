// Package inmemdb implements the core repositories on in-memory maps,
// for tests and local development.
package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/earning"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/review"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

type DB struct {
	mu sync.RWMutex

	users           map[string]*user.User
	tutorProfiles   map[string]*profile.TutorProfile
	studentProfiles map[string]*profile.StudentProfile
	sessions        map[string]*session.Session
	messages        map[string]*message.Message
	reviews         map[string]*review.Review
	earnings        map[string]*earning.Earning
	resources       map[string]*resource.Resource
}

func Open() *DB {
	return &DB{
		users:           make(map[string]*user.User),
		tutorProfiles:   make(map[string]*profile.TutorProfile),
		studentProfiles: make(map[string]*profile.StudentProfile),
		sessions:        make(map[string]*session.Session),
		messages:        make(map[string]*message.Message),
		reviews:         make(map[string]*review.Review),
		earnings:        make(map[string]*earning.Earning),
		resources:       make(map[string]*resource.Resource),
	}
}

// userName resolves a user's display name; callers must hold the lock.
func (db *DB) userName(id string) string {
	if usr, ok := db.users[id]; ok {
		return usr.Name
	}
	return ""
}
