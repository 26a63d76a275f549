package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSession(
	t *testing.T,
	repo session.Repository,
	tutorID, studentID, subject string,
	status session.Status,
	start, end time.Time,
) session.Session {
	t.Helper()

	now := time.Now().UTC()
	s := session.Session{
		ID:        uuid.New().String(),
		TutorID:   tutorID,
		StudentID: studentID,
		Subject:   subject,
		Status:    status,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s, err := repo.CreateSession(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return s
}
