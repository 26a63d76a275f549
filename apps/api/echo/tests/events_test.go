package tests

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_eventsApi_stream(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Sara Kipushi", "sarakipushi", "sara@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Leo Kasumbalesa", "leokasumba", "leo@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)

	start := time.Now().Add(30 * time.Minute).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Piano", session.StatusScheduled, start, start.Add(time.Hour))

	t.Run("requires auth", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/events")
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})

	// open the student's stream, then fire live changes at it
	streamCtx, cancel := context.WithCancel(context.Background())
	req, rec := newAuthRequest(http.MethodGet, "/v1/events", getToken(t, student))
	req = req.WithContext(streamCtx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		app.ServeHTTP(rec, req)
	}()
	time.Sleep(200 * time.Millisecond) // let the subscription land

	if _, err := sessSvc.UpdateStatus(sess.ID, session.StatusInProgress, tutor.ID); err != nil {
		t.Fatalf("UpdateStatus(): %v", err)
	}
	{
		body := marchallObj(t, message.NewMessage{RecipientID: student.ID, Body: "Starting now, join the call."})
		mreq, mrec := newAuthRequest(http.MethodPost, "/v1/messages", getToken(t, tutor), body)
		app.ServeHTTP(mrec, mreq)
		if mrec.Code != http.StatusCreated {
			t.Fatalf("send failed! code = %v; body = %s", mrec.Code, mrec.Body.String())
		}
	}

	time.Sleep(200 * time.Millisecond) // let the events drain
	cancel()
	<-done

	got := rec.Body.String()
	for _, event := range []string{
		"event: snapshot",
		"event: session",
		"event: session-started", // status edge raises a notification
		"event: notification",
		"event: message",
	} {
		if !strings.Contains(got, event) {
			t.Errorf("stream missing %q; got:\n%s", event, got)
		}
	}
	if !strings.Contains(got, sess.ID) {
		t.Errorf("stream does not mention the session; got:\n%s", got)
	}
}
