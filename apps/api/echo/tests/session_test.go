package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_sessionApi_book(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Mr. Kabeya", "mrkabeya", "kabeya@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Ada Kalala", "adakalala", "ada@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	studentToken := getToken(t, student)

	start := time.Now().Add(24 * time.Hour).UTC()
	end := start.Add(time.Hour)

	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, session.NewSession{}),
			token: studentToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "end before start",
			body: marchallObj(t, session.NewSession{
				TutorID: tutor.ID, StartTime: start, EndTime: start.Add(-time.Hour), Subject: "Algebra",
			}),
			token: studentToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "start time in the past",
			body: marchallObj(t, session.NewSession{
				TutorID: tutor.ID, StartTime: time.Now().Add(-time.Hour), EndTime: end, Subject: "Algebra",
			}),
			token: studentToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"start_time": "start time must be in the future"}),
		},
		{
			name: "ok",
			body: marchallObj(t, session.NewSession{
				TutorID: tutor.ID, StartTime: start, EndTime: end, Subject: "Algebra",
			}),
			token: studentToken, wantCode: http.StatusCreated,
		},
		{
			name: "duplicate booking",
			body: marchallObj(t, session.NewSession{
				TutorID: tutor.ID, StartTime: start, EndTime: end, Subject: "Algebra",
			}),
			token: studentToken, wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: session.ErrDuplicate.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/sessions", tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}

			if tt.name == "ok" {
				var sess session.Session
				if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
					t.Fatalf("unmarshalling booked session: %v", err)
				}
				if sess.Status != session.StatusPending {
					t.Errorf("status = %v; want %v", sess.Status, session.StatusPending)
				}
				if sess.StudentID != student.ID { // students always book for themselves
					t.Errorf("student ID = %v; want %v", sess.StudentID, student.ID)
				}
				if sess.TutorName != tutor.Name || sess.StudentName != student.Name {
					t.Errorf("names = %q/%q; want %q/%q", sess.TutorName, sess.StudentName, tutor.Name, student.Name)
				}
			}
		})
	}
}

func Test_sessionApi_queryRetrieve(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Mme. Ilunga", "mmeilunga", "ilunga@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Ben Mwamba", "benmwamba", "ben@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, usrRepo, "Nosy Neighbour", "nosyone1", "nosy@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)

	start := time.Now().Add(48 * time.Hour).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Physics", session.StatusScheduled, start, start.Add(time.Hour))
	sess, err := sessSvc.GetByID(sess.ID) // re-fetch with names attached
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}

	tests := []httpTest{
		{
			name: "query requires auth", method: http.MethodGet, path: "/v1/sessions",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "tutor sees own sessions", method: http.MethodGet, path: "/v1/sessions",
			token: getToken(t, tutor), wantCode: http.StatusOK, wantData: marchallList(t, sess),
		},
		{
			name: "outsider sees nothing", method: http.MethodGet, path: "/v1/sessions",
			token: getToken(t, outsider), wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "status filter misses", method: http.MethodGet, path: "/v1/sessions?status=completed",
			token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "status filter matches", method: http.MethodGet, path: "/v1/sessions?status=scheduled",
			token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallList(t, sess),
		},
		{
			name: "participant retrieves", method: http.MethodGet, path: "/v1/sessions/" + sess.ID,
			token: getToken(t, student), wantCode: http.StatusOK, wantData: marchallObj(t, sess),
		},
		{
			name: "outsider gets a 404", method: http.MethodGet, path: "/v1/sessions/" + sess.ID,
			token: getToken(t, outsider), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "unknown session", method: http.MethodGet, path: "/v1/sessions/deadbeef",
			token: getToken(t, student), wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_sessionApi_lifecycle(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Dr. Tshala", "drtshala", "tshala@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Emma Ngoy", "emmangoy", "emma@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, usrRepo, "Nosy Neighbour II", "nosytwo2", "nosy2@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	tutorToken := getToken(t, tutor)

	start := time.Now().Add(72 * time.Hour).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Chemistry", session.StatusPending, start, start.Add(2*time.Hour))
	path := "/v1/sessions/" + sess.ID + "/status"

	statusBody := func(s session.Status) []byte {
		return marchallObj(t, session.UpdateStatus{Status: s})
	}

	tests := []httpTest{
		{
			name: "unknown status", path: path, body: statusBody("paused"),
			token: tutorToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "unknown status"}),
		},
		{
			name: "non participant", path: path, body: statusBody(session.StatusScheduled),
			token: getToken(t, outsider), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: session.ErrNotParticipant.Error()}),
		},
		{
			name: "skipping a step", path: path, body: statusBody(session.StatusCompleted),
			token: tutorToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": fmt.Sprintf("cannot move from %q to %q", session.StatusPending, session.StatusCompleted)}),
		},
		{
			name: "pending to scheduled", path: path, body: statusBody(session.StatusScheduled),
			token: tutorToken, wantCode: http.StatusOK,
		},
		{
			name: "scheduled to in-progress", path: path, body: statusBody(session.StatusInProgress),
			token: tutorToken, wantCode: http.StatusOK,
		},
		{
			name: "in-progress to completed", path: path, body: statusBody(session.StatusCompleted),
			token: tutorToken, wantCode: http.StatusOK,
		},
		{
			name: "terminal sessions stay put", path: path, body: statusBody(session.StatusCancelled),
			token: tutorToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: session.ErrTerminalSession.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPatch, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	t.Run("completion records an earning", func(t *testing.T) {
		e, err := earnRepo.GetEarningBySession(context.Background(), sess.ID)
		if err != nil {
			t.Fatalf("GetEarningBySession(): %v", err)
		}
		if e.TutorID != tutor.ID {
			t.Errorf("tutor ID = %v; want %v", e.TutorID, tutor.ID)
		}
	})

	t.Run("cancel a pending session", func(t *testing.T) {
		other := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Biology", session.StatusPending, start.Add(24*time.Hour), start.Add(25*time.Hour))
		tt := httpTest{wantCode: http.StatusOK}
		req, rec := newAuthRequest(http.MethodPatch, "/v1/sessions/"+other.ID+"/status", getToken(t, student), statusBody(session.StatusCancelled))
		app.ServeHTTP(rec, req)

		if rec.Code != tt.wantCode {
			t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
		}
		var got session.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling session: %v", err)
		}
		if got.Status != session.StatusCancelled {
			t.Errorf("status = %v; want %v", got.Status, session.StatusCancelled)
		}
	})
}

func Test_sessionApi_notesAndSignaling(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Mr. Lukusa", "mrlukusa", "lukusa@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Lea Kasongo", "leakasongo", "lea@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	tutorToken := getToken(t, tutor)
	studentToken := getToken(t, student)

	start := time.Now().Add(time.Hour).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Geometry", session.StatusInProgress, start, start.Add(time.Hour))

	t.Run("update notes", func(t *testing.T) {
		body := marchallObj(t, session.UpdateNotes{Notes: "Covered chapters 1-3."})
		req, rec := newAuthRequest(http.MethodPut, "/v1/sessions/"+sess.ID+"/notes", tutorToken, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var got session.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling session: %v", err)
		}
		if got.Notes != "Covered chapters 1-3." {
			t.Errorf("notes = %q", got.Notes)
		}
	})

	signal := func(t *testing.T, token string, body []byte) session.Session {
		t.Helper()

		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/signal", token, body)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var got session.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("unmarshalling session: %v", err)
		}
		return got
	}

	t.Run("offer and answer exchange", func(t *testing.T) {
		got := signal(t, tutorToken, marchallObj(t, SignalRequest{Offer: "sdp-offer"}))
		if got.Offer != "sdp-offer" {
			t.Errorf("offer = %q; want %q", got.Offer, "sdp-offer")
		}

		got = signal(t, tutorToken, marchallObj(t, SignalRequest{OfferCandidate: "candidate:1"}))
		if len(got.OfferCandidates) != 1 || got.OfferCandidates[0] != "candidate:1" {
			t.Errorf("offer candidates = %v", got.OfferCandidates)
		}

		got = signal(t, studentToken, marchallObj(t, SignalRequest{Answer: "sdp-answer", AnswerCandidate: "candidate:2"}))
		if got.Answer != "sdp-answer" || len(got.AnswerCandidates) != 1 {
			t.Errorf("answer = %q, candidates = %v", got.Answer, got.AnswerCandidates)
		}
	})

	t.Run("clear wipes negotiation state", func(t *testing.T) {
		got := signal(t, tutorToken, marchallObj(t, SignalRequest{Clear: true}))
		if got.Offer != "" || got.Answer != "" || got.OfferCandidates != nil || got.AnswerCandidates != nil {
			t.Errorf("signaling state not cleared: %+v", got)
		}
	})
}
