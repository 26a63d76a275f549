package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	videosvc "github.com/darasahq/darasa/services/video"

	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_videoApi_widgetConfig(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Alma Boende", "almaboende", "alma@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Noa Kindu", "noakindu", "noa@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	outsider := testutil.CreateUser(t, usrRepo, "Rudy Bunia", "rudybunia", "rudy@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)

	start := time.Now().Add(time.Hour).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Music", session.StatusInProgress, start, start.Add(time.Hour))

	t.Run("participants share a room", func(t *testing.T) {
		var rooms []string
		for _, usr := range []user.User{tutor, student} {
			req, rec := newAuthRequest(http.MethodGet, "/v1/video/sessions/"+sess.ID+"/widget", getToken(t, usr))
			app.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
			}
			var cfg videosvc.WidgetConfig
			if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
				t.Fatalf("unmarshalling widget config: %v", err)
			}
			if cfg.Domain != conf.Meeting.WidgetDomain {
				t.Errorf("domain = %q", cfg.Domain)
			}
			if cfg.DisplayName != usr.Name {
				t.Errorf("display name = %q; want %q", cfg.DisplayName, usr.Name)
			}
			rooms = append(rooms, cfg.Room)
		}
		if rooms[0] == "" || rooms[0] != rooms[1] {
			t.Errorf("rooms = %v; want both equal and non-empty", rooms)
		}
	})

	t.Run("outsiders get a 404", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/video/sessions/"+sess.ID+"/widget", getToken(t, outsider))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("opening marks a scheduled session active", func(t *testing.T) {
		scheduled := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Music Theory",
			session.StatusScheduled, start.Add(4*time.Hour), start.Add(5*time.Hour))

		req, rec := newAuthRequest(http.MethodGet, "/v1/video/sessions/"+scheduled.ID+"/widget", getToken(t, tutor))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}

		got, err := sessSvc.GetByID(scheduled.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if got.Status != session.StatusInProgress {
			t.Errorf("status = %q; want %q", got.Status, session.StatusInProgress)
		}
	})

	t.Run("a pending session still serves the widget", func(t *testing.T) {
		pending := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Composition",
			session.StatusPending, start.Add(6*time.Hour), start.Add(7*time.Hour))

		req, rec := newAuthRequest(http.MethodGet, "/v1/video/sessions/"+pending.ID+"/widget", getToken(t, student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}

		got, err := sessSvc.GetByID(pending.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if got.Status != session.StatusPending {
			t.Errorf("status = %q; want %q", got.Status, session.StatusPending)
		}
	})
}

func Test_videoApi_meeting(t *testing.T) {
	tutor := testutil.CreateUser(t, usrRepo, "Vicky Likasi", "vickylikasi", "vicky@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)
	student := testutil.CreateUser(t, usrRepo, "Abe Kolwezi", "abekolwezi", "abe@test.cd", "SuP3r-S3cret!", []string{user.RoleStudent}, true)
	tutorToken := getToken(t, tutor)

	// a profile exists but no meeting account is linked to it
	if _, err := profSvc.UpdateTutor(tutor.ID, profile.UpdateTutorProfile{Bio: "Art tutor."}); err != nil {
		t.Fatalf("UpdateTutor(): %v", err)
	}

	start := time.Now().Add(12 * time.Hour).UTC()
	sess := testutil.CreateSession(t, sessRepo, tutor.ID, student.ID, "Drawing", session.StatusScheduled, start, start.Add(time.Hour))

	t.Run("students cannot create meetings", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		req, rec := newAuthRequest(http.MethodPost, "/v1/video/sessions/"+sess.ID+"/meeting", getToken(t, student))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("requires a connected account", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "meeting account not connected"})}
		req, rec := newAuthRequest(http.MethodPost, "/v1/video/sessions/"+sess.ID+"/meeting", tutorToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("connect returns the authorize URL", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/video/connect", tutorToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			URL   string `json:"url"`
			State string `json:"state"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.URL == "" || resp.State == "" {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("callback requires a code", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "code is required"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/video/connect/callback", tutorToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("callback rejects a forged state", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid or expired state"})}
		req, rec := newAuthRequest(http.MethodGet, "/v1/video/connect/callback?code=auth-code&state=forged", tutorToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("callback rejects another tutor's state", func(t *testing.T) {
		other := testutil.CreateUser(t, usrRepo, "Oba Likasi", "obalikasi", "oba@test.cd", "SuP3r-S3cret!", []string{user.RoleTutor}, true)

		// state issued for tutor, replayed against other's callback
		req, rec := newAuthRequest(http.MethodGet, "/v1/video/connect", tutorToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			State string `json:"state"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "invalid or expired state"})}
		req, rec = newAuthRequest(http.MethodGet, "/v1/video/connect/callback?code=auth-code&state="+resp.State, getToken(t, other))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
