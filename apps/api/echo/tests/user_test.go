package tests

import (
	"net/http"
	"testing"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core/user"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_userApi_login(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Jo Darasa", "jo", "jo@test.cd", "LeTmE1n!?", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, usrRepo, "Inactive", "sleeper", "sleeper@test.cd", "LeTmE1n!?", []string{user.RoleStudent}, false)

	tests := []httpTest{
		{
			name: "empty credentials", body: marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown user", body: marchallObj(t, LoginRequest{Username: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "lol"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, LoginRequest{Username: "sleeper", Password: "LeTmE1n!?"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: marchallObj(t, LoginRequest{Username: usr.Username, Password: "LeTmE1n!?"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, LoginRequest{Username: usr.Email, Password: "LeTmE1n!?"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	tests := []httpTest{
		{
			name: "missing fields", body: marchallObj(t, user.NewUser{}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "weak password",
			body: marchallObj(t, user.NewUser{
				Name: "Weak", Username: "weakling", Email: "weak@test.cd",
				Password: "password", PasswordConfirm: "password",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "cannot self-register admin roles",
			body: marchallObj(t, user.NewUser{
				Name: "Sneaky", Username: "sneaky", Email: "sneaky@test.cd",
				Password: "SuP3r-S3cret!", PasswordConfirm: "SuP3r-S3cret!", Roles: []string{user.RoleAdmin},
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "student sign-up",
			body: marchallObj(t, user.NewUser{
				Name: "New Student", Username: "freshman", Email: "freshman@test.cd",
				Password: "SuP3r-S3cret!", PasswordConfirm: "SuP3r-S3cret!", Roles: []string{user.RoleStudent},
			}),
			wantCode: http.StatusCreated,
		},
		{
			name: "tutor sign-up",
			body: marchallObj(t, user.NewUser{
				Name: "New Tutor", Username: "professor", Email: "professor@test.cd",
				Password: "SuP3r-S3cret!", PasswordConfirm: "SuP3r-S3cret!", Roles: []string{user.RoleTutor},
			}),
			wantCode: http.StatusCreated,
		},
		{
			name: "duplicate username",
			body: marchallObj(t, user.NewUser{
				Name: "Copy Cat", Username: "freshman", Email: "copycat@test.cd",
				Password: "SuP3r-S3cret!", PasswordConfirm: "SuP3r-S3cret!", Roles: []string{user.RoleStudent},
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/register", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("failed! code = %v; wantCode %v; body = %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	student := testutil.CreateUser(t, usrRepo, "Query Student", "qstudent", "qstudent@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Query Admin", "qadmin", "qadmin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{
			name: "Auth required", path: "/v1/users",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", path: "/v1/users", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "search (unknown)", path: "/v1/users?search=nosuchuseranywhere", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
		{
			name: "search by name", path: "/v1/users?search=Query+Student", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallList(t, student),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieveUpdate(t *testing.T) {
	usr := testutil.CreateUser(t, usrRepo, "Detail User", "detail", "detail@test.cd", "", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, usrRepo, "Other User", "otherv", "otherv@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, usrRepo, "Detail Admin", "dadmin", "dadmin@test.cd", "", []string{user.RoleAdmin}, true)

	t.Run("owner can retrieve", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, usr)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, usr))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("admin can retrieve", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, usr)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, admin))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("stranger gets 404", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, getToken(t, other))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("non-admin cannot change roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("owner can update name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Renamed User"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, getToken(t, usr), body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		refreshed, err := usrSvc.GetByID(usr.ID)
		if err != nil {
			t.Fatalf("GetByID(): %v", err)
		}
		if refreshed.Name != "Renamed User" {
			t.Errorf("name = %q; want %q", refreshed.Name, "Renamed User")
		}
	})
}
