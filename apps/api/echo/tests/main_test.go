package tests

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	. "github.com/darasahq/darasa/apps/api/echo"
	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/earning"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/profile"
	"github.com/darasahq/darasa/core/resource"
	"github.com/darasahq/darasa/core/review"
	"github.com/darasahq/darasa/core/session"
	"github.com/darasahq/darasa/core/user"
	"github.com/darasahq/darasa/realtime"
	emailsvc "github.com/darasahq/darasa/services/email"
	videosvc "github.com/darasahq/darasa/services/video"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	"github.com/darasahq/darasa/storage/object"
)

var (
	conf   *core.Config
	app    *Server
	broker *realtime.Broker

	usrRepo  user.Repository
	sessRepo session.Repository
	profRepo profile.Repository
	msgRepo  message.Repository
	revRepo  review.Repository
	earnRepo earning.Repository
	resRepo  resource.Repository

	usrSvc  user.ServiceInterface
	sessSvc session.ServiceInterface
	profSvc profile.ServiceInterface

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
	errNotFound     = httpErr{Error: "not found"}
)

type testLogger struct{ std *log.Logger }

func (l testLogger) Debug(msg string, args ...interface{}) { l.std.Println(msg) }
func (l testLogger) Info(msg string, args ...interface{})  { l.std.Println(msg) }
func (l testLogger) Warn(msg string, args ...interface{})  { l.std.Println(msg) }
func (l testLogger) Error(msg string, args ...interface{}) { l.std.Println(msg) }
func (l testLogger) Fatal(msg string, args ...interface{}) { l.std.Fatalln(msg) }

func TestMain(m *testing.M) {
	conf = core.NewConfig()
	conf.TestMode = true
	conf.Debug = false

	logger := testLogger{std: log.New(os.Stdout, "TEST : ", log.LstdFlags)}

	// set up DB & repos
	db := inmemdb.Open()
	usrRepo = inmemdb.NewUserRepository(db)
	sessRepo = inmemdb.NewSessionRepository(db)
	profRepo = inmemdb.NewProfileRepository(db)
	msgRepo = inmemdb.NewMessageRepository(db)
	revRepo = inmemdb.NewReviewRepository(db)
	earnRepo = inmemdb.NewEarningRepository(db)
	resRepo = inmemdb.NewResourceRepository(db)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	broker = realtime.NewBroker()

	storageDir, err := ioutil.TempDir("", "darasa-test-uploads")
	if err != nil {
		log.Fatalf("TempDir(): %v", err)
	}
	objStore := object.NewDiskStore(storageDir, "http://localhost:8000/media")

	usrSvc = user.NewService(usrRepo, mailSvc, conf)
	profSvc = profile.NewService(profRepo)
	earnSvc := earning.NewService(earnRepo, profSvc)
	sessSvc = session.NewService(sessRepo, broker, usrSvc, mailSvc, earnSvc, conf, logger)
	msgSvc := message.NewService(msgRepo, broker)
	revSvc := review.NewService(revRepo, sessSvc)
	resSvc := resource.NewService(resRepo, objStore)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	// set up server
	app = NewServer(
		ServerDeps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			UserSvc:        usrSvc,
			SessionSvc:     sessSvc,
			ProfileSvc:     profSvc,
			MessageSvc:     msgSvc,
			ReviewSvc:      revSvc,
			EarningSvc:     earnSvc,
			ResourceSvc:    resSvc,
			Broker:         broker,
			Widget:         videosvc.NewWidget(conf),
			MeetingClient:  videosvc.NewMeetingClient(conf, profSvc, logger),
			DisableReqLogs: true,
		},
	)

	// run tests
	code := m.Run()

	broker.Close()
	_ = os.RemoveAll(storageDir)
	os.Exit(code)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	claims := GetUserClaims(usr, conf)
	token, err := GenerateToken(claims, conf)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()

	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()

	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
