package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/schulportal/apps/api/echo"
	"github.com/trezcool/schulportal/core"
	"github.com/trezcool/schulportal/core/errcode"
	"github.com/trezcool/schulportal/core/session"
	"github.com/trezcool/schulportal/core/zuordnung"
	"github.com/trezcool/schulportal/services/backend"
	"github.com/trezcool/schulportal/services/email"
	"github.com/trezcool/schulportal/storage/inmem"
	"github.com/trezcool/schulportal/tests"
)

var (
	validate   *validator.Validate
	translator ut.Translator
	errCodes   *errcode.Translator

	errUnauthorized = httpErr{Error: "admin not authenticated"}
)

func TestMain(m *testing.M) {
	var err error

	validate, translator = core.NewValidator()
	zuordnung.RegisterValidators(validate, translator)

	if errCodes, err = errcode.NewTranslator("de"); err != nil {
		fmt.Printf("errcode.NewTranslator(): %v", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

// testEnv is a console API backed by a fake school-portal backend.
type testEnv struct {
	app      *echoapi.Server
	backend  *testutil.FakeBackend
	mailSvc  *emailsvc.ConsoleService
	sessions *session.Service
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	backend := testutil.NewFakeBackend()
	srv := backend.Server(t)

	conf := testutil.Config(srv.URL)
	logger := core.NopLogger{}
	client := backendsvc.NewClient(conf, logger)
	sessions := session.NewService(
		inmem.NewSessionRepository(),
		backendsvc.NewSessionFactory(client, conf, logger),
		conf.Session.IdleTTL,
		logger,
	)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:        conf,
		Logger:      logger,
		Sessions:    sessions,
		EmailSvc:    mailSvc,
		Validate:    validate,
		Translator:  translator,
		ErrorCodes:  errCodes,
		DisableLogs: true,
	})
	t.Cleanup(func() { _ = app.Close() })

	return &testEnv{
		app:      app,
		backend:  backend,
		mailSvc:  mailSvc,
		sessions: sessions,
		token:    testutil.Token(t, "admin-1", "admin"),
	}
}

func (env *testEnv) do(method, path string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, env.token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type codedErr struct {
	Code  string `json:"code"`
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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func unmarshalObj(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshalObj(%s): %v", rec.Body.String(), err)
	}
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
