package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/sushihentaime/showcase/internal/contentservice"
	"github.com/sushihentaime/showcase/internal/userservice"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) LoginUser(ctx context.Context, username, password string) (*userservice.LoginResult, error) {
	args := m.Called(ctx, username, password)
	res, _ := args.Get(0).(*userservice.LoginResult)
	return res, args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, token string) (*userservice.User, error) {
	args := m.Called(ctx, token)
	u, _ := args.Get(0).(*userservice.User)
	return u, args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*userservice.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*userservice.User)
	return users, args.Error(1)
}

func (m *MockUserService) CreateUser(ctx context.Context, username, password, email string, level userservice.Level) (*userservice.User, error) {
	args := m.Called(ctx, username, password, email, level)
	u, _ := args.Get(0).(*userservice.User)
	return u, args.Error(1)
}

func (m *MockUserService) DeleteUser(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockEntityService struct {
	mock.Mock
	resource contentservice.Resource
}

func (m *MockEntityService) Resource() contentservice.Resource {
	return m.resource
}

func (m *MockEntityService) Create(ctx context.Context, in contentservice.Input) (*contentservice.Entity, error) {
	args := m.Called(ctx, in)
	e, _ := args.Get(0).(*contentservice.Entity)
	return e, args.Error(1)
}

func (m *MockEntityService) Update(ctx context.Context, id int, in contentservice.Input) (*contentservice.Entity, error) {
	args := m.Called(ctx, id, in)
	e, _ := args.Get(0).(*contentservice.Entity)
	return e, args.Error(1)
}

func (m *MockEntityService) Delete(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockEntityService) List(ctx context.Context) ([]*contentservice.Entity, error) {
	args := m.Called(ctx)
	entities, _ := args.Get(0).([]*contentservice.Entity)
	return entities, args.Error(1)
}

func (m *MockEntityService) GetByID(ctx context.Context, id int) (*contentservice.Entity, error) {
	args := m.Called(ctx, id)
	e, _ := args.Get(0).(*contentservice.Entity)
	return e, args.Error(1)
}

var (
	testAdmin  = &userservice.User{ID: 1, Username: "admin", Email: "admin@example.com", Level: userservice.LevelAdmin}
	testEditor = &userservice.User{ID: 2, Username: "editor", Email: "editor@example.com", Level: userservice.LevelEditor}
)

const (
	adminToken  = "admin-token"
	editorToken = "editor-token"
)

func testConfig(t *testing.T) *Config {
	return &Config{
		Environment:    "testing",
		Version:        "test",
		TrustedOrigins: []string{"http://localhost:3000"},
		UploadDir:      t.TempDir(),
		MaxUploadBytes: 1 << 20,
	}
}

// newMockApplication wires an application around mocks. Both test tokens authenticate and any other token is
// rejected. Expectations added by setup take precedence over those defaults.
func newMockApplication(t *testing.T, setup ...func(*MockUserService)) (*application, *MockUserService, map[string]*MockEntityService) {
	users := new(MockUserService)
	for _, fn := range setup {
		fn(users)
	}
	users.On("Authenticate", mock.Anything, adminToken).Return(testAdmin, nil).Maybe()
	users.On("Authenticate", mock.Anything, editorToken).Return(testEditor, nil).Maybe()
	users.On("Authenticate", mock.Anything, mock.Anything).Return(nil, userservice.ErrInvalidToken).Maybe()

	mocks := make(map[string]*MockEntityService)
	var entities []entityService
	for _, r := range contentservice.Resources() {
		m := &MockEntityService{resource: r}
		mocks[r.Name] = m
		entities = append(entities, m)
	}

	app := &application{
		config:      testConfig(t),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		userService: users,
		entities:    entities,
	}

	t.Cleanup(func() {
		users.AssertExpectations(t)
		for _, m := range mocks {
			m.AssertExpectations(t)
		}
	})

	return app, users, mocks
}

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

// do sends the request and decodes the JSON response into dst when dst is not nil.
func (ts *testServer) do(t *testing.T, method, path, token, contentType string, body io.Reader, dst any) (int, http.Header) {
	req, err := http.NewRequest(method, ts.URL+path, body)
	require.NoError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	if dst != nil {
		require.NoError(t, json.Unmarshal(raw, dst), string(raw))
	}

	return res.StatusCode, res.Header
}

func (ts *testServer) json(t *testing.T, method, path, token string, payload any, dst any) (int, http.Header) {
	var body io.Reader
	if payload != nil {
		js, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(js)
	}

	return ts.do(t, method, path, token, "application/json", body, dst)
}

type formFile struct {
	name    string
	content []byte
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]formFile) (io.Reader, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for slot, f := range files {
		fw, err := mw.CreateFormFile(slot, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}
