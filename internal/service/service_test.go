package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/tabsplit/internal/auth"
	"github.com/mmynk/tabsplit/internal/metrics"
	"github.com/mmynk/tabsplit/internal/middleware"
	"github.com/mmynk/tabsplit/internal/reminder"
	"github.com/mmynk/tabsplit/internal/storage/sqlite"
	"github.com/mmynk/tabsplit/pkg/api"
	"github.com/mmynk/tabsplit/pkg/api/apiconnect"
	"github.com/mmynk/tabsplit/pkg/currency"
)

const testSecret = "test-secret-key-that-is-long-enough"

// testEnv is a running server with clients authenticated as one user.
type testEnv struct {
	url       string
	auth      *apiconnect.AuthServiceClient
	groups    *apiconnect.GroupServiceClient
	splits    *apiconnect.SplitServiceClient
	reminders *apiconnect.ReminderServiceClient
	scheduler *reminder.MemoryScheduler
	token     string
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tabsplit-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	jwtManager := auth.NewJWTManager(testSecret, time.Hour)
	scheduler := reminder.NewMemoryScheduler()
	rates := currency.NewStaticRates(map[string]float64{"USD/EUR": 0.5})
	m := metrics.New()

	authed := connect.WithInterceptors(middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(logger))

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewAuthServiceHandler(
		NewAuthService(auth.NewPasswordAuthenticator(store, bcrypt.MinCost), jwtManager, logger),
	))
	mux.Handle(apiconnect.NewGroupServiceHandler(NewGroupService(store, scheduler, rates, logger), authed))
	mux.Handle(apiconnect.NewSplitServiceHandler(NewSplitService(store, scheduler, m, logger), authed))
	mux.Handle(apiconnect.NewReminderServiceHandler(NewReminderService(store, scheduler, logger), authed))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	env := &testEnv{
		url:       server.URL,
		auth:      apiconnect.NewAuthServiceClient(http.DefaultClient, server.URL),
		scheduler: scheduler,
	}
	env.login(t, "alice@example.com")
	return env
}

// login registers a user and points the service clients at that user.
func (e *testEnv) login(t *testing.T, email string) {
	t.Helper()

	resp, err := e.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	e.token = resp.Msg.Token
	opt := connect.WithInterceptors(bearer(e.token))
	e.groups = apiconnect.NewGroupServiceClient(http.DefaultClient, e.url, opt)
	e.splits = apiconnect.NewSplitServiceClient(http.DefaultClient, e.url, opt)
	e.reminders = apiconnect.NewReminderServiceClient(http.DefaultClient, e.url, opt)
}

func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

// createGroup creates a group and returns it with member IDs by name.
func (e *testEnv) createGroup(t *testing.T, names ...string) (*api.Group, map[string]string) {
	t.Helper()

	members := make([]api.NewMember, len(names))
	for i, n := range names {
		members[i] = api.NewMember{Name: n}
	}
	resp, err := e.groups.CreateGroup(context.Background(), connect.NewRequest(&api.CreateGroupRequest{
		Name:     "Roommates",
		Currency: "USD",
		Members:  members,
	}))
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	ids := make(map[string]string)
	for _, m := range resp.Msg.Group.Members {
		ids[m.Name] = m.ID
	}
	return resp.Msg.Group, ids
}

func (e *testEnv) createBill(t *testing.T, groupID string, in api.SplitInput) *api.BillResponse {
	t.Helper()

	resp, err := e.splits.CreateBill(context.Background(), connect.NewRequest(&api.CreateBillRequest{
		GroupID:    groupID,
		Title:      "Groceries",
		SplitInput: in,
	}))
	if err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}
	return resp.Msg
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect error, got %v", err)
	}
	if connectErr.Code() != want {
		t.Errorf("code: expected %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

func approx(got, want float64) bool {
	return math.Abs(got-want) <= 0.01
}

func splitOf(t *testing.T, bill *api.Bill, memberID string) api.Split {
	t.Helper()

	for _, s := range bill.Splits {
		if s.MemberID == memberID {
			return s
		}
	}
	t.Fatalf("no split for member %s", memberID)
	return api.Split{}
}

// setupClientsWithToken returns a group client sending token, or no
// Authorization header when token is empty.
func setupClientsWithToken(e *testEnv, token string) *apiconnect.GroupServiceClient {
	if token == "" {
		return apiconnect.NewGroupServiceClient(http.DefaultClient, e.url)
	}
	return apiconnect.NewGroupServiceClient(http.DefaultClient, e.url, connect.WithInterceptors(bearer(token)))
}
