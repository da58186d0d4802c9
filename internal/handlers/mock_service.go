package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mltm/internal/models"
	"mltm/internal/service"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int64
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int64
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(ctx context.Context, username, password string) (int64, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(ctx context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int64, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockIngest struct {
	processAction service.Action
	processErr    error
	enqueueID     string
	enqueueErr    error
	depth         int

	processCalls int
	enqueueCalls int
	lastParams   service.IngestParams
}

func (m *mockIngest) Process(ctx context.Context, p service.IngestParams) (service.Action, error) {
	m.processCalls++
	m.lastParams = p
	return m.processAction, m.processErr
}
func (m *mockIngest) Enqueue(p service.IngestParams) (string, error) {
	m.enqueueCalls++
	m.lastParams = p
	return m.enqueueID, m.enqueueErr
}
func (m *mockIngest) Run(ctx context.Context) {}
func (m *mockIngest) Depth() int              { return m.depth }

type mockReporting struct {
	current     models.CurrentStatus
	currentErr  error
	buckets     []models.ColorBucket
	bucketsErr  error
	week        []models.DayBreakdown
	weekErr     error
	timeline    []models.StatusInterval
	timelineErr error
	overview    models.Overview
	overviewErr error

	lastCode      string
	lastDay       time.Time
	lastWeekStart time.Time
}

func (m *mockReporting) CurrentStatus(ctx context.Context, code string) (models.CurrentStatus, error) {
	m.lastCode = code
	return m.current, m.currentErr
}
func (m *mockReporting) DayBreakdown(ctx context.Context, code string, day time.Time) ([]models.ColorBucket, error) {
	m.lastCode = code
	m.lastDay = day
	return m.buckets, m.bucketsErr
}
func (m *mockReporting) WeekBreakdown(ctx context.Context, code string, weekStart time.Time) ([]models.DayBreakdown, error) {
	m.lastCode = code
	m.lastWeekStart = weekStart
	return m.week, m.weekErr
}
func (m *mockReporting) Timeline(ctx context.Context, code string, day time.Time) ([]models.StatusInterval, error) {
	m.lastCode = code
	m.lastDay = day
	return m.timeline, m.timelineErr
}
func (m *mockReporting) OverviewToday(ctx context.Context) (models.Overview, error) {
	return m.overview, m.overviewErr
}

type mockDirectory struct {
	machines []models.Machine
	colors   []models.StatusColor
	err      error
	pingErr  error
}

func (m *mockDirectory) Machines(ctx context.Context) ([]models.Machine, error) {
	return m.machines, m.err
}
func (m *mockDirectory) Colors(ctx context.Context) ([]models.StatusColor, error) {
	return m.colors, m.err
}
func (m *mockDirectory) Ping(ctx context.Context) error { return m.pingErr }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
