package testutil

import (
	"context"
	"time"

	"github.com/usagesentry/usagesentry/internal/domain/anomaly"
	"github.com/usagesentry/usagesentry/internal/domain/detection"
	"github.com/usagesentry/usagesentry/internal/domain/incident"
	"github.com/usagesentry/usagesentry/internal/domain/usage"
	"github.com/usagesentry/usagesentry/internal/notify"
	"github.com/usagesentry/usagesentry/internal/pkg/errors"
	"github.com/usagesentry/usagesentry/internal/pkg/logger"
)

// NewTestLogger creates a quiet logger for tests
func NewTestLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

// MockAnomalyRepository is an in-memory implementation of anomaly.Repository
type MockAnomalyRepository struct {
	Anomalies map[int64]*anomaly.Anomaly
	NextID    int64

	CreateError  error
	ListError    error
	ResolveError error
}

func NewMockAnomalyRepository() *MockAnomalyRepository {
	return &MockAnomalyRepository{
		Anomalies: make(map[int64]*anomaly.Anomaly),
		NextID:    1,
	}
}

func (m *MockAnomalyRepository) Create(ctx context.Context, a *anomaly.Anomaly) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	stored := *a
	stored.ID = m.NextID
	m.NextID++
	m.Anomalies[stored.ID] = &stored
	return stored.ID, nil
}

func (m *MockAnomalyRepository) GetByID(ctx context.Context, id int64) (*anomaly.Anomaly, error) {
	a, ok := m.Anomalies[id]
	if !ok {
		return nil, errors.NotFound("anomaly")
	}
	copied := *a
	return &copied, nil
}

func (m *MockAnomalyRepository) ListOpen(ctx context.Context) ([]*anomaly.Anomaly, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*anomaly.Anomaly
	for _, a := range m.Anomalies {
		if a.ResolvedAt == nil {
			copied := *a
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *MockAnomalyRepository) Resolve(ctx context.Context, id int64) error {
	if m.ResolveError != nil {
		return m.ResolveError
	}
	a, ok := m.Anomalies[id]
	if !ok || a.ResolvedAt != nil {
		return nil
	}
	now := time.Now()
	a.ResolvedAt = &now
	return nil
}

func (m *MockAnomalyRepository) MarkAlerted(ctx context.Context, id int64) error {
	a, ok := m.Anomalies[id]
	if !ok || a.AlertedAt != nil {
		return nil
	}
	now := time.Now()
	a.AlertedAt = &now
	return nil
}

func (m *MockAnomalyRepository) ListWithPagination(ctx context.Context, filter anomaly.Filter, limit, offset int) ([]*anomaly.Anomaly, int64, error) {
	var out []*anomaly.Anomaly
	for _, a := range m.Anomalies {
		if filter.SubjectID != "" && a.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Type != "" && string(a.Type) != filter.Type {
			continue
		}
		if filter.Metric != "" && string(a.Metric) != filter.Metric {
			continue
		}
		if filter.Severity != "" && string(a.Severity) != filter.Severity {
			continue
		}
		if filter.Open != nil && a.IsOpen() != *filter.Open {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (m *MockAnomalyRepository) CountOpenBySeverity(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, a := range m.Anomalies {
		if a.ResolvedAt == nil {
			counts[string(a.Severity)]++
		}
	}
	return counts, nil
}

// OpenCount returns the number of unresolved anomalies
func (m *MockAnomalyRepository) OpenCount() int {
	n := 0
	for _, a := range m.Anomalies {
		if a.ResolvedAt == nil {
			n++
		}
	}
	return n
}

// MockIncidentRepository is an in-memory implementation of incident.Repository
type MockIncidentRepository struct {
	Incidents map[int64]*incident.Incident
	NextID    int64

	CreateError error
	UpdateError error
}

func NewMockIncidentRepository() *MockIncidentRepository {
	return &MockIncidentRepository{
		Incidents: make(map[int64]*incident.Incident),
		NextID:    1,
	}
}

func (m *MockIncidentRepository) Create(ctx context.Context, inc *incident.Incident) (int64, error) {
	if m.CreateError != nil {
		return 0, m.CreateError
	}
	stored := *inc
	stored.ID = m.NextID
	m.NextID++
	m.Incidents[stored.ID] = &stored
	return stored.ID, nil
}

func (m *MockIncidentRepository) GetByID(ctx context.Context, id int64) (*incident.Incident, error) {
	inc, ok := m.Incidents[id]
	if !ok {
		return nil, errors.NotFound("incident")
	}
	copied := *inc
	return &copied, nil
}

func (m *MockIncidentRepository) GetByAnomalyID(ctx context.Context, anomalyID int64) (*incident.Incident, error) {
	for _, inc := range m.Incidents {
		if inc.AnomalyID == anomalyID {
			copied := *inc
			return &copied, nil
		}
	}
	return nil, errors.NotFound("incident")
}

func (m *MockIncidentRepository) Update(ctx context.Context, inc *incident.Incident) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	if _, ok := m.Incidents[inc.ID]; !ok {
		return errors.NotFound("incident")
	}
	stored := *inc
	m.Incidents[inc.ID] = &stored
	return nil
}

func (m *MockIncidentRepository) ListWithPagination(ctx context.Context, filter incident.Filter, limit, offset int) ([]*incident.Incident, int64, error) {
	var out []*incident.Incident
	for _, inc := range m.Incidents {
		if filter.SubjectID != "" && inc.SubjectID != filter.SubjectID {
			continue
		}
		if filter.Status != "" && string(inc.Status) != filter.Status {
			continue
		}
		copied := *inc
		out = append(out, &copied)
	}
	return out, int64(len(out)), nil
}

func (m *MockIncidentRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, inc := range m.Incidents {
		counts[string(inc.Status)]++
	}
	return counts, nil
}

// MockUsageRepository is a canned-data implementation of usage.Repository.
// The *Func fields take precedence over the static data fields, letting a
// test vary the response by query window.
type MockUsageRepository struct {
	CycleSpendData     []usage.MemberSpend
	TotalsData         []usage.MemberTotals
	TotalsFunc         func(from, to time.Time) []usage.MemberTotals
	DailyTotalsData    []usage.MemberDay
	DailyTotalsFunc    func(from, to time.Time) []usage.MemberDay
	ModelBreakdownData []usage.ModelUsage
	ModelBreakdownFunc func(from, to time.Time) []usage.ModelUsage
	TopModels          map[string]string
	LatestEvent        *time.Time

	Members []usage.Member
	Events  []usage.Event

	Err error
}

func NewMockUsageRepository() *MockUsageRepository {
	return &MockUsageRepository{TopModels: make(map[string]string)}
}

func (m *MockUsageRepository) UpsertMembers(ctx context.Context, members []usage.Member) error {
	if m.Err != nil {
		return m.Err
	}
	m.Members = append(m.Members, members...)
	return nil
}

func (m *MockUsageRepository) RecordEvents(ctx context.Context, events []usage.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, events...)
	return nil
}

func (m *MockUsageRepository) CycleSpend(ctx context.Context, cycleStart time.Time) ([]usage.MemberSpend, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.CycleSpendData, nil
}

func (m *MockUsageRepository) Totals(ctx context.Context, from, to time.Time) ([]usage.MemberTotals, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.TotalsFunc != nil {
		return m.TotalsFunc(from, to), nil
	}
	return m.TotalsData, nil
}

func (m *MockUsageRepository) DailyTotals(ctx context.Context, from, to time.Time) ([]usage.MemberDay, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyTotalsFunc != nil {
		return m.DailyTotalsFunc(from, to), nil
	}
	return m.DailyTotalsData, nil
}

func (m *MockUsageRepository) ModelBreakdown(ctx context.Context, from, to time.Time) ([]usage.ModelUsage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.ModelBreakdownFunc != nil {
		return m.ModelBreakdownFunc(from, to), nil
	}
	return m.ModelBreakdownData, nil
}

func (m *MockUsageRepository) TopModelByTokens(ctx context.Context, memberID string, from, to time.Time) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.TopModels[memberID], nil
}

func (m *MockUsageRepository) LatestEventTime(ctx context.Context) (*time.Time, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.LatestEvent, nil
}

// MockConfigRepository is an in-memory implementation of detection.Repository
type MockConfigRepository struct {
	Cfg         *detection.Config
	GetError    error
	UpdateError error
}

func NewMockConfigRepository() *MockConfigRepository {
	cfg := detection.DefaultConfig()
	return &MockConfigRepository{Cfg: &cfg}
}

func (m *MockConfigRepository) Get(ctx context.Context) (*detection.Config, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	copied := *m.Cfg
	return &copied, nil
}

func (m *MockConfigRepository) Update(ctx context.Context, cfg *detection.Config) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	copied := *cfg
	m.Cfg = &copied
	return nil
}

// MockChannel is a notify.Channel capturing sent alerts
type MockChannel struct {
	ChannelName string
	SendError   error
	Sent        []notify.Alert
}

func (m *MockChannel) Name() string {
	return m.ChannelName
}

func (m *MockChannel) Send(ctx context.Context, alert notify.Alert) error {
	if m.SendError != nil {
		return m.SendError
	}
	m.Sent = append(m.Sent, alert)
	return nil
}
