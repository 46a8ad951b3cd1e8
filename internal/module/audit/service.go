package audit

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jonathanbglass/cloudauditor/internal/domain"
	"github.com/jonathanbglass/cloudauditor/internal/report"
)

// PolicyDocument is a stored IAM policy document.
type PolicyDocument struct {
	Name     string
	Document string
}

// AccountOption is one entry of the "Filter by Account" selector.
type AccountOption struct {
	Value string
	Name  string
}

// ReportResult is one executed report statement and its rows.
type ReportResult struct {
	Statement domain.Statement
	Rows      *domain.ResultSet
}

// QueryObserver receives timing for every executed statement.
type QueryObserver interface {
	ObserveQuery(report string, d time.Duration, err error)
}

// Service runs the audit reports.
type Service interface {
	Reports() []*report.Definition
	Lookup(name string) (*report.Definition, error)
	Run(ctx context.Context, def *report.Definition, order report.SortResolution, filter report.FilterState) (*ReportResult, error)
	AccountOptions(ctx context.Context, def *report.Definition) ([]AccountOption, error)
	Summary(ctx context.Context, def *report.Definition) ([]report.SummaryValue, error)
	PolicyDocument(ctx context.Context, arn string) (*PolicyDocument, error)
}

// ServiceOption configures the report service.
type ServiceOption func(*reportService)

// WithQueryTimeout bounds every statement execution.
func WithQueryTimeout(d time.Duration) ServiceOption {
	return func(s *reportService) {
		s.timeout = d
	}
}

// WithQueryObserver records statement timings.
func WithQueryObserver(o QueryObserver) ServiceOption {
	return func(s *reportService) {
		s.observer = o
	}
}

// reportService implements Service.
type reportService struct {
	registry *report.Registry
	repo     Repository
	timeout  time.Duration
	observer QueryObserver
}

// NewReportService creates a Service over the given registry and repository.
func NewReportService(registry *report.Registry, repo Repository, opts ...ServiceOption) Service {
	s := &reportService{registry: registry, repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reports lists the registered reports.
func (s *reportService) Reports() []*report.Definition {
	return s.registry.All()
}

// Lookup finds a report by name.
func (s *reportService) Lookup(name string) (*report.Definition, error) {
	def, ok := s.registry.Lookup(name)
	if !ok {
		return nil, domain.NewAppError(domain.CodeNotFound, "report not found", nil)
	}
	return def, nil
}

// Run executes the report and, for reports with an aggregation, folds the
// per-row sub-queries into the result. On failure the returned result still
// carries the statement and an empty row set.
func (s *reportService) Run(ctx context.Context, def *report.Definition, order report.SortResolution, filter report.FilterState) (*ReportResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result := &ReportResult{
		Statement: def.Statement(order, filter),
		Rows:      &domain.ResultSet{},
	}

	rs, err := s.query(ctx, def.Name, result.Statement)
	if err != nil {
		return result, err
	}

	if agg := def.Aggregation; agg != nil {
		for _, row := range rs.Rows {
			sub, err := s.query(ctx, def.Name, agg.Statement(row))
			if err != nil {
				return result, err
			}
			agg.Apply(row, sub)
		}
	}

	result.Rows = rs
	return result, nil
}

// AccountOptions lists the selectable accounts, ordered by name without
// regard to case.
func (s *reportService) AccountOptions(ctx context.Context, def *report.Definition) ([]AccountOption, error) {
	if def.Filter == nil || def.AccountOptions == "" {
		return nil, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rs, err := s.query(ctx, def.Name, domain.Statement{SQL: def.AccountOptions, Intent: "list accounts for " + def.Name})
	if err != nil {
		return nil, err
	}

	seen := make(map[report.AccountID]struct{}, rs.Len())
	opts := make([]AccountOption, 0, rs.Len())
	for _, row := range rs.Rows {
		id, ok := report.AccountIDFromValue(row["aws_account_id"])
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		name, _ := row["aws_account_name"].(string)
		opts = append(opts, AccountOption{Value: id.String(), Name: name})
	}

	sort.SliceStable(opts, func(i, j int) bool {
		return strings.ToLower(opts[i].Name) < strings.ToLower(opts[j].Name)
	})
	return opts, nil
}

// Summary loads the KPI panel for reports that declare one.
func (s *reportService) Summary(ctx context.Context, def *report.Definition) ([]report.SummaryValue, error) {
	stmt, ok := def.SummaryStatement()
	if !ok {
		return nil, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rs, err := s.query(ctx, def.Name, stmt)
	if err != nil {
		return def.SummaryValues(nil), err
	}
	var row domain.Row
	if rs.Len() > 0 {
		row = rs.Rows[0]
	}
	return def.SummaryValues(row), nil
}

// PolicyDocument returns the latest stored document for a policy ARN.
func (s *reportService) PolicyDocument(ctx context.Context, arn string) (*PolicyDocument, error) {
	arn = strings.TrimSpace(arn)
	if arn == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "policy arn is required", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.LatestPolicy(ctx, arn)
}

func (s *reportService) query(ctx context.Context, name string, stmt domain.Statement) (*domain.ResultSet, error) {
	start := time.Now()
	rs, err := s.repo.Query(ctx, stmt)
	if s.observer != nil {
		s.observer.ObserveQuery(name, time.Since(start), err)
	}
	if err != nil {
		if !domain.IsQuery(err) {
			err = domain.NewQueryError(stmt.Intent, err)
		}
		return nil, err
	}
	if rs == nil {
		rs = &domain.ResultSet{}
	}
	return rs, nil
}

func (s *reportService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
