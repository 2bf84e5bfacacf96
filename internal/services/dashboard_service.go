package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/workstead/workstead/internal/models"
)

// TaskBreakdown splits task counts by status.
type TaskBreakdown struct {
	Total      int64 `json:"total"`
	Open       int64 `json:"open"`
	InProgress int64 `json:"in_progress"`
	Done       int64 `json:"done"`
}

// ReportTotals counts each compliance form type.
type ReportTotals struct {
	Accidents  int64 `json:"accidents"`
	Illnesses  int64 `json:"illnesses"`
	Departures int64 `json:"departures"`
	Total      int64 `json:"total"`
}

// MonthCount is one bucket of the trailing-year report histogram.
type MonthCount struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// DashboardSummary aggregates the counts and trends a dashboard screen renders.
type DashboardSummary struct {
	Companies       int64        `json:"companies"`
	Users           int64        `json:"users"`
	Tasks           TaskBreakdown `json:"tasks"`
	Reports         ReportTotals  `json:"reports"`
	ReportsByMonth  []MonthCount  `json:"reports_by_month"`
	UserGrowthPct   float64       `json:"user_growth_pct"`
	ReportGrowthPct float64       `json:"report_growth_pct"`
	ChartTickStep   int64         `json:"chart_tick_step"`
}

// DashboardService computes aggregate statistics scoped to the caller.
type DashboardService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDashboardService constructs a DashboardService instance.
func NewDashboardService(db *gorm.DB) (*DashboardService, error) {
	if db == nil {
		return nil, errors.New("dashboard service: db is required")
	}
	return &DashboardService{db: db, now: time.Now}, nil
}

// Summary runs the independent aggregations concurrently and assembles the
// dashboard payload. The first failing query aborts the remainder.
func (s *DashboardService) Summary(ctx context.Context, scope Scope) (*DashboardSummary, error) {
	ctx = ensureContext(ctx)
	now := s.now()

	summary := &DashboardSummary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		query := s.db.WithContext(gctx).Model(&models.Company{})
		if !scope.isSuperAdmin() {
			query = query.Where("id = ?", scope.CompanyID)
		}
		return query.Count(&summary.Companies).Error
	})

	g.Go(func() error {
		query := applyUserScope(s.db.WithContext(gctx).Model(&models.User{}), scope)
		return query.Count(&summary.Users).Error
	})

	g.Go(func() error {
		return s.taskBreakdown(gctx, scope, &summary.Tasks)
	})

	g.Go(func() error {
		return s.reportTotals(gctx, scope, &summary.Reports)
	})

	var months []MonthCount
	g.Go(func() error {
		buckets, err := s.reportsByMonth(gctx, scope, now)
		if err != nil {
			return err
		}
		months = buckets
		return nil
	})

	var userGrowth, reportGrowth float64
	g.Go(func() error {
		pct, err := s.userMonthGrowth(gctx, scope, now)
		if err != nil {
			return err
		}
		userGrowth = pct
		return nil
	})

	g.Go(func() error {
		pct, err := s.reportMonthGrowth(gctx, scope, now)
		if err != nil {
			return err
		}
		reportGrowth = pct
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("dashboard service: summary: %w", err)
	}

	summary.ReportsByMonth = months
	summary.UserGrowthPct = userGrowth
	summary.ReportGrowthPct = reportGrowth

	var maxBucket int64
	for _, m := range months {
		if m.Count > maxBucket {
			maxBucket = m.Count
		}
	}
	summary.ChartTickStep = NiceTickStep(maxBucket)

	return summary, nil
}

func (s *DashboardService) taskBreakdown(ctx context.Context, scope Scope, out *TaskBreakdown) error {
	type row struct {
		Status string
		Count  int64
	}

	var rows []row
	query := applyTaskScope(s.db.WithContext(ctx).Model(&models.Task{}), scope)
	if err := query.Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return err
	}

	for _, r := range rows {
		out.Total += r.Count
		switch r.Status {
		case models.TaskStatusOpen:
			out.Open = r.Count
		case models.TaskStatusInProgress:
			out.InProgress = r.Count
		case models.TaskStatusDone:
			out.Done = r.Count
		}
	}
	return nil
}

func (s *DashboardService) reportTotals(ctx context.Context, scope Scope, out *ReportTotals) error {
	count := func(model any, dest *int64) error {
		query := applyReportScope(s.db.WithContext(ctx).Model(model), scope)
		return query.Count(dest).Error
	}

	if err := count(&models.AccidentReport{}, &out.Accidents); err != nil {
		return err
	}
	if err := count(&models.IllnessReport{}, &out.Illnesses); err != nil {
		return err
	}
	if err := count(&models.StaffDepartureReport{}, &out.Departures); err != nil {
		return err
	}
	out.Total = out.Accidents + out.Illnesses + out.Departures
	return nil
}

// reportsByMonth buckets all report types by creation month for the trailing
// twelve months, oldest first. Bucketing happens in Go so the query stays
// portable across drivers.
func (s *DashboardService) reportsByMonth(ctx context.Context, scope Scope, now time.Time) ([]MonthCount, error) {
	start := monthStart(now).AddDate(0, -11, 0)

	counts := make(map[string]int64, 12)
	for _, model := range []any{&models.AccidentReport{}, &models.IllnessReport{}, &models.StaffDepartureReport{}} {
		var stamps []time.Time
		query := applyReportScope(s.db.WithContext(ctx).Model(model), scope)
		if err := query.Where("created_at >= ?", start).Pluck("created_at", &stamps).Error; err != nil {
			return nil, err
		}
		for _, ts := range stamps {
			counts[ts.Format("2006-01")]++
		}
	}

	buckets := make([]MonthCount, 0, 12)
	for i := 0; i < 12; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		buckets = append(buckets, MonthCount{Month: month, Count: counts[month]})
	}
	return buckets, nil
}

// userMonthGrowth compares users created this month against last month,
// within the caller's visibility.
func (s *DashboardService) userMonthGrowth(ctx context.Context, scope Scope, now time.Time) (float64, error) {
	thisMonth := monthStart(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	countBetween := func(from, to time.Time) (int64, error) {
		var n int64
		query := applyUserScope(s.db.WithContext(ctx).Model(&models.User{}), scope)
		err := query.Where("created_at >= ? AND created_at < ?", from, to).Count(&n).Error
		return n, err
	}

	current, err := countBetween(thisMonth, thisMonth.AddDate(0, 1, 0))
	if err != nil {
		return 0, err
	}
	previous, err := countBetween(lastMonth, thisMonth)
	if err != nil {
		return 0, err
	}
	return growthPct(current, previous), nil
}

func (s *DashboardService) reportMonthGrowth(ctx context.Context, scope Scope, now time.Time) (float64, error) {
	thisMonth := monthStart(now)
	lastMonth := thisMonth.AddDate(0, -1, 0)

	var current, previous int64
	for _, model := range []any{&models.AccidentReport{}, &models.IllnessReport{}, &models.StaffDepartureReport{}} {
		var n int64
		query := applyReportScope(s.db.WithContext(ctx).Model(model), scope)
		if err := query.Where("created_at >= ?", thisMonth).Count(&n).Error; err != nil {
			return 0, err
		}
		current += n

		query = applyReportScope(s.db.WithContext(ctx).Model(model), scope)
		if err := query.Where("created_at >= ? AND created_at < ?", lastMonth, thisMonth).Count(&n).Error; err != nil {
			return 0, err
		}
		previous += n
	}
	return growthPct(current, previous), nil
}

// growthPct returns the month-over-month change as a percentage. A previous
// month of zero maps to 100% when anything was created and 0% otherwise.
func growthPct(current, previous int64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}

// NiceTickStep picks the smallest round step (1, 2 or 5 times a power of ten)
// so that five steps cover the chart's maximum value.
func NiceTickStep(max int64) int64 {
	if max <= 0 {
		return 1
	}

	for magnitude := int64(1); ; magnitude *= 10 {
		for _, mult := range []int64{1, 2, 5} {
			step := mult * magnitude
			if step*5 >= max {
				return step
			}
		}
	}
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
