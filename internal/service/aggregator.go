package service

import (
	"context"
	"time"

	"mltm/internal/models"
	"mltm/internal/repository"
)

const day = 24 * time.Hour

// ReportingService answers duration and timeline queries by clipping
// stored intervals to the requested window. Open intervals count up to
// the current instant.
type ReportingService struct {
	machines  repository.Machines
	intervals repository.Intervals
	ids       Identifiers

	now func() time.Time // injectable for tests
}

func NewReportingService(machines repository.Machines, intervals repository.Intervals, ids Identifiers) *ReportingService {
	return &ReportingService{
		machines:  machines,
		intervals: intervals,
		ids:       ids,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var _ Reporting = (*ReportingService)(nil)

// CurrentStatus reports what the machine is doing now, or the unknown
// sentinel when no interval is open.
func (s *ReportingService) CurrentStatus(ctx context.Context, code string) (models.CurrentStatus, error) {
	machineID, err := s.ids.ResolveMachine(ctx, code)
	if err != nil {
		return models.CurrentStatus{}, err
	}
	return s.currentByID(ctx, machineID)
}

func (s *ReportingService) currentByID(ctx context.Context, machineID int64) (models.CurrentStatus, error) {
	open, err := s.intervals.GetOpen(ctx, machineID)
	if err != nil {
		return models.CurrentStatus{}, err
	}
	if open == nil {
		return models.CurrentStatus{Color: string(models.ColorUnknown), Hex: models.UnknownHex}, nil
	}
	since := open.StartTime
	return models.CurrentStatus{Color: open.Color, Hex: open.Hex, Since: &since}, nil
}

// DayBreakdown reports per-color seconds for [day, day+24h).
func (s *ReportingService) DayBreakdown(ctx context.Context, code string, dayStart time.Time) ([]models.ColorBucket, error) {
	machineID, err := s.ids.ResolveMachine(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.secondsByColor(ctx, machineID, dayStart, dayStart.Add(day), true)
}

// WeekBreakdown is seven consecutive day breakdowns starting at weekStart.
func (s *ReportingService) WeekBreakdown(ctx context.Context, code string, weekStart time.Time) ([]models.DayBreakdown, error) {
	machineID, err := s.ids.ResolveMachine(ctx, code)
	if err != nil {
		return nil, err
	}

	out := make([]models.DayBreakdown, 0, 7)
	for i := 0; i < 7; i++ {
		dayStart := weekStart.Add(time.Duration(i) * day)
		buckets, err := s.secondsByColor(ctx, machineID, dayStart, dayStart.Add(day), true)
		if err != nil {
			return nil, err
		}
		out = append(out, models.DayBreakdown{
			Date:    dayStart.Format("2006-01-02"),
			Buckets: buckets,
		})
	}
	return out, nil
}

// Timeline returns the machine's raw intervals overlapping [day, day+24h),
// ordered by start time.
func (s *ReportingService) Timeline(ctx context.Context, code string, dayStart time.Time) ([]models.StatusInterval, error) {
	machineID, err := s.ids.ResolveMachine(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.intervals.ListOverlapping(ctx, machineID, dayStart, dayStart.Add(day), s.now())
}

// OverviewToday is the dashboard snapshot: every machine's current status
// plus its tracked-color buckets for today. Legacy buckets are omitted
// here, matching the original dashboard payload.
func (s *ReportingService) OverviewToday(ctx context.Context) (models.Overview, error) {
	now := s.now()
	dayStart := now.Truncate(day)

	list, err := s.machines.List(ctx)
	if err != nil {
		return models.Overview{}, err
	}

	overview := models.Overview{
		Date:     dayStart.Format("2006-01-02"),
		Overview: make([]models.MachineOverview, 0, len(list)),
	}
	for _, m := range list {
		current, err := s.currentByID(ctx, m.ID)
		if err != nil {
			return models.Overview{}, err
		}
		buckets, err := s.secondsByColor(ctx, m.ID, dayStart, dayStart.Add(day), false)
		if err != nil {
			return models.Overview{}, err
		}
		overview.Overview = append(overview.Overview, models.MachineOverview{
			Machine: m,
			Current: current,
			Buckets: buckets,
		})
	}
	return overview, nil
}

// secondsByColor clips each overlapping interval to [winStart, winEnd) and
// sums the overlap per color. Every tracked color is always present, zeros
// included; withLegacy appends the always-zero blue/off pair older callers
// still read.
func (s *ReportingService) secondsByColor(ctx context.Context, machineID int64, winStart, winEnd time.Time, withLegacy bool) ([]models.ColorBucket, error) {
	now := s.now()
	ivs, err := s.intervals.ListOverlapping(ctx, machineID, winStart, winEnd, now)
	if err != nil {
		return nil, err
	}

	totals := map[string]int64{}
	for _, iv := range ivs {
		end := now
		if iv.EndTime != nil {
			end = *iv.EndTime
		}
		totals[iv.Color] += overlapSeconds(iv.StartTime, end, winStart, winEnd)
	}

	buckets := make([]models.ColorBucket, 0, len(models.TrackedColors)+len(models.LegacyColors))
	for _, c := range models.TrackedColors {
		buckets = append(buckets, models.ColorBucket{Color: string(c), Seconds: totals[string(c)]})
	}
	if withLegacy {
		for _, c := range models.LegacyColors {
			buckets = append(buckets, models.ColorBucket{Color: c, Seconds: 0})
		}
	}
	return buckets, nil
}

// overlapSeconds is max(0, min(end, winEnd) - max(start, winStart)).
func overlapSeconds(start, end, winStart, winEnd time.Time) int64 {
	if start.Before(winStart) {
		start = winStart
	}
	if end.After(winEnd) {
		end = winEnd
	}
	if !end.After(start) {
		return 0
	}
	return int64(end.Sub(start).Seconds())
}
