package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/greenify/greenify/models"
)

// UpsertRequest is one day's submission as received from a client.
type UpsertRequest struct {
	Date string `json:"date"`
	Activity
}

// RawActivity echoes the submitted activity back to the client.
type RawActivity struct {
	Date string `json:"date"`
	Activity
}

// EntryView is what callers see for a (user, date) entry.
type EntryView struct {
	Date        string      `json:"date"`
	PointsTotal int         `json:"pointsTotal"`
	Raw         RawActivity `json:"raw"`
}

// StreakView is what callers see for a user's streak.
type StreakView struct {
	Current  int     `json:"current"`
	Longest  int     `json:"longest"`
	Goal     int     `json:"goal"`
	LastDate *string `json:"lastDate"`
}

// StreakCache stores rendered streak views. A miss only costs a database read;
// write errors are reported so callers can log them.
type StreakCache interface {
	Get(ctx context.Context, userID uint) (StreakView, bool)
	Set(ctx context.Context, userID uint, view StreakView) error
	Invalidate(ctx context.Context, userID uint) error
}

type noopCache struct{}

func (noopCache) Get(context.Context, uint) (StreakView, bool) { return StreakView{}, false }
func (noopCache) Set(context.Context, uint, StreakView) error  { return nil }
func (noopCache) Invalidate(context.Context, uint) error       { return nil }

// EntryService orchestrates entry upserts and the streak engine.
type EntryService struct {
	uow    UnitOfWork
	engine *StreakEngine
	locks  *UserLocks
	cache  StreakCache
	logger *zap.Logger
}

// Option configures an EntryService.
type Option func(*EntryService)

// WithCache serves streak views through c.
func WithCache(c StreakCache) Option {
	return func(s *EntryService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *EntryService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocks shares a lock table between services of the same process.
func WithLocks(l *UserLocks) Option {
	return func(s *EntryService) {
		if l != nil {
			s.locks = l
		}
	}
}

// NewEntryService creates an EntryService over uow.
func NewEntryService(uow UnitOfWork, opts ...Option) *EntryService {
	s := &EntryService{
		uow:    uow,
		locks:  NewUserLocks(),
		cache:  noopCache{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = NewStreakEngine(s.logger)
	return s
}

// Upsert creates or overwrites the user's entry for req.Date, recomputes its
// points and advances the streak. Entry and streak commit together or not at all.
// It returns ErrUserNotFound once the account has been deleted.
func (s *EntryService) Upsert(ctx context.Context, userID uint, req UpsertRequest) (EntryView, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return EntryView{}, err
	}
	if err := req.Activity.Validate(); err != nil {
		return EntryView{}, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var (
		saved  models.DailyEntry
		streak *models.Streak
	)
	err = s.uow.Do(ctx, func(st Stores) error {
		if err := st.Users.LockUser(ctx, userID); err != nil {
			return err
		}
		entry, err := st.Entries.FindEntry(ctx, userID, date)
		if err != nil {
			return fmt.Errorf("load entry: %w", err)
		}
		if entry == nil {
			entry = &models.DailyEntry{UserID: userID, Date: date}
		}

		entry.MilesDriven = req.MilesDriven
		entry.TrashCount = req.TrashCount
		entry.RecycleCount = req.RecycleCount
		entry.ReusableBag = req.ReusableBag
		entry.ReusableBottle = req.ReusableBottle
		entry.PointsTotal = ComputePoints(req.Activity)

		if err := st.Entries.SaveEntry(ctx, entry); err != nil {
			return fmt.Errorf("save entry: %w", err)
		}
		rec, err := s.engine.ApplyDailyResult(ctx, st.Streaks, userID, date, entry.PointsTotal)
		if err != nil {
			return err
		}
		saved, streak = *entry, rec
		return nil
	})
	if err != nil {
		s.logger.Warn("daily entry upsert failed",
			zap.Uint("user_id", userID), zap.String("date", date.String()), zap.Error(err))
		return EntryView{}, err
	}

	s.refreshCache(ctx, userID, toStreakView(streak))
	return toView(&saved), nil
}

// Get returns the user's entry for date, or a zero-valued view when there is none.
func (s *EntryService) Get(ctx context.Context, userID uint, rawDate string) (EntryView, error) {
	date, err := parseDate(rawDate)
	if err != nil {
		return EntryView{}, err
	}
	entry, err := s.uow.Stores().Entries.FindEntry(ctx, userID, date)
	if err != nil {
		return EntryView{}, err
	}
	if entry == nil {
		entry = &models.DailyEntry{UserID: userID, Date: date}
	}
	return toView(entry), nil
}

// Streak returns the user's streak, or defaults when no record exists yet.
// A cache miss is filled under the user's lock so it cannot overwrite the
// view of an upsert that committed meanwhile.
func (s *EntryService) Streak(ctx context.Context, userID uint) (StreakView, error) {
	if view, ok := s.cache.Get(ctx, userID); ok {
		return view, nil
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	if view, ok := s.cache.Get(ctx, userID); ok {
		return view, nil
	}
	rec, err := s.uow.Stores().Streaks.FindStreak(ctx, userID, false)
	if err != nil {
		return StreakView{}, err
	}
	if rec == nil {
		rec = models.NewStreak(userID)
	}
	view := toStreakView(rec)
	if err := s.cache.Set(ctx, userID, view); err != nil {
		s.logger.Warn("streak cache fill failed", zap.Uint("user_id", userID), zap.Error(err))
	}
	return view, nil
}

// InvalidateStreak drops the cached view, logging backend failures.
func (s *EntryService) InvalidateStreak(ctx context.Context, userID uint) {
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("streak cache invalidate failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// refreshCache writes the committed view. Must be called with the user's lock held.
func (s *EntryService) refreshCache(ctx context.Context, userID uint, view StreakView) {
	err := s.cache.Set(ctx, userID, view)
	if err == nil {
		return
	}
	s.logger.Warn("streak cache refresh failed", zap.Uint("user_id", userID), zap.Error(err))
	s.InvalidateStreak(ctx, userID)
}

func parseDate(raw string) (models.Date, error) {
	if raw == "" {
		return models.Date{}, invalid("date", "is required")
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return models.Date{}, invalid("date", "%q is not a YYYY-MM-DD calendar date", raw)
	}
	return d, nil
}

func toView(e *models.DailyEntry) EntryView {
	day := e.Date.String()
	return EntryView{
		Date:        day,
		PointsTotal: e.PointsTotal,
		Raw: RawActivity{
			Date: day,
			Activity: Activity{
				MilesDriven:    e.MilesDriven,
				TrashCount:     e.TrashCount,
				RecycleCount:   e.RecycleCount,
				ReusableBag:    e.ReusableBag,
				ReusableBottle: e.ReusableBottle,
			},
		},
	}
}

func toStreakView(rec *models.Streak) StreakView {
	view := StreakView{
		Current: rec.CurrentStreak,
		Longest: rec.HighestStreak,
		Goal:    rec.GoalPoints,
	}
	if rec.LastQualifyingDate != nil {
		last := rec.LastQualifyingDate.String()
		view.LastDate = &last
	}
	return view
}
