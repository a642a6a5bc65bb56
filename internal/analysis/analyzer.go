package analysis

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"IBSentinel/internal/model"
	"IBSentinel/internal/normalize"
	"IBSentinel/internal/session"
)

// Result is the output of one analysis run.
type Result struct {
	RunID    string
	Sessions []model.SessionResult
	Bars     []model.Bar
	Stats    RunStats
}

// RunStats describes how much input survived each stage.
type RunStats struct {
	Normalize normalize.Stats
	Groups    int
	Discarded map[string]int
	Elapsed   time.Duration
}

// Analyzer runs breakout detection and return analysis over a raw series.
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates an Analyzer. A nil logger disables logging.
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// Analyze runs the full pipeline without logging.
func Analyze(rows []model.RawRow, p Params) (*Result, error) {
	return NewAnalyzer(nil).Analyze(rows, p)
}

// Analyze normalizes rows, segments them into sessions and returns one
// SessionResult per session with an accepted breakout, ordered by date.
// The normalized bars are returned alongside for the simulator.
func (a *Analyzer) Analyze(rows []model.RawRow, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	started := time.Now()
	res := &Result{
		RunID: uuid.New().String(),
		Stats: RunStats{Discarded: make(map[string]int)},
	}
	log := a.logger.With(zap.String("run_id", res.RunID))

	bars, nstats := normalize.Normalize(rows, normalize.Config{
		Location:  p.Location,
		IBStart:   p.IBStart,
		Overnight: p.Overnight,
	})
	res.Bars = bars
	res.Stats.Normalize = nstats
	if nstats.Dropped() > 0 {
		log.Warn("dropped unparseable rows",
			zap.Int("malformed", nstats.Malformed),
			zap.Int("bad_timestamp", nstats.BadTimestamp),
			zap.Int("bad_price", nstats.BadPrice))
	}

	groups := session.Segment(bars, session.Options{MinBars: p.MinBars, Start: p.Start, End: p.End})
	res.Stats.Groups = len(groups)

	for i, out := range a.analyzeGroups(groups, p) {
		if out.reason != reasonAccepted {
			res.Stats.Discarded[out.reason]++
			log.Debug("session discarded", zap.Stringer("date", groups[i].Date), zap.String("reason", out.reason))
			continue
		}
		res.Sessions = append(res.Sessions, out.result)
	}
	sort.SliceStable(res.Sessions, func(i, j int) bool {
		return res.Sessions[i].Date.Before(res.Sessions[j].Date)
	})

	res.Stats.Elapsed = time.Since(started)
	log.Info("analysis finished",
		zap.Int("rows", nstats.Rows),
		zap.Int("bars", len(bars)),
		zap.Int("sessions", len(groups)),
		zap.Int("breakouts", len(res.Sessions)),
		zap.String("mode", string(p.Mode)),
		zap.String("direction", string(p.Direction)),
		zap.Duration("elapsed", res.Stats.Elapsed))
	return res, nil
}

type groupOutcome struct {
	result model.SessionResult
	reason string
}

func analyzeGroup(g session.Group, p Params) groupOutcome {
	s, reason := BuildSession(g.Date, g.Bars, p)
	if reason != reasonAccepted {
		return groupOutcome{reason: reason}
	}
	ev, ok := DetectBreakout(s, p.Mode)
	if !ok {
		return groupOutcome{reason: ReasonNoBreakout}
	}
	if !p.Direction.Allows(ev.Direction) {
		return groupOutcome{reason: ReasonWrongSide}
	}
	return groupOutcome{result: BuildResult(s, ev)}
}

// analyzeGroups evaluates sessions on up to p.Workers goroutines. Each
// worker writes only its own slot, so output order matches groups.
func (a *Analyzer) analyzeGroups(groups []session.Group, p Params) []groupOutcome {
	outs := make([]groupOutcome, len(groups))
	workers := min(p.Workers, len(groups))
	if workers <= 1 {
		for i, g := range groups {
			outs[i] = analyzeGroup(g, p)
		}
		return outs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outs[i] = analyzeGroup(groups[i], p)
			}
		}()
	}
	for i := range groups {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return outs
}
