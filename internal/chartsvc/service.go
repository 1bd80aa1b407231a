// Package chartsvc implements the chart operations behind the gRPC API, the
// transit stream and the CLI.
package chartsvc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/astro-aspects/core"
	"github.com/signalsfoundry/astro-aspects/ephem"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
	"github.com/signalsfoundry/astro-aspects/model"
)

var (
	// ErrInvalidRequest marks caller mistakes that are not birth data.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoConvergence is returned when a root search does not settle.
	ErrNoConvergence = errors.New("search did not converge")
)

// SubjectStore persists subjects. kb.ChartStore and
// store.SubjectRepository both satisfy it.
type SubjectStore interface {
	Put(ctx context.Context, s *model.Subject) error
	Get(ctx context.Context, id string) (*model.Subject, error)
	List(ctx context.Context) ([]*model.Subject, error)
	Delete(ctx context.Context, id string) error
}

// Settings are the server-wide engine defaults.
type Settings struct {
	OrbTolerance  float64
	UnknownMotion core.MotionDefault
	HouseSystem   model.HouseSystem
	GrandCross    bool
	StelliumSize  int
}

// DefaultSettings mirrors the engine defaults.
func DefaultSettings() Settings {
	return Settings{
		OrbTolerance: core.DefaultOrbTolerance,
		HouseSystem:  ephem.DefaultHouseSystem,
		GrandCross:   true,
		StelliumSize: core.DefaultStelliumSize,
	}
}

// Service runs chart operations.
type Service struct {
	store    SubjectStore
	resolver ephem.Resolver
	settings Settings

	log     logging.Logger
	metrics *observability.EngineCollector
	now     func() time.Time
	newID   func() string
}

// Option customises a Service.
type Option func(*Service)

// WithSettings replaces the default engine settings.
func WithSettings(s Settings) Option { return func(svc *Service) { svc.settings = s } }

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l logging.Logger) Option { return func(svc *Service) { svc.log = l } }

// WithMetrics records engine metrics on c.
func WithMetrics(c *observability.EngineCollector) Option {
	return func(svc *Service) { svc.metrics = c }
}

// WithClock overrides the wall clock used for "now" transits.
func WithClock(now func() time.Time) Option { return func(svc *Service) { svc.now = now } }

// WithIDGenerator overrides subject ID generation.
func WithIDGenerator(gen func() string) Option { return func(svc *Service) { svc.newID = gen } }

// New constructs a Service.
func New(store SubjectStore, resolver ephem.Resolver, opts ...Option) *Service {
	svc := &Service{
		store:    store,
		resolver: resolver,
		settings: DefaultSettings(),
		log:      logging.Noop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Settings returns the active engine settings.
func (s *Service) Settings() Settings { return s.settings }

func (s *Service) logger(ctx context.Context) logging.Logger {
	return logging.FromContext(ctx, s.log)
}

// CheckOrb validates a per-request orb override. Zero or less selects the
// server default; anything above core.MaxOrbTolerance is rejected.
func CheckOrb(orb float64) error {
	if math.IsNaN(orb) || orb > core.MaxOrbTolerance {
		return fmt.Errorf("%w: orb %v must be at most %v", ErrInvalidRequest, orb, core.MaxOrbTolerance)
	}
	return nil
}

func (s *Service) engine(orb float64) *core.AspectEngine {
	if orb <= 0 {
		orb = s.settings.OrbTolerance
	}
	return core.NewAspectEngine(core.WithOrbTolerance(orb), core.WithUnknownMotion(s.settings.UnknownMotion))
}

func (s *Service) detector(orb float64) *core.PatternDetector {
	if orb <= 0 {
		orb = s.settings.OrbTolerance
	}
	return &core.PatternDetector{OrbTolerance: orb, GrandCross: s.settings.GrandCross}
}

func (s *Service) resolve(ctx context.Context, req ephem.Request) (*model.Chart, error) {
	if req.HouseSystem == "" {
		req.HouseSystem = s.settings.HouseSystem
	}
	start := time.Now()
	chart, err := s.resolver.Resolve(ctx, req)
	s.metrics.ObserveResolve(req.Origin, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("resolve %s chart: %w", req.Origin, err)
	}
	return chart, nil
}

// CreateSubject validates birth data, resolves the natal chart and stores
// the subject.
func (s *Service) CreateSubject(ctx context.Context, name string, birth model.BirthData) (*model.Subject, error) {
	ctx, span := observability.StartSpan(ctx, "chartsvc.CreateSubject", "")
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}
	req, err := ephem.NatalRequest(birth, s.settings.HouseSystem)
	if err != nil {
		return nil, err
	}
	natal, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	subj := &model.Subject{
		ID:        s.newID(),
		Name:      name,
		Birth:     birth,
		Natal:     natal,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, subj); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("subject_id", subj.ID))
	s.logger(ctx).Info(ctx, "subject created",
		logging.String("subject_id", subj.ID),
		logging.String("sun_sign", sunSign(natal)),
	)
	return subj, nil
}

// GetSubject loads one subject.
func (s *Service) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: subject id is required", ErrInvalidRequest)
	}
	return s.store.Get(ctx, id)
}

// ListSubjects returns every stored subject.
func (s *Service) ListSubjects(ctx context.Context) ([]*model.Subject, error) {
	return s.store.List(ctx)
}

// DeleteSubject removes a subject.
func (s *Service) DeleteSubject(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: subject id is required", ErrInvalidRequest)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger(ctx).Info(ctx, "subject deleted", logging.String("subject_id", id))
	return nil
}

// natalChart returns the stored natal chart, resolving it if the store
// predates chart persistence.
func (s *Service) natalChart(ctx context.Context, subj *model.Subject) (*model.Chart, error) {
	if subj.Natal != nil && len(subj.Natal.Bodies) > 0 {
		return subj.Natal, nil
	}
	req, err := ephem.NatalRequest(subj.Birth, s.settings.HouseSystem)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, req)
}

// NatalReport computes aspects, patterns, stelliums, dignities and the
// natal moon phase for a stored subject.
func (s *Service) NatalReport(ctx context.Context, id string, orb float64) (*NatalReport, error) {
	ctx, span := observability.StartSpan(ctx, "chartsvc.NatalReport", id)
	defer span.End()

	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	subj, err := s.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}
	natal, err := s.natalChart(ctx, subj)
	if err != nil {
		return nil, err
	}
	return s.natalReport(ctx, subj, natal, orb), nil
}

// NatalReportFor builds a report for an unsaved chart.
func (s *Service) NatalReportFor(ctx context.Context, name string, birth model.BirthData, orb float64) (*NatalReport, error) {
	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	req, err := ephem.NatalRequest(birth, s.settings.HouseSystem)
	if err != nil {
		return nil, err
	}
	natal, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	subj := &model.Subject{Name: name, Birth: birth, Natal: natal}
	return s.natalReport(ctx, subj, natal, orb), nil
}

func (s *Service) natalReport(ctx context.Context, subj *model.Subject, natal *model.Chart, orb float64) *NatalReport {
	aspects := s.engine(orb).NatalAspects(natal.Bodies)
	core.SortByOrb(aspects)
	patterns := s.detector(orb).Detect(natal.Bodies)
	stelliums := core.DetectStelliums(natal.Bodies, s.settings.StelliumSize)

	s.metrics.CountAspects(aspects)
	s.metrics.CountPatterns(patterns)
	s.metrics.CountPatterns(stelliums)

	report := &NatalReport{
		SubjectID: subj.ID,
		Name:      subj.Name,
		Chart:     natal,
		Aspects:   aspects,
		Patterns:  patterns,
		Stelliums: stelliums,
		Dignities: core.Dignities(natal.Bodies),
	}
	sun, okSun := natal.Body(model.Sun)
	moon, okMoon := natal.Body(model.Moon)
	if okSun && okMoon {
		phase := core.MoonPhaseFrom(sun, moon)
		report.MoonPhase = &phase
	}
	s.logger(ctx).Debug(ctx, "natal report",
		logging.String("subject_id", subj.ID),
		logging.Int("aspects", len(aspects)),
		logging.Int("patterns", len(patterns)),
	)
	return report
}

// Transits compares the sky at `at` (zero means now) with a subject's natal
// chart.
func (s *Service) Transits(ctx context.Context, id string, at time.Time, orb float64) (*TransitReport, error) {
	ctx, span := observability.StartSpan(ctx, "chartsvc.Transits", id)
	defer span.End()

	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	if at.IsZero() {
		at = s.now()
	}

	var (
		subj    *model.Subject
		transit *model.Chart
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subj, err = s.GetSubject(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		transit, err = s.resolve(gctx, ephem.Request{Moment: at, Origin: model.OriginTransit})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	natal, err := s.natalChart(ctx, subj)
	if err != nil {
		return nil, err
	}
	return s.transitsAgainst(ctx, subj.ID, transit, natal, orb), nil
}

// TransitsFor is Transits for an already loaded subject. The transit stream
// calls this on every tick.
func (s *Service) TransitsFor(ctx context.Context, subj *model.Subject, at time.Time, orb float64) (*TransitReport, error) {
	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	natal, err := s.natalChart(ctx, subj)
	if err != nil {
		return nil, err
	}
	transit, err := s.resolve(ctx, ephem.Request{Moment: at, Origin: model.OriginTransit})
	if err != nil {
		return nil, err
	}
	return s.transitsAgainst(ctx, subj.ID, transit, natal, orb), nil
}

// transitsAgainst computes transit-to-natal aspects for already resolved
// charts. The orb has been checked by the caller.
func (s *Service) transitsAgainst(ctx context.Context, subjectID string, transit, natal *model.Chart, orb float64) *TransitReport {
	transitBodies := model.WithOrigin(transit.Bodies, model.OriginTransit)
	aspects := s.engine(orb).CrossAspects(transitBodies, model.WithOrigin(natal.Bodies, model.OriginNatal))
	core.SortByOrb(aspects)
	s.metrics.CountAspects(aspects)

	var applying []model.Aspect
	for _, a := range aspects {
		if a.Applying {
			applying = append(applying, a)
		}
	}
	s.logger(ctx).Debug(ctx, "transits",
		logging.String("subject_id", subjectID),
		logging.Int("aspects", len(aspects)),
		logging.Int("applying", len(applying)),
	)
	return &TransitReport{
		SubjectID:   subjectID,
		Moment:      transit.Moment,
		Positions:   transitBodies,
		Aspects:     aspects,
		Applying:    applying,
		Significant: core.SignificantAspects(aspects, DefaultTopAspects),
		Retrogrades: retrogrades(transitBodies),
	}
}

// Synastry compares two stored subjects. Subject B's bodies are tagged as
// partner positions.
func (s *Service) Synastry(ctx context.Context, idA, idB string, orb float64, top int) (*SynastryReport, error) {
	ctx, span := observability.StartSpan(ctx, "chartsvc.Synastry", idA, attribute.String("partner_id", idB))
	defer span.End()

	if idA == idB {
		return nil, fmt.Errorf("%w: synastry needs two different subjects", ErrInvalidRequest)
	}
	if err := CheckOrb(orb); err != nil {
		return nil, err
	}
	if top <= 0 {
		top = DefaultTopAspects
	}

	var a, b *model.Subject
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		a, err = s.GetSubject(gctx, idA)
		return err
	})
	g.Go(func() error {
		var err error
		b, err = s.GetSubject(gctx, idB)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	natalA, err := s.natalChart(ctx, a)
	if err != nil {
		return nil, err
	}
	natalB, err := s.natalChart(ctx, b)
	if err != nil {
		return nil, err
	}

	aspects := s.engine(orb).CrossAspects(
		model.WithOrigin(natalA.Bodies, model.OriginNatal),
		model.WithOrigin(natalB.Bodies, model.OriginPartner),
	)
	core.SortByOrb(aspects)
	s.metrics.CountAspects(aspects)

	report := &SynastryReport{
		SubjectA:      a.ID,
		SubjectB:      b.ID,
		Aspects:       aspects,
		Compatibility: core.CompatibilityScore(aspects),
		Strengths:     core.Strengths(aspects, top),
		Challenges:    core.Challenges(aspects, top),
	}
	s.logger(ctx).Info(ctx, "synastry",
		logging.String("subject_a", a.ID),
		logging.String("subject_b", b.ID),
		logging.Float64("compatibility", report.Compatibility),
	)
	return report, nil
}

// MoonPhase reports the lunation at `at` (zero means now).
func (s *Service) MoonPhase(ctx context.Context, at time.Time) (*MoonPhaseReport, error) {
	if at.IsZero() {
		at = s.now()
	}
	chart, err := s.resolve(ctx, ephem.Request{Moment: at, Origin: model.OriginTransit})
	if err != nil {
		return nil, err
	}
	sun, okSun := chart.Body(model.Sun)
	moon, okMoon := chart.Body(model.Moon)
	if !okSun || !okMoon {
		return nil, fmt.Errorf("%w: resolver returned no Sun or Moon", ErrInvalidRequest)
	}
	return &MoonPhaseReport{Moment: chart.Moment, Phase: core.MoonPhaseFrom(sun, moon)}, nil
}

// Retrogrades lists the bodies moving backwards at `at` (zero means now).
func (s *Service) Retrogrades(ctx context.Context, at time.Time) (*RetrogradeReport, error) {
	if at.IsZero() {
		at = s.now()
	}
	chart, err := s.resolve(ctx, ephem.Request{Moment: at, Origin: model.OriginTransit})
	if err != nil {
		return nil, err
	}
	return &RetrogradeReport{Moment: chart.Moment, Bodies: retrogrades(chart.Bodies)}, nil
}

func retrogrades(bodies []model.CelestialBodyPosition) []model.CelestialBodyPosition {
	var out []model.CelestialBodyPosition
	for _, b := range bodies {
		if b.IsRetrograde {
			out = append(out, b)
		}
	}
	return out
}

func sunSign(c *model.Chart) string {
	if sun, ok := c.Body(model.Sun); ok {
		return sun.Sign().String()
	}
	return ""
}
