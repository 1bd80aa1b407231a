// Package stream serves live transit updates over websocket.
package stream

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/astro-aspects/internal/chartsvc"
	"github.com/signalsfoundry/astro-aspects/internal/logging"
	"github.com/signalsfoundry/astro-aspects/internal/observability"
	"github.com/signalsfoundry/astro-aspects/kb"
	"github.com/signalsfoundry/astro-aspects/model"
	"github.com/signalsfoundry/astro-aspects/timectrl"
)

// Path is the route the handler is mounted on.
const Path = "/v1/stream/transits"

const writeTimeout = 5 * time.Second

// Limits bounds what clients may request.
type Limits struct {
	DefaultStep     time.Duration
	DefaultInterval time.Duration
	MinInterval     time.Duration
}

// Frame is one websocket message.
type Frame struct {
	Seq    int                     `json:"seq"`
	Report *chartsvc.TransitReport `json:"report,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Handler upgrades GET requests to a transit stream:
//
//	GET /v1/stream/transits?subject=<id>&step=1h&interval=1s&orb=3&start=<rfc3339>&ticks=24
//
// Simulated time starts at start (default now) and advances by step every
// interval of wall time. The stream ends after ticks advances, or when the
// client goes away if ticks is zero.
type Handler struct {
	svc       *chartsvc.Service
	limits    Limits
	log       logging.Logger
	collector *observability.ChartCollector
	upgrader  websocket.Upgrader
	now       func() time.Time
}

// NewHandler constructs a Handler. collector may be nil.
func NewHandler(svc *chartsvc.Service, limits Limits, log logging.Logger, collector *observability.ChartCollector) *Handler {
	if log == nil {
		log = logging.Noop()
	}
	if limits.DefaultStep <= 0 {
		limits.DefaultStep = time.Hour
	}
	if limits.DefaultInterval <= 0 {
		limits.DefaultInterval = time.Second
	}
	return &Handler{
		svc:       svc,
		limits:    limits,
		log:       log,
		collector: collector,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		now: time.Now,
	}
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET "+Path, h)
}

type params struct {
	subjectID string
	step      time.Duration
	interval  time.Duration
	orb       float64
	start     time.Time
	ticks     int
}

func (h *Handler) parse(r *http.Request) (params, error) {
	q := r.URL.Query()
	p := params{
		subjectID: q.Get("subject"),
		step:      h.limits.DefaultStep,
		interval:  h.limits.DefaultInterval,
		start:     h.now(),
	}
	if p.subjectID == "" {
		return p, errors.New("subject is required")
	}
	var err error
	if v := q.Get("step"); v != "" {
		if p.step, err = time.ParseDuration(v); err != nil || p.step == 0 || p.step == math.MinInt64 {
			return p, errors.New("step must be a non-zero duration")
		}
	}
	if v := q.Get("interval"); v != "" {
		if p.interval, err = time.ParseDuration(v); err != nil {
			return p, errors.New("interval must be a duration")
		}
	}
	if p.interval < h.limits.MinInterval || p.interval <= 0 {
		return p, errors.New("interval is below the minimum of " + h.limits.MinInterval.String())
	}
	if v := q.Get("orb"); v != "" {
		if p.orb, err = strconv.ParseFloat(v, 64); err != nil || p.orb < 0 {
			return p, errors.New("orb must be a non-negative number")
		}
		if err := chartsvc.CheckOrb(p.orb); err != nil {
			return p, err
		}
	}
	if v := q.Get("start"); v != "" {
		if p.start, err = time.Parse(time.RFC3339, v); err != nil {
			return p, errors.New("start must be RFC 3339")
		}
	}
	if v := q.Get("ticks"); v != "" {
		if p.ticks, err = strconv.Atoi(v); err != nil || p.ticks < 0 {
			return p, errors.New("ticks must be a non-negative integer")
		}
		// ticks*step must fit in a time.Duration.
		if p.ticks > 0 && absDuration(p.step) > time.Duration(math.MaxInt64/int64(p.ticks)) {
			return p, errors.New("ticks * step exceeds the longest supported stream")
		}
	}
	return p, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, reqLog := logging.WithRequestLogger(r.Context(), h.log.With(logging.String("path", Path)))

	p, err := h.parse(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	subj, err := h.svc.GetSubject(ctx, p.subjectID)
	switch {
	case errors.Is(err, kb.ErrSubjectNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		reqLog.Error(ctx, "load subject for stream", logging.Err(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		reqLog.Warn(ctx, "websocket upgrade failed", logging.Err(err))
		return
	}
	defer conn.Close()

	h.collector.StreamOpened()
	defer h.collector.StreamClosed()

	reqLog = reqLog.With(logging.String("subject_id", subj.ID))
	reqLog.Info(ctx, "transit stream opened",
		logging.Duration("step", p.step),
		logging.Duration("interval", p.interval),
		logging.Int("ticks", p.ticks),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go discardReads(conn, cancel)

	sent, err := h.run(ctx, conn, subj, p)
	switch {
	case err == nil:
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream complete"),
			time.Now().Add(writeTimeout))
	case errors.Is(err, context.Canceled):
		// client went away
	default:
		reqLog.Warn(ctx, "transit stream failed", logging.Err(err))
		_ = writeFrame(conn, Frame{Seq: sent, Error: err.Error()})
	}
	reqLog.Info(ctx, "transit stream closed", logging.Int("frames", sent))
}

// run sends the frame for the start moment, then one per tick.
func (h *Handler) run(ctx context.Context, conn *websocket.Conn, subj *model.Subject, p params) (int, error) {
	ticks := make(chan time.Time, 1)
	tc := timectrl.NewTimeController(p.start, p.interval, p.step)
	tc.AddListener(func(t time.Time) {
		// Blocking here paces the controller to the client.
		select {
		case ticks <- t:
		case <-ctx.Done():
		}
	})

	var span time.Duration
	if p.ticks > 0 {
		span = time.Duration(p.ticks) * absDuration(p.step)
	}

	send := func(seq int, at time.Time) error {
		report, err := h.svc.TransitsFor(ctx, subj, at, p.orb)
		if err != nil {
			return err
		}
		return writeFrame(conn, Frame{Seq: seq, Report: report})
	}

	seq := 0
	if err := send(seq, p.start); err != nil {
		return seq, err
	}
	seq++

	done := tc.Start(ctx, span)
	for {
		select {
		case <-ctx.Done():
			<-done
			return seq, ctx.Err()
		case at := <-ticks:
			if err := send(seq, at); err != nil {
				return seq, err
			}
			seq++
		case <-done:
			select {
			case at := <-ticks:
				if err := send(seq, at); err != nil {
					return seq, err
				}
				seq++
			default:
			}
			return seq, ctx.Err()
		}
	}
}

func writeFrame(conn *websocket.Conn, f Frame) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(f)
}

// discardReads drains client messages so control frames are processed and
// cancels once the connection is gone.
func discardReads(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
