// Package node implements the weather controller node: one fetch-map-publish
// cycle per poll, and the command surface the automation host drives.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/observability"
	"github.com/bpaauwe/WeatherServicePrototype/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrUnknownCommand is returned by Dispatch for commands the node does not handle.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidParams wraps validation failures from ProcessConfig.
	ErrInvalidParams = errors.New("invalid custom parameters")
)

// Fetcher retrieves the current observation for a query.
type Fetcher interface {
	Fetch(ctx context.Context, q domain.Query) (domain.Observation, error)
}

// Sink accepts driver updates for the host.
type Sink interface {
	Publish(ctx context.Context, address string, v domain.DriverValue) error
}

// ProfileInstaller is implemented by sinks that can ask the host to reload
// the node profile.
type ProfileInstaller interface {
	InstallProfile(ctx context.Context) error
}

// NoticeRemover is implemented by sinks that can clear host notices.
type NoticeRemover interface {
	RemoveNoticesAll(ctx context.Context) error
}

// Store keeps last-known driver values.
type Store interface {
	Save(ctx context.Context, address string, values []domain.DriverValue, at time.Time) error
	Load(ctx context.Context, address string) ([]store.Record, error)
}

// Config identifies the node and its initial query.
type Config struct {
	Address string
	Name    string
	Query   domain.Query
}

// Node is the controller node.
type Node struct {
	address string
	name    string
	fetcher Fetcher
	sink    Sink
	store   Store
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	mu    sync.RWMutex
	query domain.Query

	// pollMu serializes cycles started by the scheduler and by DISCOVER.
	pollMu sync.Mutex
	ready  atomic.Bool

	validate *validator.Validate
}

// New creates a Node. The clock drives timestamps and poll durations.
func New(cfg Config, f Fetcher, s Sink, st Store, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Node {
	return &Node{
		address:  cfg.Address,
		name:     cfg.Name,
		fetcher:  f,
		sink:     s,
		store:    st,
		clock:    clock,
		logger:   logger.With("node", cfg.Address),
		metrics:  metrics,
		query:    cfg.Query,
		validate: validator.New(),
	}
}

func (n *Node) Address() string { return n.address }

func (n *Node) Name() string { return n.name }

// CurrentQuery returns the query the next poll will use.
func (n *Node) CurrentQuery() domain.Query {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.query
}

// CheckReadiness returns nil once a poll has completed successfully.
func (n *Node) CheckReadiness(_ context.Context) error {
	if !n.ready.Load() {
		return errors.New("no successful poll yet")
	}
	return nil
}

// Start reports the node as online and re-reports any stored values.
func (n *Node) Start(ctx context.Context) error {
	n.logger.Info("starting node server", "name", n.name)
	n.metrics.PollerRunning.Set(1)

	if err := n.setStatus(ctx, 1); err != nil {
		return fmt.Errorf("report status: %w", err)
	}
	if err := n.report(ctx, func(r store.Record) bool { return r.Driver != domain.DriverStatus }); err != nil {
		n.logger.Warn("re-report stored drivers failed", "error", err)
	}
	n.logger.Info("node server started")
	return nil
}

// Stop reports the node as offline.
func (n *Node) Stop(ctx context.Context) error {
	n.logger.Info("stopping node server")
	n.metrics.PollerRunning.Set(0)
	if err := n.setStatus(ctx, 0); err != nil {
		return fmt.Errorf("report status: %w", err)
	}
	return nil
}

func (n *Node) setStatus(ctx context.Context, status int64) error {
	v := domain.NewDriverValue(domain.DriverStatus, domain.Int(status))
	if err := n.sink.Publish(ctx, n.address, v); err != nil {
		return err
	}
	n.recordPublished(v)
	if err := n.store.Save(ctx, n.address, []domain.DriverValue{v}, n.clock.Now()); err != nil {
		n.logger.Warn("save status failed", "error", err)
	}
	return nil
}

// Poll runs one fetch-map-publish cycle. A cycle that fails to fetch or map
// publishes nothing; the previously stored values stay the last-known state.
func (n *Node) Poll(ctx context.Context) error {
	n.pollMu.Lock()
	defer n.pollMu.Unlock()

	start := n.clock.Now()
	logger := n.logger.With("cycle_id", uuid.NewString())
	defer func() {
		n.metrics.PollDuration.Observe(n.clock.Since(start).Seconds())
	}()

	q := n.CurrentQuery()
	logger.Debug("polling weather service", "location", q.Location, "units", q.Units)

	obs, err := n.fetcher.Fetch(ctx, q)
	if err != nil {
		n.metrics.PollsTotal.WithLabelValues(observability.OutcomeFetchError).Inc()
		logger.Error("fetch observation failed", "error", err)
		return fmt.Errorf("fetch observation: %w", err)
	}

	values, err := domain.MapObservation(obs)
	if err != nil {
		n.metrics.PollsTotal.WithLabelValues(observability.OutcomeMappingError).Inc()
		logger.Error("map observation failed", "error", err)
		return fmt.Errorf("map observation: %w", err)
	}

	published, pubErr := n.publish(ctx, values)
	if len(published) > 0 {
		if err := n.store.Save(ctx, n.address, published, n.clock.Now()); err != nil {
			logger.Warn("save driver values failed", "error", err)
		}
	}
	if pubErr != nil {
		n.metrics.PollsTotal.WithLabelValues(observability.OutcomeSinkError).Inc()
		logger.Error("publish driver values failed",
			"error", pubErr,
			"published", len(published),
			"total", len(values),
		)
		return fmt.Errorf("publish drivers: %w", pubErr)
	}

	n.metrics.PollsTotal.WithLabelValues(observability.OutcomeSuccess).Inc()
	n.ready.Store(true)
	logger.Info("poll complete", "location", q.Location, "station", obs.Name, "drivers", len(values))
	return nil
}

// publish sends every value, continuing past sink failures. It returns the
// values the sink accepted and the joined failures.
func (n *Node) publish(ctx context.Context, values []domain.DriverValue) ([]domain.DriverValue, error) {
	published := make([]domain.DriverValue, 0, len(values))
	var errs []error
	for _, v := range values {
		if err := n.sink.Publish(ctx, n.address, v); err != nil {
			n.metrics.SinkErrors.Inc()
			errs = append(errs, fmt.Errorf("%s: %w", v.Driver, err))
			continue
		}
		n.recordPublished(v)
		published = append(published, v)
	}
	return published, errors.Join(errs...)
}

func (n *Node) recordPublished(v domain.DriverValue) {
	n.metrics.DriversPublished.WithLabelValues(v.Driver).Inc()
	n.metrics.DriverValue.WithLabelValues(v.Driver).Set(v.Value.Float64())
}

// Query re-reports every last-known driver value.
func (n *Node) Query(ctx context.Context) error {
	return n.report(ctx, func(store.Record) bool { return true })
}

func (n *Node) report(ctx context.Context, keep func(store.Record) bool) error {
	records, err := n.store.Load(ctx, n.address)
	if errors.Is(err, store.ErrNotFound) {
		n.logger.Debug("no stored drivers to report")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load drivers: %w", err)
	}

	values := make([]domain.DriverValue, 0, len(records))
	for _, r := range records {
		if keep(r) {
			values = append(values, r.DriverValue())
		}
	}
	_, err = n.publish(ctx, values)
	return err
}

// Discover runs an immediate poll.
func (n *Node) Discover(ctx context.Context) error {
	n.logger.Info("discovery requested")
	return n.Poll(ctx)
}

// UpdateProfile asks the host to reinstall the node profile.
func (n *Node) UpdateProfile(ctx context.Context) error {
	installer, ok := n.sink.(ProfileInstaller)
	if !ok {
		n.logger.Info("sink does not support profile installation")
		return nil
	}
	return installer.InstallProfile(ctx)
}

// RemoveNoticesAll asks the host to clear every notice raised by this node server.
func (n *Node) RemoveNoticesAll(ctx context.Context) error {
	remover, ok := n.sink.(NoticeRemover)
	if !ok {
		n.logger.Info("sink does not support notice removal")
		return nil
	}
	return remover.RemoveNoticesAll(ctx)
}

var commands = map[string]func(*Node, context.Context) error{
	"DISCOVER":           (*Node).Discover,
	"QUERY":              (*Node).Query,
	"UPDATE_PROFILE":     (*Node).UpdateProfile,
	"REMOVE_NOTICES_ALL": (*Node).RemoveNoticesAll,
}

// Commands lists the command names Dispatch accepts.
func Commands() []string {
	return slices.Sorted(maps.Keys(commands))
}

// Dispatch runs a host command by name. Names are case-insensitive.
func (n *Node) Dispatch(ctx context.Context, command string) error {
	fn, ok := commands[strings.ToUpper(strings.TrimSpace(command))]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	n.logger.Info("dispatching command", "command", command)
	return fn(n, ctx)
}

// ProcessConfig applies host custom parameters. Recognised keys are
// "location", "units" and "apikey"; others are ignored. It reports whether
// the query changed.
func (n *Node) ProcessConfig(params map[string]string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	next := n.query
	if v, ok := params["location"]; ok {
		next.Location = strings.TrimSpace(v)
	}
	if v, ok := params["units"]; ok {
		next.Units = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := params["apikey"]; ok {
		next.APIKey = strings.TrimSpace(v)
	}

	if next == n.query {
		return false, nil
	}
	if err := n.validate.Struct(next); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	n.logger.Info("configuration changed",
		"location", next.Location,
		"units", next.Units,
		"apikey_changed", next.APIKey != n.query.APIKey,
	)
	n.query = next
	return true, nil
}

// Drivers returns the last-known driver values.
func (n *Node) Drivers(ctx context.Context) ([]store.Record, error) {
	return n.store.Load(ctx, n.address)
}
