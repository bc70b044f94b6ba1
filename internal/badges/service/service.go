// Package service orchestrates the badge engine: the badge registry, the
// award ledger, progress tracking, nominations and deferred claim codes.
//
// Every operation takes the acting user explicitly; a nil actor is the
// system itself and passes every permission predicate. Store interfaces are
// declared here, on the consumer side, and satisfied by both the in-memory
// and PostgreSQL implementations.
package service

import (
	"context"
	"log/slog"
	"time"

	"laurel/internal/badges/metrics"
	"laurel/internal/badges/models"
	"laurel/internal/badges/throttle"
	"laurel/pkg/platform/audit"

	"github.com/google/uuid"
)

type BadgeStore interface {
	Create(ctx context.Context, b *models.Badge) error
	Update(ctx context.Context, b *models.Badge) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Badge, error)
	GetBySlug(ctx context.Context, slug string) (*models.Badge, error)
	GetByTitle(ctx context.Context, title string) (*models.Badge, error)
	List(ctx context.Context) ([]*models.Badge, error)
	ListByPrerequisite(ctx context.Context, badgeID uuid.UUID) ([]*models.Badge, error)
}

type AwardStore interface {
	Create(ctx context.Context, a *models.Award, exclusive bool) error
	Update(ctx context.Context, a *models.Award) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Award, error)
	GetByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) (*models.Award, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Award, error)
	ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Award, error)
}

type ProgressStore interface {
	Upsert(ctx context.Context, p *models.Progress) error
	GetByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) (*models.Progress, error)
	DeleteByBadgeAndUser(ctx context.Context, badgeID, userID uuid.UUID) error
}

type NominationStore interface {
	Create(ctx context.Context, n *models.Nomination) error
	Update(ctx context.Context, n *models.Nomination) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Nomination, error)
	ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.Nomination, error)
	ListByNominee(ctx context.Context, nomineeID uuid.UUID) ([]*models.Nomination, error)
}

type DeferredStore interface {
	Create(ctx context.Context, d *models.DeferredAward, exclusive bool) error
	Update(ctx context.Context, d *models.DeferredAward) error
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.DeferredAward, error)
	GetByClaimCode(ctx context.Context, code string) (*models.DeferredAward, error)
	ListByEmail(ctx context.Context, email string) ([]*models.DeferredAward, error)
	ListByBadge(ctx context.Context, badgeID uuid.UUID) ([]*models.DeferredAward, error)
	ListClaimGroups(ctx context.Context, badgeID uuid.UUID) ([]models.ClaimGroupSummary, error)
	DeleteClaimGroup(ctx context.Context, badgeID uuid.UUID, claimGroup string) (int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Mailer delivers badge mail. Failures are logged, never propagated.
type Mailer interface {
	SendClaimInvitation(ctx context.Context, address string, badge *models.Badge, claimCode string) error
	SendAwardNotice(ctx context.Context, user *models.User, badge *models.Badge) error
	SendNominationNotice(ctx context.Context, nominee *models.User, badge *models.Badge) error
}

// AuditPublisher hands lifecycle events to the audit worker.
type AuditPublisher interface {
	Publish(event audit.Event)
}

// TxRunner scopes a function to one storage transaction. The Postgres path
// wires tx.NewRunner so the award write path commits atomically; the
// in-memory stores run without one.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service is the badge engine facade.
type Service struct {
	badges      BadgeStore
	awards      AwardStore
	progress    ProgressStore
	nominations NominationStore
	deferred    DeferredStore
	users       UserStore

	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditing AuditPublisher
	mailer   Mailer
	notifier Notifier
	throttle throttle.Limiter
	txRunner TxRunner
	now      func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditing = publisher }
}

func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithClaimThrottle(l throttle.Limiter) Option {
	return func(s *Service) { s.throttle = l }
}

func WithTxRunner(r TxRunner) Option {
	return func(s *Service) { s.txRunner = r }
}

// WithClock overrides the time source; tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a Service.
func New(
	badges BadgeStore,
	awards AwardStore,
	progress ProgressStore,
	nominations NominationStore,
	deferred DeferredStore,
	users UserStore,
	opts ...Option,
) *Service {
	s := &Service{
		badges:      badges,
		awards:      awards,
		progress:    progress,
		nominations: nominations,
		deferred:    deferred,
		users:       users,
		logger:      slog.Default(),
		notifier:    NoopNotifier{},
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// inTx runs fn under the configured transaction runner, or directly when
// none is configured.
func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txRunner == nil {
		return fn(ctx)
	}
	return s.txRunner.InTx(ctx, fn)
}

func (s *Service) audit(action audit.Action, badgeID uuid.UUID, actor *models.User, subject *uuid.UUID, detail string) {
	if s.auditing == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.now(),
		Action:    action,
		BadgeID:   badgeID,
		SubjectID: subject,
		Detail:    detail,
	}
	if actor != nil {
		actorID := actor.ID
		event.ActorID = &actorID
	}
	s.auditing.Publish(event)
}
