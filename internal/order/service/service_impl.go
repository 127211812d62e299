package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/observability/metrics"
	"github.com/smallbiznis/orderdesk/internal/order/domain"
	"github.com/smallbiznis/orderdesk/internal/slugify"
	"github.com/smallbiznis/orderdesk/internal/validation"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxInsertAttempts bounds retries when a concurrent insert takes the slug.
const maxInsertAttempts = 3

const msgCustomerNull = "This field may not be null."

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Customers customerdomain.Repository

	Metrics *metrics.Metrics  `optional:"true"`
	Locker  domain.SlugLocker `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Repository
	metrics   *metrics.Metrics
	locker    domain.SlugLocker
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
		metrics:   p.Metrics,
		locker:    p.Locker,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrderRequest) (domain.Order, error) {
	errs := validation.Errors{}

	customer, err := s.resolveCustomer(ctx, req.CustomerID, errs)
	if err != nil {
		return domain.Order{}, err
	}

	var item string
	if v := trimmed(req.Item); errs.RequiredString("item", v, domain.ItemMaxLength) {
		item = *v
	}

	amount, msg := parseAmount(req.Amount)
	if msg != "" {
		errs.Add("amount", msg)
	}

	if err := errs.Err(); err != nil {
		return domain.Order{}, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	order := domain.Order{
		ID:         s.genID.Generate(),
		CustomerID: customer.ID,
		Item:       item,
		Amount:     amount,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.insertWithSlug(ctx, &order); err != nil {
		return domain.Order{}, err
	}
	order.Customer = customer

	s.metrics.RecordOrderCreated(ctx)
	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.String("slug", order.Slug),
	)

	return order, nil
}

// insertWithSlug assigns the slug when missing and inserts the order. A slug
// taken between lookup and insert is cleared and derived again.
func (s *Service) insertWithSlug(ctx context.Context, order *domain.Order) error {
	if s.locker != nil {
		base := slugify.Make(order.Item)
		if base == "" {
			base = order.ID.String()
		}
		release, err := s.locker.LockSlug(ctx, base)
		if err != nil {
			s.log.Warn("slug lock unavailable, relying on unique index", zap.String("base", base), zap.Error(err))
		} else {
			defer release()
		}
	}

	lookup := slugify.LookupFunc(func(ctx context.Context, slug string) (snowflake.ID, bool, error) {
		return s.repo.FindSlugOwner(ctx, s.db, slug)
	})

	for attempt := 1; ; attempt++ {
		if order.Slug == "" {
			slug, err := slugify.Unique(ctx, order.Item, order.ID.String(), lookup, slugify.DefaultMaxAttempts)
			if err != nil {
				if errors.Is(err, slugify.ErrTooManyAttempts) || errors.Is(err, slugify.ErrTooLong) {
					return domain.ErrSlugUnavailable
				}
				return err
			}
			order.Slug = slug
		}

		err := s.repo.Insert(ctx, s.db, order)
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}

		s.metrics.RecordSlugCollision(ctx)
		if attempt >= maxInsertAttempts {
			return domain.ErrSlugUnavailable
		}
		s.log.Debug("slug taken at insert, retrying",
			zap.String("slug", order.Slug),
			zap.Int("attempt", attempt),
		)
		order.Slug = ""
	}
}

func (s *Service) resolveCustomer(ctx context.Context, raw *string, errs validation.Errors) (*customerdomain.Customer, error) {
	if raw == nil {
		errs.Add("customer", validation.MsgRequired)
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if value == "" {
		errs.Add("customer", msgCustomerNull)
		return nil, nil
	}

	doesNotExist := fmt.Sprintf("Invalid pk \"%s\" - object does not exist.", value)
	id, err := snowflake.ParseString(value)
	if err != nil || id <= 0 {
		errs.Add("customer", doesNotExist)
		return nil, nil
	}

	customer, err := s.customers.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		errs.Add("customer", doesNotExist)
		return nil, nil
	}
	return customer, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (domain.Order, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return domain.Order{}, domain.ErrNotFound
	}

	order, err := s.repo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return domain.Order{}, err
	}
	if order == nil {
		return domain.Order{}, domain.ErrNotFound
	}
	return *order, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
