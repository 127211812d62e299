package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/customer/domain"
	"github.com/smallbiznis/orderdesk/internal/validation"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	errs := validation.Errors{}

	name := trimmed(req.Name)
	errs.RequiredString("name", name, domain.NameMaxLength)

	code := trimmed(req.Code)
	if errs.RequiredString("code", code, domain.CodeMaxLength) {
		exists, err := s.repo.ExistsByCode(ctx, s.db, *code)
		if err != nil {
			return domain.Customer{}, err
		}
		if exists {
			errs.Add("code", domain.MsgCodeTaken)
		}
	}

	if err := errs.Err(); err != nil {
		return domain.Customer{}, err
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		Name:      *name,
		Code:      *code,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		if db.IsDuplicateKeyErr(err) {
			// lost a race with a concurrent insert of the same code
			return domain.Customer{}, validation.Errors{"code": {domain.MsgCodeTaken}}
		}
		return domain.Customer{}, err
	}

	s.log.Info("customer created",
		zap.String("customer_id", customer.ID.String()),
		zap.String("code", customer.Code),
	)

	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := ParseID(id)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	return *item, nil
}

// ParseID parses a customer primary key.
func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
