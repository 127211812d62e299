package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	notificationdomain "github.com/smallbiznis/orderdesk/internal/notification/domain"
	obscontext "github.com/smallbiznis/orderdesk/internal/observability/context"
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
)

type orderView struct {
	ID        snowflake.ID `json:"id"`
	Customer  snowflake.ID `json:"customer"`
	Item      string       `json:"item"`
	Amount    string       `json:"amount"`
	Active    bool         `json:"active"`
	Slug      string       `json:"slug"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func newOrderView(o orderdomain.Order) orderView {
	return orderView{
		ID:        o.ID,
		Customer:  o.CustomerID,
		Item:      o.Item,
		Amount:    o.Amount.StringFixed(orderdomain.AmountDecimalPlaces),
		Active:    o.Active,
		Slug:      o.Slug,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// CreateOrder persists the order, then sends the confirmation SMS. A failed
// send is reported to the client but the order is kept.
func (s *Server) CreateOrder(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := newFieldReader(body)
	req := orderdomain.CreateOrderRequest{
		CustomerID: fields.pk("customer"),
		Item:       fields.text("item"),
		Amount:     fields.number("amount"),
		Active:     fields.boolean("active"),
	}
	if err := fields.err(); err != nil {
		AbortWithError(c, err)
		return
	}

	order, err := s.orderSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	tagOrder(c, order.Slug)

	if err := s.notificationSvc.NotifyOrderPlaced(c.Request.Context(), order); err != nil {
		var delivery *notificationdomain.DeliveryError
		if errors.As(err, &delivery) {
			err = &DetailError{
				Status: http.StatusBadRequest,
				Detail: delivery.Error(),
				Err:    err,
			}
		}
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (s *Server) GetOrderBySlug(c *gin.Context) {
	order, err := s.orderSvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	tagOrder(c, order.Slug)
	c.JSON(http.StatusOK, newOrderView(order))
}

// tagOrder exposes the slug to the request log line and span.
func tagOrder(c *gin.Context, slug string) {
	c.Request = c.Request.WithContext(obscontext.WithOrderSlug(c.Request.Context(), slug))
}
