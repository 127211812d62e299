package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	customerdomain "github.com/smallbiznis/orderdesk/internal/customer/domain"
)

func (s *Server) CreateCustomer(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := newFieldReader(body)
	req := customerdomain.CreateCustomerRequest{
		Name:   fields.text("name"),
		Code:   fields.text("code"),
		Active: fields.boolean("active"),
	}
	if err := fields.err(); err != nil {
		AbortWithError(c, err)
		return
	}

	if _, err := s.customerSvc.Create(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusCreated)
}

func (s *Server) GetCustomerByID(c *gin.Context) {
	customer, err := s.customerSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, customer)
}
