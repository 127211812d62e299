package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/orderdesk/internal/auth/domain"
)

type signupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

func (s *Server) Signup(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := newFieldReader(body)
	req := authdomain.SignupRequest{
		Username: fields.text("username"),
		Password: fields.text("password"),
		Email:    fields.text("email"),
	}
	if err := fields.err(); err != nil {
		AbortWithError(c, err)
		return
	}

	user, err := s.authsvc.Signup(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, signupResponse{Username: user.Username, Email: user.Email})
}

func (s *Server) ObtainToken(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := newFieldReader(body)
	req := authdomain.ObtainPairRequest{
		Username: fields.text("username"),
		Password: fields.text("password"),
	}
	if err := fields.err(); err != nil {
		AbortWithError(c, err)
		return
	}

	pair, err := s.authsvc.ObtainPair(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

func (s *Server) RefreshToken(c *gin.Context) {
	body, err := bindBody(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	fields := newFieldReader(body)
	refresh := fields.text("refresh")
	if fields.errs.Has("refresh") || !fields.errs.RequiredString("refresh", refresh, 0) {
		AbortWithError(c, fields.errs)
		return
	}

	access, err := s.authsvc.Refresh(c.Request.Context(), *refresh)
	if err != nil {
		if isTokenError(err) {
			err = &DetailError{Status: http.StatusUnauthorized, Detail: msgRefreshNotValid, Err: err}
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, access)
}
