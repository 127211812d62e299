package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/orderdesk/internal/auth"
	"github.com/smallbiznis/orderdesk/internal/clock"
	"github.com/smallbiznis/orderdesk/internal/config"
	"github.com/smallbiznis/orderdesk/internal/customer"
	"github.com/smallbiznis/orderdesk/internal/migration"
	"github.com/smallbiznis/orderdesk/internal/notification"
	"github.com/smallbiznis/orderdesk/internal/observability"
	"github.com/smallbiznis/orderdesk/internal/order"
	"github.com/smallbiznis/orderdesk/internal/ratelimit"
	"github.com/smallbiznis/orderdesk/internal/server"
	"github.com/smallbiznis/orderdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Functional Domains
		auth.Module,
		customer.Module,
		order.Module,
		notification.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
