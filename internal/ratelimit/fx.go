package ratelimit

import (
	orderdomain "github.com/smallbiznis/orderdesk/internal/order/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
	fx.Provide(func(l *Limiter) orderdomain.SlugLocker { return l }),
)
