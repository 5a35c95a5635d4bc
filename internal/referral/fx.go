package referral

import (
	"github.com/smallbiznis/kredo/internal/referral/repository"
	"github.com/smallbiznis/kredo/internal/referral/service"
	"go.uber.org/fx"
)

var Module = fx.Module("referral.service",
	fx.Provide(
		repository.Provide,
		service.NewDefaultPolicy,
		service.NewService,
	),
)
