package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kredo/internal/clock"
	"github.com/smallbiznis/kredo/internal/config"
	"github.com/smallbiznis/kredo/internal/ledger"
	"github.com/smallbiznis/kredo/internal/logger"
	"github.com/smallbiznis/kredo/internal/migration"
	"github.com/smallbiznis/kredo/internal/observability/metrics"
	"github.com/smallbiznis/kredo/internal/observability/tracing"
	"github.com/smallbiznis/kredo/internal/pricing"
	"github.com/smallbiznis/kredo/internal/ratelimit"
	"github.com/smallbiznis/kredo/internal/referral"
	"github.com/smallbiznis/kredo/internal/server"
	"github.com/smallbiznis/kredo/internal/signup"
	"github.com/smallbiznis/kredo/internal/tenant"
	"github.com/smallbiznis/kredo/internal/usageevent"
	"github.com/smallbiznis/kredo/internal/wallet"
	"github.com/smallbiznis/kredo/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		tracing.Module,
		metrics.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Credit ledger core
		ledger.Module,
		tenant.Module,
		pricing.Module,
		usageevent.Module,
		wallet.Module,
		referral.Module,
		signup.Module,

		ratelimit.Module,
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
