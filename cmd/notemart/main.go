package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/notemart/internal/clock"
	"github.com/smallbiznis/notemart/internal/config"
	"github.com/smallbiznis/notemart/internal/observability"
	"github.com/smallbiznis/notemart/internal/server"
	"github.com/smallbiznis/notemart/pkg/db"
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

		// HTTP API and every domain behind it
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNodeID)
}
