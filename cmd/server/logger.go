package main

import (
	"github.com/mdp211/flowmeter-monitor/internal/config"
	"github.com/mdp211/flowmeter-monitor/internal/logging"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.NewLogger(cfg.ServiceName)
}
