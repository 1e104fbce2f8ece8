package main

import (
	"github.com/ds124wfegd/fractal-bot/config"
	"github.com/ds124wfegd/fractal-bot/internal/appServer"
	"github.com/sirupsen/logrus"
)

func main() {
	viperInstance, err := config.LoadConfig(config.GetEnv("CONFIG_PATH", "./config"))
	if err != nil {
		logrus.Fatalf("unable to load config: %s", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("unable to parse config: %s", err.Error())
	}

	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("invalid configuration: %s", err.Error())
	}

	appServer.NewServer(cfg)
}
