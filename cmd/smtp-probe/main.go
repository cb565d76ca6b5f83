// Command smtp-probe connects to an SMTP submission server, reports the
// capabilities it advertises and disconnects.
package main

import (
	"context"
	"flag"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/emersion/go-smtp-connect/config"
	"github.com/emersion/go-smtp-connect/connect"
	"github.com/emersion/go-smtp-connect/log"
)

var configFile = ""

func init() {
	flag.StringVar(&configFile, "config", configFile, "Configuration file (yaml, toml or json)")
}

func main() {
	flag.Parse()

	settings, err := config.Load(configFile)
	if err != nil {
		log.LogError("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	log.SetLogLevel(settings.LogLevel)

	ctx := context.Background()
	if settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
		defer cancel()
	}

	log.LogInfo("Connecting to %s (%s)", settings.Address, settings.Security)
	c, err := connect.Connect(ctx, settings.ConnectionConfig())
	if err != nil {
		if stage, ok := connect.StageOf(err); ok {
			log.Logger.WithField("stage", stage.String()).Error(err)
		} else {
			log.LogError("%v", err)
		}
		os.Exit(1)
	}

	ehlo := c.EhloData()
	caps := ehlo.Capabilities()
	sort.Strings(caps)
	c.Logger().WithFields(logrus.Fields{
		"server":       ehlo.Domain,
		"tls":          c.IsTLS(),
		"capabilities": caps,
		"auth":         ehlo.AuthMechanisms(),
	}).Info("connection established")
	if size, ok := ehlo.MaxMessageSize(); ok {
		log.LogInfo("Maximum message size: %d bytes", size)
	}

	if err := c.Quit(ctx); err != nil {
		log.LogWarn("QUIT failed: %v", err)
	}
}
