// Command lambda serves the gateway from an AWS Lambda function URL with
// response streaming enabled. Configuration comes from the environment only.
package main

import (
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/gndm/ytGateway/internal/api"
	"github.com/gndm/ytGateway/internal/config"
	"github.com/gndm/ytGateway/internal/lambdaurl"
	"github.com/gndm/ytGateway/internal/logger"
	"github.com/gndm/ytGateway/internal/web"
)

var log = logger.Get("Lambda")

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Emit(logger.FATAL, "%v\n", err)
		os.Exit(1)
	}
	if level, err := logger.ParseLevel(cfg.LogLevel); err == nil {
		logger.Log.SetMinStatus(level)
	}

	res, err := api.NewResolver(cfg)
	if err != nil {
		log.Emit(logger.FATAL, "%v\n", err)
		os.Exit(1)
	}

	var ui http.Handler
	if !cfg.DisableUI {
		ui = web.Handler(false)
	}

	gateway := api.NewGateway(cfg, res, ui)
	lambda.Start(lambdaurl.New(gateway.Handler()))
}
