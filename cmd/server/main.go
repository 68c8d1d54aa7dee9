package main

import (
	"os"

	"contactbook/backend/pkg/logger"
)

// @title           Contactbook API
// @version         1.0
// @description     Users, contact requests and confirmed contacts.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		logger.Log.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
