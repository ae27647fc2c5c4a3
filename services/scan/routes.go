// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scan

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all scan routes with the router group.
//
// Description:
//
//	Registers the /scan endpoints with the given Gin router group. The
//	router group should already have any required middleware applied.
//
// Endpoints:
//
//	POST /v1/scan - Scan a project for test files and fuzz metadata
//	GET  /v1/scan/languages - List supported languages
//	GET  /v1/scan/health - Health check
//
// Example:
//
//	handlers := scan.NewHandlers(slog.Default())
//	v1 := router.Group("/v1")
//	scan.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	s := rg.Group("/scan")
	{
		s.POST("", handlers.HandleScan)
		s.GET("/languages", handlers.HandleLanguages)
		s.GET("/health", handlers.HandleHealth)
	}
}
