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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ScanRequest is the body of POST /v1/scan.
type ScanRequest struct {
	// ProjectRoot is the project directory to scan. Read-only access.
	ProjectRoot string `json:"project_root" binding:"required"`

	// Language selects the grammar: cpp, csharp, java, python, typescript.
	Language string `json:"language" binding:"required"`

	// Workers optionally overrides the parallel file worker count.
	Workers int `json:"workers"`
}

// ScanResponse is the body returned by POST /v1/scan.
type ScanResponse struct {
	// ScanID is a server-assigned identifier for this scan invocation.
	ScanID string `json:"scan_id"`

	// NoResult is true when the root was missing or no test files matched.
	// Absence of tests is a valid outcome, not an error.
	NoResult bool `json:"no_result"`

	// Report is the scan result. Nil when NoResult is true.
	Report *ProjectReport `json:"report,omitempty"`
}

// Handlers bundles the HTTP handlers for the scan API.
type Handlers struct {
	logger *slog.Logger
}

// NewHandlers creates the scan API handlers.
func NewHandlers(logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger}
}

// HandleScan runs one project scan.
//
// Description:
//
//	POST /v1/scan with {"project_root": "...", "language": "java"}.
//	Returns 200 with the report, 200 with no_result=true when no test files
//	were located, 400 for a bad request body or unsupported language, and
//	500 for scan-level failures.
func (h *Handlers) HandleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lang, err := ParseLanguage(req.Language)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := []ScannerOption{WithLogger(h.logger)}
	if req.Workers > 0 {
		opts = append(opts, WithWorkerCount(req.Workers))
	}
	scanner, err := NewScanner(lang, opts...)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scanID := uuid.NewString()
	h.logger.Info("scan requested",
		slog.String("scan_id", scanID),
		slog.String("project_root", req.ProjectRoot),
		slog.String("language", string(lang)))

	report, err := scanner.ProcessProject(c.Request.Context(), req.ProjectRoot)
	if err != nil {
		h.logger.Error("scan failed",
			slog.String("scan_id", scanID),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ScanResponse{
		ScanID:   scanID,
		NoResult: report == nil,
		Report:   report,
	})
}

// HandleLanguages lists the supported languages.
//
// GET /v1/scan/languages
func (h *Handlers) HandleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": Languages()})
}

// HandleHealth is a liveness check.
//
// GET /v1/scan/health
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
