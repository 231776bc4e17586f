package api

import (
	"github.com/starford/graphlint/internal/graphservice"
	"github.com/starford/graphlint/internal/lint"
	"github.com/starford/graphlint/internal/report"
)

// ReportResponse is the lint report payload.
type ReportResponse = report.Summary

// DocumentItem is a document listing entry (aliased from the service layer).
type DocumentItem = graphservice.DocumentItem

// DocumentListResponse wraps the document listing.
type DocumentListResponse struct {
	Documents []DocumentItem `json:"documents"`
	Total     int            `json:"total"`
}

// GraphResponse wraps the document graph.
type GraphResponse struct {
	Nodes []DocumentItem `json:"nodes"`
	Links []lint.Edge    `json:"links"`
}

// BacklinksResponse lists the documents linking to Path.
type BacklinksResponse struct {
	Path      string   `json:"path"`
	Backlinks []string `json:"backlinks"`
}
