package http_api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/core-coin/tokensale/internal/models"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// DeploymentsResponse lists the units deployed on a network
type DeploymentsResponse struct {
	Network     string               `json:"network"`
	Deployments []*models.Deployment `json:"deployments"`
}

// RunsResponse lists recent migration runs
type RunsResponse struct {
	Network string                 `json:"network,omitempty"`
	Runs    []*models.MigrationRun `json:"runs"`
}

func (s *HTTPServer) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// deployments is a handler for the /deployments endpoint.
// An empty network returns the deployments of every network.
func (s *HTTPServer) deployments(c *gin.Context) {
	network := c.Query("network")

	deployments, err := s.repo.GetDeployments(network)
	if err != nil {
		s.logger.Error("Failed to get deployments", "error", err, "network", network)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get deployments"})
		return
	}
	if deployments == nil {
		deployments = []*models.Deployment{}
	}

	c.JSON(http.StatusOK, DeploymentsResponse{Network: network, Deployments: deployments})
}

// runs is a handler for the /runs endpoint. It returns the newest runs first.
func (s *HTTPServer) runs(c *gin.Context) {
	network := c.Query("network")

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxRunsLimit)
	}

	runs, err := s.repo.GetRuns(network, limit)
	if err != nil {
		s.logger.Error("Failed to get runs", "error", err, "network", network)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get runs"})
		return
	}
	if runs == nil {
		runs = []*models.MigrationRun{}
	}

	c.JSON(http.StatusOK, RunsResponse{Network: network, Runs: runs})
}

// run is a handler for the /runs/:id endpoint.
func (s *HTTPServer) run(c *gin.Context) {
	id := c.Param("id")

	run, err := s.repo.GetRun(id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		s.logger.Error("Failed to get run", "error", err, "id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get run"})
		return
	}

	c.JSON(http.StatusOK, run)
}
