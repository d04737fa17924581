package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"horse.fit/infact/internal/db"
	"horse.fit/infact/internal/globaltime"
	"horse.fit/infact/internal/pipeline"
	payloadschema "horse.fit/infact/schema"
)

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "infact",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleReady(c echo.Context) error {
	if err := s.pool.DB().PingContext(c.Request().Context()); err != nil {
		s.logger.Error().Err(err).Msg("readiness ping failed")
		return fail(c, http.StatusServiceUnavailable, "Database is not reachable", nil)
	}
	return success(c, map[string]any{
		"ready": true,
		"time":  globaltime.UTC(),
	})
}

func (s *Server) handleProcess(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxRequestBodyBytes))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read request body", nil)
	}

	request, err := payloadschema.ValidateProcessRequest(json.RawMessage(body))
	if err != nil {
		return failValidation(c, map[string]string{"payload": err.Error()})
	}

	result, err := s.service.ProcessBatch(c.Request().Context(), *request)
	if err != nil {
		var validationErr *pipeline.ValidationError
		if errors.As(err, &validationErr) {
			return failValidation(c, validationErr.Fields)
		}
		s.logger.Error().Err(err).Int("articles", len(request.Articles)).Msg("batch processing failed")
		return internalError(c, "Batch processing failed")
	}

	return success(c, result)
}

func (s *Server) handleClusters(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	hours, err := parsePositiveInt(c.QueryParam("hours"), defaultWindowHours, 1, maxWindowHours)
	if err != nil {
		return failValidation(c, map[string]string{"hours": err.Error()})
	}

	since := globaltime.UTC().Add(-time.Duration(hours) * time.Hour)
	clusters, err := s.pool.ListRecentClusters(c.Request().Context(), since, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list clusters failed")
		return internalError(c, "Failed to load clusters")
	}

	return success(c, map[string]any{
		"items": clusters,
		"window": map[string]any{
			"hours": hours,
			"since": since,
		},
		"limit": limit,
	})
}

func (s *Server) handleClusterSearch(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return failValidation(c, map[string]string{"q": "is required"})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	clusters, err := s.pool.SearchClusters(c.Request().Context(), query, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("query", query).Msg("cluster search failed")
		return internalError(c, "Cluster search failed")
	}

	return success(c, map[string]any{
		"items": clusters,
		"query": query,
		"limit": limit,
	})
}

func (s *Server) handleClustersBySource(c echo.Context) error {
	source := strings.TrimSpace(c.QueryParam("source"))
	if source == "" {
		return failValidation(c, map[string]string{"source": "is required"})
	}
	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	hours, err := parsePositiveInt(c.QueryParam("hours"), defaultWindowHours, 1, maxWindowHours)
	if err != nil {
		return failValidation(c, map[string]string{"hours": err.Error()})
	}

	since := globaltime.UTC().Add(-time.Duration(hours) * time.Hour)
	clusters, err := s.pool.ListClustersBySource(c.Request().Context(), source, since, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("source", source).Msg("list clusters by source failed")
		return internalError(c, "Failed to load clusters")
	}

	return success(c, map[string]any{
		"items":  clusters,
		"source": source,
		"window": map[string]any{
			"hours": hours,
			"since": since,
		},
		"limit": limit,
	})
}

func (s *Server) handleClusterTrending(c echo.Context) error {
	limit, err := parsePositiveInt(c.QueryParam("limit"), 10, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	hours, err := parsePositiveInt(c.QueryParam("hours"), 24, 1, maxWindowHours)
	if err != nil {
		return failValidation(c, map[string]string{"hours": err.Error()})
	}

	since := globaltime.UTC().Add(-time.Duration(hours) * time.Hour)
	clusters, err := s.pool.ListTrendingClusters(c.Request().Context(), since, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("list trending clusters failed")
		return internalError(c, "Failed to load trending clusters")
	}

	return success(c, map[string]any{
		"items": clusters,
		"window": map[string]any{
			"hours": hours,
			"since": since,
		},
		"limit": limit,
	})
}

func (s *Server) handleClusterDetail(c echo.Context) error {
	clusterUUID := strings.TrimSpace(c.Param("cluster_uuid"))
	if clusterUUID == "" {
		return failValidation(c, map[string]string{"cluster_uuid": "is required"})
	}
	if _, err := uuid.Parse(clusterUUID); err != nil {
		return failValidation(c, map[string]string{"cluster_uuid": "must be a valid UUID"})
	}

	detail, err := s.pool.GetClusterByUUID(c.Request().Context(), clusterUUID)
	if err != nil {
		if db.IsNoRows(err) {
			return failNotFound(c, "Cluster not found")
		}
		s.logger.Error().Err(err).Str("cluster_uuid", clusterUUID).Msg("load cluster detail failed")
		return internalError(c, "Failed to load cluster")
	}

	return success(c, detail)
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.pool.QueryStoreStats(c.Request().Context(), globaltime.UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}
	return success(c, stats)
}

func (s *Server) handleTimeline(c echo.Context) error {
	days, err := parsePositiveInt(c.QueryParam("days"), defaultTimelineDays, 1, maxTimelineDays)
	if err != nil {
		return failValidation(c, map[string]string{"days": err.Error()})
	}

	timeline, err := s.pool.QueryClusterTimeline(c.Request().Context(), globaltime.UTC(), days)
	if err != nil {
		s.logger.Error().Err(err).Msg("query timeline failed")
		return internalError(c, "Failed to load timeline")
	}

	return success(c, map[string]any{
		"items": timeline,
		"days":  days,
	})
}

func (s *Server) handleCleanup(c echo.Context) error {
	days, err := parsePositiveInt(c.QueryParam("days"), s.opts.RetentionDays, 1, maxTimelineDays)
	if err != nil {
		return failValidation(c, map[string]string{"days": err.Error()})
	}

	now := globaltime.UTC()
	cutoff := now.AddDate(0, 0, -days)
	result, err := s.pool.DeleteClustersBefore(c.Request().Context(), cutoff, now)
	if err != nil {
		s.logger.Error().Err(err).Int("days", days).Msg("cleanup failed")
		return internalError(c, "Cleanup failed")
	}

	s.logger.Info().
		Int64("clusters", result.Clusters).
		Int64("detached_articles", result.DetachedArticles).
		Int("days", days).
		Msg("retention cleanup finished")

	return successWithStatus(c, http.StatusOK, map[string]any{
		"deleted_clusters":  result.Clusters,
		"detached_articles": result.DetachedArticles,
		"cutoff":            cutoff,
		"days":              days,
	})
}
