package httpapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"gardencore/internal/adapters/designs"
	"gardencore/pkg/domain"
)

// mutation wraps a written entity with the non-blocking rule findings.
type mutation struct {
	Data       any                `json:"data"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

func (s *Server) listPlants(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.ListPlants(c.Request().Context()))
}

func (s *Server) createPlant(c echo.Context) error {
	var plant domain.Plant
	if err := c.Bind(&plant); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid plant body")
	}
	if err := validate.Struct(plant); err != nil {
		return err
	}
	created, res, err := s.svc.CreatePlant(c.Request().Context(), plant)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mutation{Data: created, Violations: res.Violations})
}

func (s *Server) deletePlant(c echo.Context) error {
	if _, err := s.svc.DeletePlant(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) listSites(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.ListSites(c.Request().Context()))
}

func (s *Server) createSite(c echo.Context) error {
	var site domain.Site
	if err := c.Bind(&site); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid site body")
	}
	if err := validate.Struct(site); err != nil {
		return err
	}
	created, res, err := s.svc.CreateSite(c.Request().Context(), site)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mutation{Data: created, Violations: res.Violations})
}

func (s *Server) getSite(c echo.Context) error {
	site, err := s.svc.GetSite(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, site)
}

func (s *Server) deleteSite(c echo.Context) error {
	if _, err := s.svc.DeleteSite(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type generateRequest struct {
	SiteID          string   `json:"site_id" validate:"required"`
	PlantsPerZone   int      `json:"plants_per_zone"`
	DiversityFactor *float64 `json:"diversity_factor"`
}

func (s *Server) generateDesign(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid design request")
	}
	if err := validate.Struct(req); err != nil {
		return err
	}
	rec, res, err := s.svc.GenerateDesign(c.Request().Context(), req.SiteID, domain.DesignOptions{
		PlantsPerZone:   req.PlantsPerZone,
		DiversityFactor: req.DiversityFactor,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, mutation{Data: rec, Violations: res.Violations})
}

func (s *Server) listDesigns(c echo.Context) error {
	return c.JSON(http.StatusOK, s.svc.ListDesigns(c.Request().Context()))
}

func (s *Server) getDesign(c echo.Context) error {
	rec, err := s.svc.GetDesign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) deleteDesign(c echo.Context) error {
	if _, err := s.svc.DeleteDesign(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) plotDesign(c echo.Context) error {
	rec, err := s.svc.GetDesign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	payload, err := designs.RenderPNG(rec.Design)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, designs.FormatPNG.ContentType(), payload)
}

// downloadDesign renders one format synchronously as an attachment.
func (s *Server) downloadDesign(c echo.Context) error {
	format, err := designs.ParseFormat(c.Param("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec, err := s.svc.GetDesign(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	payload, err := designs.Render(format, rec)
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+rec.FileStem()+"."+string(format)+`"`)
	return c.Blob(http.StatusOK, format.ContentType(), payload)
}

type exportRequest struct {
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requested_by"`
}

func (s *Server) enqueueExport(c echo.Context) error {
	if s.exports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "exports are not configured")
	}
	var req exportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid export request")
	}
	formats := make([]designs.Format, 0, len(req.Formats))
	for _, raw := range req.Formats {
		f, err := designs.ParseFormat(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		formats = append(formats, f)
	}
	rec, err := s.exports.EnqueueExport(c.Request().Context(), designs.ExportInput{
		DesignID:    c.Param("id"),
		Formats:     formats,
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, rec)
}

func (s *Server) getExport(c echo.Context) error {
	if s.exports == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "exports are not configured")
	}
	rec, ok := s.exports.GetExport(c.Param("id"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "export "+c.Param("id")+" not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (s *Server) lookupEnvironment(c echo.Context) error {
	if s.env == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "environment lookups are not configured")
	}
	lat, err := strconv.ParseFloat(c.QueryParam("lat"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lat must be a number")
	}
	lon, err := strconv.ParseFloat(c.QueryParam("lon"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lon must be a number")
	}
	var area float64
	if raw := c.QueryParam("area"); raw != "" {
		if area, err = strconv.ParseFloat(raw, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "area must be a number")
		}
	}
	report, err := s.env.Lookup(c.Request().Context(), lat, lon, area)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}
