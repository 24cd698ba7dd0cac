package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/kwlsim/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const MAX_VALUE_BODY = 1024

type propertyValueResponse struct {
	Name  string `json:"name"`
	Index *int   `json:"index,omitempty"`
	Value string `json:"value"`
}

type bridgeResponse struct {
	State string       `json:"state"`
	Stats bridgeCounts `json:"stats"`
}

type bridgeCounts struct {
	Reads     uint64 `json:"reads"`
	Writes    uint64 `json:"writes"`
	Echoes    uint64 `json:"echoes"`
	Rejected  uint64 `json:"rejected"`
	Malformed uint64 `json:"malformed"`
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/bridge", s.BridgeHandler)
	e.GET("/properties", s.ListPropertiesHandler)
	e.GET("/properties/:name", s.GetPropertyHandler)
	e.PUT("/properties/:name", s.PutPropertyHandler)
	e.GET("/properties/:name/:index", s.GetPropertyIndexHandler)
	e.PUT("/properties/:name/:index", s.PutPropertyIndexHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

func (s *Server) BridgeHandler(c echo.Context) error {
	stats := s.bridge.Stats()
	return c.JSON(http.StatusOK, bridgeResponse{
		State: s.bridge.State().String(),
		Stats: bridgeCounts(stats),
	})
}

func (s *Server) ListPropertiesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.properties.Properties())
}

func (s *Server) GetPropertyHandler(c echo.Context) error {
	name := c.Param("name")
	value, err := s.properties.Read(name)
	if err != nil {
		return propertyError(err)
	}
	return c.JSON(http.StatusOK, propertyValueResponse{Name: name, Value: value})
}

func (s *Server) PutPropertyHandler(c echo.Context) error {
	value, err := readValue(c)
	if err != nil {
		return err
	}
	if err := s.properties.Write(c.Param("name"), value); err != nil {
		return propertyError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetPropertyIndexHandler(c echo.Context) error {
	name := c.Param("name")
	i, err := index(c)
	if err != nil {
		return err
	}
	value, err := s.properties.ReadIndex(name, i)
	if err != nil {
		return propertyError(err)
	}
	return c.JSON(http.StatusOK, propertyValueResponse{Name: name, Index: &i, Value: value})
}

func (s *Server) PutPropertyIndexHandler(c echo.Context) error {
	i, err := index(c)
	if err != nil {
		return err
	}
	value, err := readValue(c)
	if err != nil {
		return err
	}
	if err := s.properties.WriteIndex(c.Param("name"), i, value); err != nil {
		return propertyError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func index(c echo.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "index must be an integer")
	}
	return i, nil
}

// readValue returns the request body without the trailing line break.
func readValue(c echo.Context) (string, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, MAX_VALUE_BODY+1))
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(body) > MAX_VALUE_BODY {
		return "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, "value too long")
	}
	return strings.TrimRight(string(body), "\r\n"), nil
}

func propertyError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownProperty):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotReadable), errors.Is(err, domain.ErrNotWritable):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrDecoding), errors.Is(err, domain.ErrTypeMismatch),
		errors.Is(err, domain.ErrIndexOutOfRange), errors.Is(err, domain.ErrEncodingLimitsExceeded):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
