package api

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rumsystem/mstnode/internal/pkg/logging"
	mstmiddleware "github.com/rumsystem/mstnode/internal/pkg/middleware"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
)

var api_log = logging.Logger("api")

// NewServer registers the api routes on a new echo instance
func NewServer(h *Handler, debug bool) *echo.Echo {
	e := utils.NewEcho(debug)
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: mstmiddleware.ApiGzipSkipper,
	}))
	r := e.Group("/api")
	r.GET("/v1/node", h.GetNodeInfo)
	r.GET("/v1/mst/batches", h.GetPendingBatches)
	r.POST("/v1/mst/batch", h.PostBatch)
	r.GET("/v1/mst/batch/:batch_id", h.GetPendingBatch)
	r.GET("/v1/tx/:hash", h.GetTrxStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	return e
}

// StartAPIServer serves the api on address until the returned echo is
// shut down
func StartAPIServer(address string, h *Handler, debug bool) *echo.Echo {
	e := NewServer(h, debug)
	go func() {
		api_log.Infof("api server listening on %s", address)
		if err := e.Start(address); err != nil {
			api_log.Infof("api server stopped: %s", err)
		}
	}()
	return e
}
