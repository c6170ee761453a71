package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type NodeInfo struct {
	NodeVersion    string `json:"node_version"`
	PendingBatches int    `json:"pending_batches"`
}

// @Tags Node
// @Summary GetNodeInfo
// @Description Return the node info
// @Produce json
// @Success 200 {object} NodeInfo
// @Router /api/v1/node [get]
func (h *Handler) GetNodeInfo(c echo.Context) (err error) {
	info := NodeInfo{
		NodeVersion:    h.GitCommit,
		PendingBatches: len(h.Processor.PendingBatches()),
	}
	return c.JSON(http.StatusOK, info)
}
