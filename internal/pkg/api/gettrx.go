package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/internal/pkg/handlers"
)

// @Tags Chain
// @Summary GetTrxStatus
// @Description Get the status of a transaction by its hex hash
// @Produce json
// @Param hash path string true "Transaction hash"
// @Success 200 {object} handlers.TrxStatusResult
// @Router /api/v1/tx/{hash} [get]
func (h *Handler) GetTrxStatus(c echo.Context) (err error) {
	hash := c.Param("hash")

	result, err := handlers.GetTrxStatus(hash, h.Index, h.Processor.PendingBatches())
	if err != nil {
		return msterrors.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}
