package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	msterrors "github.com/rumsystem/mstnode/internal/pkg/errors"
	"github.com/rumsystem/mstnode/internal/pkg/handlers"
	"github.com/rumsystem/mstnode/internal/pkg/utils"
)

// @Tags Mst
// @Summary GetPendingBatches
// @Description Return the batches waiting for signatures, oldest first
// @Produce json
// @Success 200 {object} handlers.BatchListResult
// @Router /api/v1/mst/batches [get]
func (h *Handler) GetPendingBatches(c echo.Context) (err error) {
	return c.JSON(http.StatusOK, handlers.GetPendingBatches(h.Processor.PendingBatches()))
}

// @Tags Mst
// @Summary GetPendingBatch
// @Description Return one batch waiting for signatures
// @Produce json
// @Param batch_id path string true "Batch id"
// @Success 200 {object} handlers.BatchResult
// @Router /api/v1/mst/batch/{batch_id} [get]
func (h *Handler) GetPendingBatch(c echo.Context) (err error) {
	result, err := handlers.GetPendingBatch(c.Param("batch_id"), h.Processor.PendingBatches())
	if err != nil {
		return msterrors.NewHTTPError(err)
	}
	return c.JSON(http.StatusOK, result)
}

// @Tags Mst
// @Summary PostBatch
// @Description Propose a batch, signatures of this node or collected offline may be attached
// @Accept json
// @Produce json
// @Param data body handlers.PostBatchParam true "Batch"
// @Success 200 {object} handlers.BatchResult
// @Router /api/v1/mst/batch [post]
func (h *Handler) PostBatch(c echo.Context) (err error) {
	cc := c.(*utils.CustomContext)

	params := new(handlers.PostBatchParam)
	if err := cc.BindAndValidate(params); err != nil {
		return err
	}

	batch, err := handlers.BuildBatch(params, h.Factory)
	if err != nil {
		return msterrors.NewHTTPError(err)
	}
	if err := h.Processor.Propose(batch); err != nil {
		return msterrors.NewBadRequestError(msterrors.ErrInvalidBatchSig.Error() + ": " + err.Error())
	}
	return c.JSON(http.StatusOK, handlers.ToBatchResult(batch))
}
