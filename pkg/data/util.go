package data

import (
	"fmt"

	"github.com/rumsystem/mstnode/internal/pkg/logging"
)

const TRX_CONTENT_SIZE_LIMIT = 300 * 1024 //300Kb
var dataLog = logging.Logger("data")

func IsTrxContentWithinSizeLimit(content []byte) (bool, error) {
	size := len(content)
	if size > TRX_CONTENT_SIZE_LIMIT {
		e := fmt.Errorf("trx content size %dkb over %dkb", size/1024, TRX_CONTENT_SIZE_LIMIT/1024)
		dataLog.Warn(e)
		return false, e
	}

	return true, nil
}
