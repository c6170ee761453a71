package storage

import (
	"github.com/rumsystem/mstnode/internal/pkg/logging"
)

var dbmgr_log = logging.Logger("dbmgr")

type DbMgr struct {
	IndexDb  QuorumStorage
	DataPath string
}

func CreateDb(path string) (*DbMgr, error) {
	indexDb := QSBadger{}
	if err := indexDb.Init(path + "_index"); err != nil {
		return nil, err
	}

	manager := DbMgr{IndexDb: &indexDb, DataPath: path}
	return &manager, nil
}

func (dbMgr *DbMgr) CloseDb() {
	if err := dbMgr.IndexDb.Close(); err != nil {
		dbmgr_log.Errorf("close index db failed: %s", err)
		return
	}
	dbmgr_log.Infof("index db closed")
}
