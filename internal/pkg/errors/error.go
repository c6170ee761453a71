package errors

import "errors"

var (
	ErrEmptyBatchID    = errors.New("Batch id can not be empty")
	ErrBatchNotFound   = errors.New("Batch not found")
	ErrInvalidBatch    = errors.New("Invalid batch data")
	ErrInvalidBatchSig = errors.New("Invalid batch signature")

	ErrEmptyTrxHash    = errors.New("Trx hash can not be empty")
	ErrInvalidTrxHash  = errors.New("Invalid trx hash")
	ErrTrxHashNotFound = errors.New("Trx hash not found")

	ErrUnknownPeer     = errors.New("Unknown peer")
	ErrTransportClosed = errors.New("Transport closed")
	ErrSenderMismatch  = errors.New("Envelope sender is not the publisher")

	ErrIndexerClosed = errors.New("Indexer closed")
)
