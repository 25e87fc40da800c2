package token

import (
	"fmt"
	"math"

	"github.com/baharkarakas/donation-token/internal/models"
)

const metadataKey = "Metadata"

func readMetadata(e *env) (models.Metadata, error) {
	var md models.Metadata
	ok, err := e.tx.Instance().Get(metadataKey, &md)
	if err != nil {
		return models.Metadata{}, err
	}
	if !ok {
		return models.Metadata{}, ErrNotInitialized
	}
	return md, nil
}

func writeMetadata(e *env, md models.Metadata) error {
	if md.Decimal > math.MaxUint8 {
		return fmt.Errorf("%w: %d", ErrDecimalOutOfRange, md.Decimal)
	}
	return e.tx.Instance().Set(metadataKey, md)
}
