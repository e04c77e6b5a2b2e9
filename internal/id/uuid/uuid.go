// Package uuid generates run and slice identifiers.
package uuid

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/ccnews-ingest/internal/ccnews"
)

// sliceNamespace scopes name-based slice IDs to this pipeline.
var sliceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://commoncrawl.org/ccnews-ingest/slice"))

// NewRunID returns a UUIDv7 so run ids sort by start time.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate uuid7: %w", err)
	}
	return id.String(), nil
}

// SliceID names a date/session slice. The same slice always yields the same
// id, so consumers can drop completion messages repeated by a rerun.
func SliceID(date time.Time, session ccnews.Session) string {
	name := date.Format(ccnews.DateLayout) + "/" + string(session)
	return uuid.NewSHA1(sliceNamespace, []byte(name)).String()
}
