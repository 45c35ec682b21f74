package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordParse(t *testing.T) {
	ok := testutil.ToFloat64(manifestsParsedTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(manifestsParsedTotal.WithLabelValues("error"))

	RecordParse(time.Millisecond, nil)
	RecordParse(time.Millisecond, errors.New("bad line"))

	assert.Equal(t, ok+1, testutil.ToFloat64(manifestsParsedTotal.WithLabelValues("success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(manifestsParsedTotal.WithLabelValues("error")))
}

func TestRecordListingCache(t *testing.T) {
	hits := testutil.ToFloat64(listingCacheLookups.WithLabelValues("hit"))
	RecordListingCache(true)
	RecordListingCache(false)
	assert.Equal(t, hits+1, testutil.ToFloat64(listingCacheLookups.WithLabelValues("hit")))
}

func TestSetCollections(t *testing.T) {
	SetCollections(7)
	assert.Equal(t, float64(7), testutil.ToFloat64(collectionsTotal))
}

func TestRecordHTTPRequest(t *testing.T) {
	c := httpRequestsTotal.WithLabelValues("GET", "GET /health", "200")
	before := testutil.ToFloat64(c)
	RecordHTTPRequest("GET", "GET /health", 200, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}
