package usecase

import (
	"time"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

// createdAtLayout matches what existing producers write: a naive ISO-8601
// timestamp with microseconds.
const createdAtLayout = "2006-01-02T15:04:05.000000"

// withSourceDefaults fills absent source data the way the producer always
// has, so growth comparisons have a baseline.
func withSourceDefaults(s domain.EntitySummary) domain.EntitySummary {
	if s.YelpData == nil {
		s.YelpData = &domain.YelpData{ReviewCount: domain.NewNumber(0)}
	}
	if s.GoogleMapsData == nil {
		zero := 0.0
		s.GoogleMapsData = &domain.GoogleMapsData{TotalRatings: domain.NewNumber(0), Rating: &zero}
	}
	if s.LinkedInData == nil {
		s.LinkedInData = &domain.LinkedInData{CompanySize: domain.NewNumber(0)}
	}
	return s
}

// DetermineLogType picks the log type for fresh source data given the
// previous log for the same URL (nil when the business is new). Review
// changes take precedence over company size changes. A counter that either
// side did not report is not compared; a source missing from prev entirely
// counts from 0.
func DetermineLogType(prev *domain.LogRecord, s domain.EntitySummary) domain.LogType {
	if prev == nil {
		return domain.LogTypeNewEntity
	}

	if s.YelpData != nil && s.GoogleMapsData != nil {
		oldYelp := domain.NewNumber(0)
		if prev.YelpData != nil {
			oldYelp = prev.YelpData.ReviewCount
		}
		oldGoogle := domain.NewNumber(0)
		if prev.GoogleMapsData != nil {
			oldGoogle = prev.GoogleMapsData.TotalRatings
		}

		if countersDiffer(oldYelp, s.YelpData.ReviewCount) || countersDiffer(oldGoogle, s.GoogleMapsData.TotalRatings) {
			return domain.LogTypeBusinessGrowth
		}
	}

	if s.LinkedInData != nil && prev.LinkedInData != nil {
		if countersDiffer(prev.LinkedInData.CompanySize, s.LinkedInData.CompanySize) {
			return domain.LogTypeOrgGrowth
		}
	}

	return domain.LogTypeNewEntity
}

func countersDiffer(oldVal, newVal *domain.Number) bool {
	if oldVal == nil || newVal == nil {
		return false
	}
	o, oErr := oldVal.Float()
	n, nErr := newVal.Float()
	if oErr == nil && nErr == nil {
		return o != n
	}
	return oldVal.String() != newVal.String()
}

// BuildLogRecord assembles the record to store for url. Only the delta pair
// relevant to the chosen log type is filled, and a pair side stays absent when
// its source did not report the counter.
func BuildLogRecord(url string, prev *domain.LogRecord, s domain.EntitySummary, now time.Time) domain.LogRecord {
	s = withSourceDefaults(s)
	logType := DetermineLogType(prev, s)

	rec := domain.LogRecord{
		BusinessName:    s.Name,
		BusinessSummary: s.Summary,
		BusinessURL:     url,
		CreatedAt:       now.UTC().Format(createdAtLayout),
		LogType:         logType,
		GoogleMapsData:  s.GoogleMapsData,
		LinkedInData:    s.LinkedInData,
		YelpData:        s.YelpData,
	}

	switch logType {
	case domain.LogTypeBusinessGrowth:
		if prev.YelpData != nil {
			rec.OldYelpReviews = prev.YelpData.ReviewCount
		}
		rec.NewYelpReviews = s.YelpData.ReviewCount
		if prev.GoogleMapsData != nil {
			rec.OldGoogleReviews = prev.GoogleMapsData.TotalRatings
		}
		rec.NewGoogleReviews = s.GoogleMapsData.TotalRatings
	case domain.LogTypeOrgGrowth:
		rec.OldCompanySize = prev.LinkedInData.CompanySize
		rec.NewCompanySize = s.LinkedInData.CompanySize
	}

	return rec
}
