package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"expensio/internal/log"
)

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor := actorFrom(r)
	key := analyticsCacheKey(actor.ID, r.URL.RawQuery)

	if summary, found := s.analyticsCache.Get(key); found {
		slog.DebugContext(r.Context(), "Analytics cache hit", log.FieldUserID, actor.ID)
		writeData(w, http.StatusOK, toSummaryDTO(summary))
		return
	}

	summary, err := s.expenses.Analytics(r.Context(), actor, params)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.analyticsCache.Set(key, summary)
	writeData(w, http.StatusOK, toSummaryDTO(summary))
}

func analyticsCacheKey(actorID int64, rawQuery string) string {
	return fmt.Sprintf("%d|%s", actorID, rawQuery)
}
