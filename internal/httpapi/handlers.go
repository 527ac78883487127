package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kitbuilder587/tubescout/internal/domain"
	"github.com/kitbuilder587/tubescout/internal/export"
	"github.com/kitbuilder587/tubescout/internal/service"
)

const kindRateLimited = "rate_limited"

type recordJSON struct {
	PublishedDate string `json:"published_date"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	URL           string `json:"url"`
}

type searchResponse struct {
	Keyword string       `json:"keyword"`
	From    string       `json:"from"`
	To      string       `json:"to"`
	Count   int          `json:"count"`
	Records []recordJSON `json:"records"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q, records, err := s.search(r)
	if err != nil {
		s.writeError(w, "search", start, err)
		return
	}

	resp := searchResponse{
		Keyword: q.Keyword,
		From:    q.StartDate.Format(domain.DateLayout),
		To:      q.EndDate.Format(domain.DateLayout),
		Count:   len(records),
		Records: make([]recordJSON, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, recordJSON{
			PublishedDate: rec.PublishedDate.Format(domain.DateLayout),
			Title:         rec.Title,
			Author:        rec.Author,
			URL:           rec.URL,
		})
	}

	s.record("search", "success", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	format, err := export.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		s.record("export", "error", start)
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: string(domain.KindValidation)})
		return
	}
	exporter, err := export.ForFormat(format)
	if err != nil {
		s.writeError(w, "export", start, err)
		return
	}

	q, records, err := s.search(r)
	if err != nil {
		s.writeError(w, "export", start, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, records); err != nil {
		s.writeError(w, "export", start, fmt.Errorf("export %s: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", exporter.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.FileName(q.Keyword, format),
	}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("failed to write export body", zap.Error(err))
	}

	s.record("export", "success", start)
}

func (s *Server) search(r *http.Request) (domain.SearchQuery, []domain.Record, error) {
	params := r.URL.Query()

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return domain.SearchQuery{}, nil, fmt.Errorf("%w: limit %q", domain.ErrInvalidResultCap, raw)
		}
		limit = n
		if limit == 0 {
			return domain.SearchQuery{}, nil, domain.ErrInvalidResultCap
		}
	}

	q, err := service.BuildQuery(service.SearchParams{
		Keyword: params.Get("q"),
		From:    params.Get("from"),
		To:      params.Get("to"),
		Limit:   limit,
	}, s.config.Limits, s.now())
	if err != nil {
		return domain.SearchQuery{}, nil, err
	}

	if s.metrics != nil {
		s.metrics.IncRequestsInFlight()
		defer s.metrics.DecRequestsInFlight()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.SearchTimeout)
	defer cancel()

	records, err := s.aggregator.Aggregate(ctx, q)
	if err != nil {
		return domain.SearchQuery{}, nil, err
	}
	return q, records, nil
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !s.limiter.Allow(ip) {
			if s.metrics != nil {
				s.metrics.RecordRateLimitHit("http")
			}
			retry := time.Until(s.limiter.ResetTime(ip))
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Error: "too many requests, try again later",
				Kind:  kindRateLimited,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeError(w http.ResponseWriter, reqType string, start time.Time, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("type", reqType), zap.String("kind", string(kind)), zap.Error(err))
	} else {
		s.logger.Info("request rejected", zap.String("type", reqType), zap.String("kind", string(kind)), zap.Error(err))
	}

	s.record(reqType, "error", start)

	body := errorResponse{Error: err.Error(), Kind: string(kind)}
	if kind == domain.KindUnknown {
		body = errorResponse{Error: "internal error", Kind: "internal"}
	}
	writeJSON(w, status, body)
}

func (s *Server) record(reqType, status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRequest("http_"+reqType, status, time.Since(start))
	}
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindQuotaExceeded:
		return http.StatusTooManyRequests
	case domain.KindInvalidCredential, domain.KindTransport, domain.KindMalformedResponse, domain.KindProtocolAnomaly:
		return http.StatusBadGateway
	case domain.KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
