package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"coop-loans/internal/infrastructure/metrics"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderRequestAt = "X-Request-At"
	HeaderMemberID  = "X-Member-Id"

	// lock held while the handler runs; committed records use the caller's TTL
	provisionalLockTTL = 60 * time.Second
	maxClockSkew       = 10 * time.Minute

	storeTimeout = 2 * time.Second
)

// record is what lives under an idempotency key.
type record struct {
	InProgress  bool      `json:"in_progress"`
	Code        int       `json:"code"`
	Body        []byte    `json:"body"`
	BodySHA256  string    `json:"body_sha256"`
	RequestID   string    `json:"request_id"`
	RequestAtMS int64     `json:"request_at_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// teeWriter copies everything the handler writes so it can be replayed.
type teeWriter struct {
	http.ResponseWriter
	buf  bytes.Buffer
	code int
}

func (w *teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *teeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

type requestHeaders struct {
	requestID string
	requestAt time.Time
	memberID  string
}

// readHeaders validates the idempotency headers of a mutating request.
func readHeaders(req *http.Request, now time.Time) (requestHeaders, error) {
	var h requestHeaders

	h.requestID = strings.TrimSpace(req.Header.Get(HeaderRequestID))
	if h.requestID == "" {
		return h, errors.New("missing " + HeaderRequestID)
	}
	if !validReqID(h.requestID) {
		return h, errors.New("invalid " + HeaderRequestID + " format")
	}

	at, err := parseRequestAt(req.Header.Get(HeaderRequestAt))
	if err != nil {
		return h, err
	}
	if at.Before(now.Add(-maxClockSkew)) || at.After(now.Add(maxClockSkew)) {
		return h, errors.New(HeaderRequestAt + " too skewed")
	}
	h.requestAt = at

	h.memberID = strings.TrimSpace(req.Header.Get(HeaderMemberID))
	if h.memberID == "" {
		return h, errors.New("missing " + HeaderMemberID)
	}
	if !reMemberID.MatchString(h.memberID) {
		return h, errors.New("invalid " + HeaderMemberID)
	}
	return h, nil
}

func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, map[string]string{"error": msg})
}

// Idempotency replays the stored response for a repeated
// method + route + member + X-Request-Id. Server errors are not stored so the
// client may retry with the same id.
// X-Request-At must be epoch (seconds or ms) or RFC3339 with a timezone.
func Idempotency(rdb redis.UniversalClient, ttl time.Duration, log *zap.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "idempotency"))
	st := newStore(rdb)
	outcome := func(o string) { metrics.IdempotencyOutcomes.WithLabelValues(o).Inc() }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			switch req.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			hdr, err := readHeaders(req, nowUTC())
			if err != nil {
				return errJSON(c, http.StatusBadRequest, err.Error())
			}

			var body []byte
			if req.Body != nil {
				if body, err = io.ReadAll(req.Body); err != nil {
					log.Warn("request body unreadable", zap.Error(err))
					return errJSON(c, http.StatusBadRequest, "unreadable request body")
				}
			}
			req.Body = io.NopCloser(bytes.NewReader(body))
			digest := bodyHash(body)

			// route pattern plus the concrete path, so /loans/:reference keys differ per loan
			key := buildKey(req.Method, c.Path()+"|"+req.URL.Path, hdr.memberID, hdr.requestID)
			ctx, cancel := context.WithTimeout(req.Context(), storeTimeout)
			defer cancel()

			rec := record{
				InProgress:  true,
				BodySHA256:  digest,
				RequestID:   hdr.requestID,
				RequestAtMS: hdr.requestAt.UnixMilli(),
				CreatedAt:   nowUTC(),
			}
			fresh, err := st.reserve(ctx, key, rec)
			if err != nil {
				log.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
				outcome("unavailable")
				return errJSON(c, http.StatusServiceUnavailable, "idempotency store unavailable")
			}
			if !fresh {
				prev, err := st.load(ctx, key)
				if err != nil {
					log.Warn("idempotency record unreadable", zap.String("key", key), zap.Error(err))
				}
				switch {
				case prev.BodySHA256 != "" && prev.BodySHA256 != digest:
					outcome("conflict")
					return errJSON(c, http.StatusConflict, HeaderRequestID+" reused with different body")
				case !prev.InProgress && prev.Code != 0 && len(prev.Body) > 0:
					outcome("replayed")
					return c.Blob(prev.Code, echo.MIMEApplicationJSON, prev.Body)
				default:
					outcome("conflict")
					return errJSON(c, http.StatusConflict, "request is already in progress")
				}
			}

			tw := &teeWriter{ResponseWriter: c.Response().Writer, code: http.StatusOK}
			c.Response().Writer = tw
			if err := next(c); err != nil {
				c.Error(err)
			}

			// detached from the request so a client hang-up still settles the key
			settle, cancelSettle := context.WithTimeout(context.Background(), storeTimeout)
			defer cancelSettle()

			if tw.code >= http.StatusInternalServerError {
				if err := st.release(settle, key); err != nil {
					log.Warn("idempotency release failed", zap.String("key", key), zap.Error(err))
				}
				outcome("released")
				return nil
			}

			rec.InProgress = false
			rec.Code = tw.code
			rec.Body = tw.buf.Bytes()
			rec.CreatedAt = nowUTC()
			if err := st.commit(settle, key, rec, ttl); err != nil {
				log.Warn("idempotency commit failed", zap.String("key", key), zap.Error(err))
			}
			outcome("stored")
			return nil
		}
	}
}
