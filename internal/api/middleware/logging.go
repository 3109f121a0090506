package middleware

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"livechat-backend/utils"

	"github.com/google/uuid"
)

// responseTap wraps the writer so the access line can report status and
// payload size after the handler ran.
type responseTap struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (t *responseTap) WriteHeader(code int) {
	t.status = code
	t.ResponseWriter.WriteHeader(code)
}

func (t *responseTap) Write(b []byte) (int, error) {
	if t.status == 0 {
		t.status = http.StatusOK
	}
	n, err := t.ResponseWriter.Write(b)
	t.bytes += n
	return n, err
}

func (t *responseTap) Flush() {
	if f, ok := t.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (t *responseTap) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := t.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return h.Hijack()
}

type accessLine struct {
	Time      string `json:"time"`
	RequestID string `json:"request_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	Status    int    `json:"status"`
	Bytes     int    `json:"bytes"`
	TookMS    int64  `json:"took_ms"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent"`
}

// Logging emits one JSON line per request and echoes X-Request-ID back to
// the caller, minting one when the proxy did not.
func Logging() Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			tap := &responseTap{ResponseWriter: w}

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", requestID)

			next(tap, r)

			line, err := json.Marshal(accessLine{
				Time:      start.UTC().Format(time.RFC3339),
				RequestID: requestID,
				Method:    r.Method,
				Path:      r.URL.RequestURI(),
				Status:    tap.status,
				Bytes:     tap.bytes,
				TookMS:    time.Since(start).Milliseconds(),
				ClientIP:  utils.RealClientIP(r),
				UserAgent: r.UserAgent(),
			})
			if err != nil {
				log.Printf("access log marshal: %v", err)
				return
			}
			log.Println(string(line))
		}
	}
}
