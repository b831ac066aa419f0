package webui

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/zeebo/xxh3"

	"csvtojson/internal/converter"
	"csvtojson/internal/host"
	"csvtojson/internal/logging"
	"csvtojson/internal/metrics"
	"csvtojson/internal/storage"
)

// pageData feeds index.tmpl.html.
type pageData struct {
	CSV    string
	Entry  string
	Output string
	Rows   int
	Error  string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, pageData{})
}

// handleConvert takes either an uploaded file (binary entry) or the textarea
// (text entry) and renders the result inline.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.readError(w, r, err)
		return
	}

	data := pageData{CSV: r.FormValue("csv"), Entry: host.TextEntry}
	input := []byte(data.CSV)

	if f, _, err := r.FormFile("file"); err == nil {
		b, rerr := io.ReadAll(f)
		f.Close()
		if rerr != nil {
			s.readError(w, r, rerr)
			return
		}
		data.Entry = host.BinaryEntry
		input = b
	}

	metrics.RecordBytes(s.cfg.Job, int64(len(input)))
	res, err := s.adapter.Call(data.Entry, input)
	if err != nil {
		data.Error = err.Error()
		s.render(w, r, statusFor(err), data)
		return
	}
	data.Output = string(res.JSON)
	data.Rows = res.Rows
	s.render(w, r, http.StatusOK, data)
}

// handleAPI serves one entry point. The request body is the whole input.
func (s *Server) handleAPI(entry string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
		if err != nil {
			s.readError(w, r, err)
			return
		}
		metrics.RecordBytes(s.cfg.Job, int64(len(body)))

		res, err := s.adapter.Call(entry, body)
		if err != nil {
			logging.FromContext(r.Context()).Warn("conversion failed",
				"entry", entry,
				"kind", converter.KindOf(err).String(),
				"error", err,
			)
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		if s.sink != nil {
			name := strings.TrimSpace(r.URL.Query().Get("name"))
			if name == "" {
				name = middleware.GetReqID(r.Context())
			}
			doc := storage.NewDocument(name, "http:"+entry, body, res)
			if err := s.sink.Write(r.Context(), doc); err != nil {
				logging.FromContext(r.Context()).Error("archive failed", "name", name, "error", err)
				http.Error(w, "archive failed", http.StatusInternalServerError)
				return
			}
		}

		etag := ETag(res.JSON)
		w.Header().Set("ETag", etag)
		w.Header().Set("X-Row-Count", fmt.Sprint(res.Rows))
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write(res.JSON)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.Execute(w, data); err != nil {
		logging.FromContext(r.Context()).Error("template error", "error", err)
	}
}

// readError answers a failed body read: 413 when the limit was hit, 400
// otherwise.
func (s *Server) readError(w http.ResponseWriter, r *http.Request, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		http.Error(w, fmt.Sprintf("request body exceeds %d bytes", mbe.Limit), http.StatusRequestEntityTooLarge)
		return
	}
	logging.FromContext(r.Context()).Warn("bad request body", "error", err)
	http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
}

// statusFor maps an entry-point failure to an HTTP status: a recovered panic
// is a server fault, anything else is unprocessable input.
func statusFor(err error) int {
	var pe *host.PanicError
	if errors.As(err, &pe) {
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

// ETag returns a strong entity tag for body.
func ETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
}
