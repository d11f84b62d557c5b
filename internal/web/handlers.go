package web

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/fileconv/internal/core"
	"github.com/JonMunkholm/fileconv/internal/web/templates"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// processingCompleted is shown after every successful run.
const processingCompleted = "Processing Completed"

// handleHome renders the upload form.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	templates.Home(templates.HomeView{
		MaxFiles:      s.cfg.Upload.MaxFiles,
		MaxFileSizeMB: s.cfg.Upload.MaxFileSize >> 20,
	}).Render(r.Context(), w)
}

// handleUpload parses the submitted files into a new session and redirects
// to its overview.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	sess, err := s.service.CreateSession(r.Context(), files)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, sessionPath(sess.ID), http.StatusSeeOther)
}

// handleSession lists the files of a session with their parse outcome.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	view := templates.SessionView{ID: sess.ID, Files: make([]templates.FileSummary, len(sess.Files))}
	for i, f := range sess.Files {
		view.Files[i] = fileSummary(sess.ID, f)
	}
	templates.SessionPage(view).Render(r.Context(), w)
}

// handleFile shows a file's preview and options form and, once the form
// has been applied, the cleaned result.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	sess, file, ok := s.lookupFile(w, r)
	if !ok {
		return
	}

	view := templates.FileView{
		SessionID:   sess.ID,
		SessionHref: sessionPath(sess.ID),
		File:        fileSummary(sess.ID, file),
	}
	if !file.OK() {
		view.Error = errorView(file.Err)
		templates.FilePage(view).Render(r.Context(), w)
		return
	}

	view.Original = previewTable("Original data", file.Dataset.Head(s.service.PreviewRows()))

	form, err := parseOptionsForm(requestValues(r))
	view.Form = s.optionsFormView(filePath(sess.ID, file.Index), file.Dataset, form)
	if err != nil {
		view.Error = errorView(err)
		w.WriteHeader(statusFor(err))
		templates.FilePage(view).Render(r.Context(), w)
		return
	}
	if !form.Applied {
		templates.FilePage(view).Render(r.Context(), w)
		return
	}

	res, err := s.service.ConvertSessionFile(r.Context(), sess.ID, file.Index, form.CleaningOptions(), form.ExportFormat())
	if err != nil {
		view.Error = errorView(err)
		w.WriteHeader(statusFor(err))
		templates.FilePage(view).Render(r.Context(), w)
		return
	}
	view.Result = s.resultView(sess.ID, file.Index, form, res)
	templates.FilePage(view).Render(r.Context(), w)
}

// handleDownload re-runs the options in the query and sends the export.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, file, ok := s.lookupFile(w, r)
	if !ok {
		return
	}
	form, err := parseOptionsForm(requestValues(r))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res, err := s.service.ConvertSessionFile(r.Context(), sess.ID, file.Index, form.CleaningOptions(), form.ExportFormat())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeExport(w, res.Export)
}

// handleChart renders the chart of the cleaned table as an image.
func (s *Server) handleChart(format core.ChartFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, file, ok := s.lookupFile(w, r)
		if !ok {
			return
		}
		form, err := parseOptionsForm(requestValues(r))
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		opts := form.CleaningOptions()
		opts.ShowChart = true

		res, err := s.service.ConvertSessionFile(r.Context(), sess.ID, file.Index, opts, form.ExportFormat())
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		img, err := s.service.RenderChart(res, format)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.Write(img)
	}
}

// handleHealth reports liveness and load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":      "ok",
		"sessions":    s.service.SessionCount(),
		"conversions": s.service.LimiterStatus(),
	})
}

// lookupFile resolves the session and file named in the URL, writing an
// error response when either is missing.
func (s *Server) lookupFile(w http.ResponseWriter, r *http.Request) (*core.Session, *core.SessionFile, bool) {
	sess, err := s.service.Session(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return nil, nil, false
	}
	idx, err := strconv.Atoi(chi.URLParam(r, "fileIndex"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %q", core.ErrFileNotFound, chi.URLParam(r, "fileIndex")), 0)
		return nil, nil, false
	}
	file, err := sess.File(idx)
	if err != nil {
		s.respondError(w, r, err, 0)
		return nil, nil, false
	}
	return sess, file, true
}

// readUploads reads the multipart files of r, enforcing the count and size
// limits. Files may be sent as "files" or "file".
func (s *Server) readUploads(w http.ResponseWriter, r *http.Request) ([]core.UploadedFile, error) {
	memory := s.cfg.Upload.MemoryLimit
	limit := s.cfg.Upload.MaxFileSize*int64(s.cfg.Upload.MaxFiles) + memory
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(memory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, fmt.Errorf("%w: request exceeds %d bytes", core.ErrFileTooLarge, tooBig.Limit)
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, core.ErrNoFiles
		}
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidOption, err)
	}
	// The server only cleans up forms parsed on its original request.
	defer r.MultipartForm.RemoveAll()

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		return nil, core.ErrNoFiles
	}
	if len(headers) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", core.ErrInvalidOption, s.cfg.Upload.MaxFiles)
	}

	files := make([]core.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > s.cfg.Upload.MaxFileSize {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", core.ErrFileTooLarge, fh.Filename, fh.Size, s.cfg.Upload.MaxFileSize)
		}
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, core.UploadedFile{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

// writeExport sends an export as a file download.
func writeExport(w http.ResponseWriter, e *core.Export) {
	w.Header().Set("Content-Type", e.MIME)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": e.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(e.Data)))
	w.Write(e.Data)
}

func (s *Server) resultView(sessionID string, idx int, form optionsForm, res *core.Result) *templates.ResultView {
	base := filePath(sessionID, idx)
	query := form.Query().Encode()

	view := &templates.ResultView{
		Messages:     append(res.Report.Messages(), processingCompleted),
		Preview:      previewTable("Cleaned data", res.Dataset.Head(s.service.PreviewRows())),
		DownloadURL:  base + "/download?" + query,
		DownloadName: res.Export.FileName,
		FormatLabel:  form.ExportFormat().String(),
	}
	if form.ShowChart {
		if res.Chart != nil {
			view.ChartURL = base + "/chart.svg?" + query
		} else {
			view.ChartNote = "Chart not available: the table has no numeric columns."
		}
	}
	return view
}

func (s *Server) optionsFormView(action string, ds *core.Dataset, form optionsForm) templates.OptionsForm {
	picked := make(map[string]bool, len(form.Columns))
	for _, c := range form.Columns {
		picked[c] = true
	}

	view := templates.OptionsForm{
		Action:           action,
		RemoveDuplicates: form.RemoveDuplicates,
		FillMissing:      form.FillMissing,
		FillValue:        form.FillValue,
		ShowChart:        form.ShowChart,
		Format:           form.ExportFormat().Extension(),
	}
	if !form.FillValueSet {
		view.FillValue = s.cfg.Pipeline.DefaultFillValue
	}
	if view.Format == core.ExtXLSX {
		view.Format = "excel"
	}
	for _, col := range ds.Columns() {
		view.Columns = append(view.Columns, templates.ColumnOption{
			Name:     col.Name,
			Type:     col.Type.String(),
			Selected: !form.ColumnsSet || picked[col.Name],
		})
	}
	return view
}

func previewTable(title string, p core.Preview) templates.PreviewTable {
	types := make([]string, len(p.Types))
	for i, t := range p.Types {
		types[i] = t.String()
	}
	return templates.PreviewTable{
		Title:     title,
		Columns:   p.Columns,
		Types:     types,
		Rows:      p.Rows,
		Missing:   p.Missing,
		TotalRows: p.TotalRows,
	}
}

func fileSummary(sessionID string, f *core.SessionFile) templates.FileSummary {
	sum := templates.FileSummary{
		Index: f.Index,
		Name:  f.Name,
		Size:  f.Size,
		Href:  filePath(sessionID, f.Index),
		Error: errorView(f.Err),
	}
	if f.Dataset != nil {
		sum.Rows = f.Dataset.RowCount()
		sum.Columns = f.Dataset.ColumnCount()
	}
	return sum
}

func sessionPath(id string) string {
	return "/session/" + url.PathEscape(id)
}

func filePath(sessionID string, idx int) string {
	return sessionPath(sessionID) + "/files/" + strconv.Itoa(idx)
}
