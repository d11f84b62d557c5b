package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/fileconv/internal/core"
	"github.com/go-chi/render"
)

// previewFile is the JSON report for one file of /api/preview.
type previewFile struct {
	FileName string            `json:"file_name"`
	Error    *ErrorResponse    `json:"error,omitempty"`
	Report   *core.CleanReport `json:"report,omitempty"`
	Messages []string          `json:"messages,omitempty"`
	Preview  *core.Preview     `json:"preview,omitempty"`
	Chart    *chartInfo        `json:"chart,omitempty"`
	Export   *exportInfo       `json:"export,omitempty"`
}

type chartInfo struct {
	Applicable bool     `json:"applicable"`
	Series     []string `json:"series,omitempty"`
}

type exportInfo struct {
	FileName string `json:"file_name"`
	MIME     string `json:"mime"`
	Bytes    int    `json:"bytes"`
}

type previewResponse struct {
	Files []previewFile `json:"files"`
}

// handleAPIConvert runs the pipeline on exactly one uploaded file and
// returns the export as a download.
func (s *Server) handleAPIConvert(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if len(files) != 1 {
		s.respondError(w, r, fmt.Errorf("%w: expected exactly one file, got %d", core.ErrInvalidOption, len(files)), 0)
		return
	}
	form, err := parseOptionsForm(r.Form)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	res, err := s.service.Convert(r.Context(), files[0], form.CleaningOptions(), form.ExportFormat())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeExport(w, res.Export)
}

// handleAPIPreview runs the pipeline on every uploaded file and reports
// the outcome of each as JSON. A failing file is reported in place.
func (s *Server) handleAPIPreview(w http.ResponseWriter, r *http.Request) {
	files, err := s.readUploads(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	form, err := parseOptionsForm(r.Form)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	outcomes, err := s.service.ConvertBatch(r.Context(), files, form.CleaningOptions(), form.ExportFormat())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := previewResponse{Files: make([]previewFile, len(outcomes))}
	for i, o := range outcomes {
		resp.Files[i] = s.previewFile(o, form.ShowChart)
	}
	render.JSON(w, r, resp)
}

func (s *Server) previewFile(o core.Outcome, wantChart bool) previewFile {
	pf := previewFile{FileName: o.FileName}
	if o.Err != nil {
		resp := errorResponse(o.Err)
		resp.Error = o.Err.Error()
		pf.Error = &resp
		return pf
	}

	res := o.Result
	preview := res.Dataset.Head(s.service.PreviewRows())
	pf.Report = &res.Report
	pf.Messages = append(res.Report.Messages(), processingCompleted)
	pf.Preview = &preview
	pf.Export = &exportInfo{FileName: res.Export.FileName, MIME: res.Export.MIME, Bytes: len(res.Export.Data)}
	if wantChart {
		pf.Chart = &chartInfo{Applicable: res.Chart != nil}
		if res.Chart != nil {
			for _, series := range res.Chart.Series {
				pf.Chart.Series = append(pf.Chart.Series, series.Name)
			}
		}
	}
	return pf
}
