package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"
)

// ErrorView is a mapped user error. Detail names the file and cause of a
// per-file failure.
type ErrorView struct {
	Message string
	Detail  string
	Action  string
	Code    string
}

// PreviewTable is the display form of the first rows of a table.
type PreviewTable struct {
	Title     string
	Columns   []string
	Types     []string
	Rows      [][]string
	Missing   [][]bool
	TotalRows int
}

// FileSummary describes one uploaded file in a session.
type FileSummary struct {
	Index   int
	Name    string
	Size    int
	Rows    int
	Columns int
	Href    string
	Error   *ErrorView
}

// SessionView is the session overview page.
type SessionView struct {
	ID    string
	Files []FileSummary
}

// ColumnOption is one checkbox of the column selector.
type ColumnOption struct {
	Name     string
	Type     string
	Selected bool
}

// OptionsForm is the state of the cleaning options form.
type OptionsForm struct {
	Action           string
	Columns          []ColumnOption
	RemoveDuplicates bool
	FillMissing      bool
	FillValue        string
	ShowChart        bool
	Format           string
}

// ResultView is the outcome of applying the options to a file.
type ResultView struct {
	Messages     []string
	Preview      PreviewTable
	ChartURL     string
	ChartNote    string
	DownloadURL  string
	DownloadName string
	FormatLabel  string
}

// FileView is the per-file page.
type FileView struct {
	SessionID   string
	SessionHref string
	File        FileSummary
	Original    PreviewTable
	Form        OptionsForm
	Result      *ResultView
	Error       *ErrorView
}

// HomeView carries the upload limits shown on the landing page.
type HomeView struct {
	MaxFiles      int
	MaxFileSizeMB int64
}

// Home renders the upload form.
func Home(v HomeView) templ.Component {
	return Layout("Upload", component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<section><h1>Convert CSV and Excel files</h1>`)
		h.raw(`<p class="muted">Upload one or more .csv or .xlsx files. Remove duplicates, pick columns, fill missing values, chart numeric columns and download the result as CSV or Excel.</p>`)
		h.raw(`<form method="post" action="/upload" enctype="multipart/form-data">`)
		h.raw(`<input type="file" name="files" accept=".csv,.xlsx" multiple required> `)
		h.raw(`<button class="btn" type="submit">Upload</button></form>`)
		h.rawf(`<p class="muted">Up to %d files, %d MB each.</p>`, v.MaxFiles, v.MaxFileSizeMB)
		h.raw(`</section>`)
	}))
}

// SessionPage lists the files of an upload session.
func SessionPage(v SessionView) templ.Component {
	return Layout("Session", component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<section><h1>Uploaded files</h1><table><thead><tr><th>File</th><th>Size</th><th>Rows</th><th>Columns</th><th></th></tr></thead><tbody>`)
		for _, f := range v.Files {
			h.raw(`<tr><td>`)
			h.text(f.Name)
			h.raw(`</td><td>`)
			h.text(formatBytes(f.Size))
			h.raw(`</td>`)
			if f.Error != nil {
				h.raw(`<td colspan="3">`)
				h.renderChild(ctx, ErrorAlert(*f.Error))
				h.raw(`</td>`)
			} else {
				h.rawf(`<td>%d</td><td>%d</td><td><a class="btn" href="%s">Open</a></td>`,
					f.Rows, f.Columns, templ.EscapeString(f.Href))
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></section>`)
	}))
}

// FilePage shows one file: its original preview, the options form and the
// result of the last run.
func FilePage(v FileView) templ.Component {
	return Layout(v.File.Name, component(func(ctx context.Context, h *htmlWriter) {
		h.rawf(`<p><a href="%s">&larr; All files</a></p>`, templ.EscapeString(v.SessionHref))
		h.raw(`<h1>`)
		h.text(v.File.Name)
		h.raw(`</h1>`)

		if v.Error != nil {
			h.renderChild(ctx, ErrorAlert(*v.Error))
		}

		h.raw(`<section>`)
		h.renderChild(ctx, Preview(v.Original))
		h.raw(`</section>`)

		h.raw(`<section>`)
		h.renderChild(ctx, Options(v.Form))
		h.raw(`</section>`)

		if v.Result != nil {
			h.raw(`<section>`)
			h.renderChild(ctx, Result(*v.Result))
			h.raw(`</section>`)
		}
	}))
}

// Preview renders the first rows of a table with type hints in the header.
func Preview(p PreviewTable) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<h2>`)
		h.text(p.Title)
		h.raw(`</h2>`)
		h.rawf(`<p class="muted">%d rows, %d columns</p>`, p.TotalRows, len(p.Columns))
		if len(p.Columns) == 0 {
			h.raw(`<p class="muted">No columns selected.</p>`)
			return
		}
		h.raw(`<table><thead><tr>`)
		for i, c := range p.Columns {
			h.raw(`<th>`)
			h.text(c)
			if i < len(p.Types) {
				h.raw(` <small>`)
				h.text(p.Types[i])
				h.raw(`</small>`)
			}
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for r, row := range p.Rows {
			h.raw(`<tr>`)
			for c, cell := range row {
				if r < len(p.Missing) && c < len(p.Missing[r]) && p.Missing[r][c] {
					h.raw(`<td class="missing">NaN</td>`)
					continue
				}
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table>`)
	})
}

// Options renders the cleaning options form. It submits with GET so the
// resulting page, chart and download share one query string.
func Options(f OptionsForm) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.rawf(`<form method="get" action="%s"><input type="hidden" name="apply" value="1">`, templ.EscapeString(f.Action))
		h.raw(`<h2>Cleaning options</h2>`)

		h.rawf(`<label><input type="checkbox" name="remove_duplicates" value="on"%s> Remove duplicates</label>`, checked(f.RemoveDuplicates))

		h.raw(`<fieldset><legend>Columns to keep</legend><input type="hidden" name="columns_set" value="1">`)
		for _, c := range f.Columns {
			h.rawf(`<label><input type="checkbox" name="columns" value="%s"%s> `, templ.EscapeString(c.Name), checked(c.Selected))
			h.text(c.Name)
			h.raw(` <small class="muted">`)
			h.text(c.Type)
			h.raw(`</small></label><br>`)
		}
		h.raw(`</fieldset>`)

		h.rawf(`<label><input type="checkbox" name="fill_missing" value="on"%s> Fill missing values with</label> `, checked(f.FillMissing))
		h.rawf(`<input type="text" name="fill_value" value="%s" maxlength="256"><br>`, templ.EscapeString(f.FillValue))

		h.rawf(`<label><input type="checkbox" name="chart" value="on"%s> Show chart</label><br>`, checked(f.ShowChart))

		h.raw(`<label>Export as <select name="format">`)
		h.rawf(`<option value="csv"%s>CSV</option>`, selected(f.Format != "excel"))
		h.rawf(`<option value="excel"%s>Excel</option>`, selected(f.Format == "excel"))
		h.raw(`</select></label> <button class="btn" type="submit">Apply</button></form>`)
	})
}

// Result renders the outcome of a run.
func Result(v ResultView) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.renderChild(ctx, Messages(v.Messages))
		h.renderChild(ctx, Preview(v.Preview))

		switch {
		case v.ChartURL != "":
			h.rawf(`<h2>Chart</h2><img alt="chart of numeric columns" src="%s">`, templ.EscapeString(v.ChartURL))
		case v.ChartNote != "":
			h.raw(`<p class="muted">`)
			h.text(v.ChartNote)
			h.raw(`</p>`)
		}

		h.rawf(`<p><a class="btn" href="%s" download="%s">Download `,
			templ.EscapeString(v.DownloadURL), templ.EscapeString(v.DownloadName))
		h.text(v.FormatLabel)
		h.raw(`</a></p>`)
	})
}

func formatBytes(n int) string {
	switch {
	case n >= 1<<20:
		return strconv.FormatFloat(float64(n)/(1<<20), 'f', 1, 64) + " MB"
	case n >= 1<<10:
		return strconv.FormatFloat(float64(n)/(1<<10), 'f', 1, 64) + " KB"
	default:
		return strconv.Itoa(n) + " B"
	}
}
