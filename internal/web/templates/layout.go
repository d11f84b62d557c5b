package templates

import (
	"context"

	"github.com/a-h/templ"
)

const pageStyle = `
body{font-family:system-ui,sans-serif;margin:0;background:#f6f7f9;color:#1f2933}
header{background:#1f2933;color:#fff;padding:12px 24px}
header a{color:#fff;text-decoration:none;font-weight:600}
main{max-width:1100px;margin:24px auto;padding:0 24px}
section{background:#fff;border:1px solid #d9dde3;border-radius:6px;padding:16px;margin-bottom:16px}
table{border-collapse:collapse;font-size:13px;width:100%;overflow-x:auto;display:block}
th,td{border:1px solid #d9dde3;padding:4px 8px;text-align:left;white-space:nowrap}
th small{color:#7b8794;font-weight:400}
td.missing{background:#fff4e5;color:#b26a00}
.alert{border-radius:6px;padding:12px;margin-bottom:16px}
.alert-error{background:#fdecea;border:1px solid #f5c2c0}
.alert .detail{font-family:ui-monospace,monospace;font-size:13px;margin:4px 0}
.alert-ok{background:#e8f5e9;border:1px solid #b9dfbb}
.muted{color:#7b8794}
.btn{display:inline-block;background:#2563eb;color:#fff;border:0;border-radius:4px;padding:8px 14px;text-decoration:none;cursor:pointer}
fieldset{border:1px solid #d9dde3;border-radius:4px;margin-bottom:12px}
`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return component(func(ctx context.Context, h *htmlWriter) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` · File Converter</title><style>`)
		h.raw(pageStyle)
		h.raw(`</style></head><body><header><a href="/">File Converter</a></header><main>`)
		h.renderChild(ctx, body)
		h.raw(`</main></body></html>`)
	})
}

// ErrorAlert renders a user-facing error with its support code and, for
// file errors, the underlying cause.
func ErrorAlert(v ErrorView) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(v.Message)
		h.raw(`</strong>`)
		if v.Detail != "" {
			h.raw(`<div class="detail">`)
			h.text(v.Detail)
			h.raw(`</div>`)
		}
		if v.Action != "" {
			h.raw(`<div>`)
			h.text(v.Action)
			h.raw(`</div>`)
		}
		if v.Code != "" {
			h.raw(`<div class="muted">Code: `)
			h.text(v.Code)
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
	})
}

// ErrorPage renders an error as a full page.
func ErrorPage(v ErrorView) templ.Component {
	return Layout("Error", ErrorAlert(v))
}

// Messages renders success lines.
func Messages(lines []string) templ.Component {
	return component(func(_ context.Context, h *htmlWriter) {
		if len(lines) == 0 {
			return
		}
		h.raw(`<div class="alert alert-ok">`)
		for _, line := range lines {
			h.raw(`<div>`)
			h.text(line)
			h.raw(`</div>`)
		}
		h.raw(`</div>`)
	})
}
