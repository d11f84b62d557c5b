package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/fileconv/internal/core"
	"github.com/go-playground/validator/v10"
)

// optionsForm is the decoded cleaning options of a request. Checkboxes
// arrive as "on"; an unchecked box is absent.
type optionsForm struct {
	RemoveDuplicates bool
	// ColumnsSet distinguishes "no columns selected" from "selector not
	// submitted", since unchecked boxes send nothing.
	ColumnsSet  bool
	Columns     []string `validate:"dive,required,max=1024"`
	FillMissing bool
	FillValue   string `validate:"max=256"`
	// FillValueSet is true when the fill field was submitted, even empty.
	FillValueSet bool
	ShowChart    bool
	Format       string `validate:"omitempty,oneof=csv excel xlsx"`
	Applied      bool
}

var optionsValidator = validator.New()

// parseOptionsForm decodes and validates the options in vals.
func parseOptionsForm(vals url.Values) (optionsForm, error) {
	f := optionsForm{
		RemoveDuplicates: truthy(vals.Get("remove_duplicates")),
		ColumnsSet:       vals.Has("columns_set") || vals.Has("columns"),
		Columns:          vals["columns"],
		FillMissing:      truthy(vals.Get("fill_missing")),
		FillValue:        vals.Get("fill_value"),
		FillValueSet:     vals.Has("fill_value"),
		ShowChart:        truthy(vals.Get("chart")),
		Format:           strings.ToLower(strings.TrimSpace(vals.Get("format"))),
		Applied:          vals.Has("apply"),
	}
	if err := optionsValidator.Struct(f); err != nil {
		return f, describeValidation(err)
	}
	return f, nil
}

// CleaningOptions converts the form to pipeline options.
func (f optionsForm) CleaningOptions() core.CleaningOptions {
	opts := core.CleaningOptions{
		RemoveDuplicates: f.RemoveDuplicates,
		FillMissing:      f.FillMissing,
		FillValue:        f.FillValue,
		FillValueSet:     f.FillValueSet,
		ShowChart:        f.ShowChart,
	}
	if f.ColumnsSet {
		opts.Columns = append([]string{}, f.Columns...)
	}
	return opts
}

// ExportFormat returns the chosen format, CSV when none was chosen.
func (f optionsForm) ExportFormat() core.ExportFormat {
	if f.Format == "" {
		return core.FormatCSV
	}
	format, err := core.ParseExportFormat(f.Format)
	if err != nil {
		return core.FormatCSV
	}
	return format
}

// Query encodes the form so chart and download links repeat the same run.
func (f optionsForm) Query() url.Values {
	q := url.Values{}
	if f.RemoveDuplicates {
		q.Set("remove_duplicates", "on")
	}
	if f.ColumnsSet {
		q.Set("columns_set", "1")
		for _, c := range f.Columns {
			q.Add("columns", c)
		}
	}
	if f.FillMissing {
		q.Set("fill_missing", "on")
		if f.FillValueSet {
			q.Set("fill_value", f.FillValue)
		}
	}
	if f.ShowChart {
		q.Set("chart", "on")
	}
	if f.Format != "" {
		q.Set("format", f.Format)
	}
	return q
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}

// describeValidation flattens validator errors into one core.ErrInvalidOption.
func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", core.ErrInvalidOption, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of: %s", strings.ToLower(fe.Field()), strings.ReplaceAll(fe.Param(), " ", ", ")))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s characters", strings.ToLower(fe.Field()), fe.Param()))
		case "required":
			parts = append(parts, fmt.Sprintf("%s must not be empty", strings.ToLower(fe.Field())))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", core.ErrInvalidOption, strings.Join(parts, "; "))
}

// requestValues returns the parsed query and form values.
func requestValues(r *http.Request) url.Values {
	if r.Form == nil {
		r.ParseForm()
	}
	return r.Form
}
