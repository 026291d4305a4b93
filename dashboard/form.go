package dashboard

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/multierr"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Field is one input of the prediction form.
type Field struct {
	Name    string
	Label   string
	Min     float64
	Max     float64
	Default float64
}

// Fields are the prediction form inputs in display order.
var Fields = []Field{
	{Name: "LSTAT", Label: "Lower Status Population (%)", Min: 0, Max: 40, Default: 10},
	{Name: "RM", Label: "Average Rooms", Min: 3, Max: 9, Default: 6},
	{Name: "CRIM", Label: "Crime Rate", Min: 0, Max: 100, Default: 0.1},
	{Name: "PTRATIO", Label: "Pupil-Teacher Ratio", Min: 12, Max: 22, Default: 15},
	{Name: "INDUS", Label: "Industrial Area (%)", Min: 0, Max: 30, Default: 10},
	{Name: "TAX", Label: "Property Tax Rate", Min: 150, Max: 800, Default: 300},
	{Name: "NOX", Label: "Nitric Oxide Concentration", Min: 0.3, Max: 0.9, Default: 0.5},
	{Name: "B", Label: "Black Population Ratio", Min: 0, Max: 400, Default: 300},
}

// FieldByName looks up a form field.
func FieldByName(name string) (Field, bool) {
	for _, f := range Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns the form field names in display order.
func FieldNames() []string {
	names := make([]string, len(Fields))
	for i, f := range Fields {
		names[i] = f.Name
	}
	return names
}

// DefaultInput returns the form defaults keyed by feature name.
func DefaultInput() map[string]float64 {
	out := make(map[string]float64, len(Fields))
	for _, f := range Fields {
		out[f.Name] = f.Default
	}
	return out
}

// ValidateInput checks every form value against its bounds and reports all
// problems together. Unknown names and missing fields are errors as well.
func ValidateInput(input map[string]float64) error {
	var errs error
	for _, f := range Fields {
		v, ok := input[f.Name]
		switch {
		case !ok:
			errs = multierr.Append(errs, errors.NewValidationError(f.Name, "value is required", nil))
		case math.IsNaN(v) || v < f.Min || v > f.Max:
			errs = multierr.Append(errs, errors.NewValidationError(f.Name,
				fmt.Sprintf("must be between %s and %s", formatNumber(f.Min), formatNumber(f.Max)), v))
		}
	}

	var unknown []string
	for name := range input {
		if _, ok := FieldByName(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		errs = multierr.Append(errs, errors.NewValidationError(name, "not a form field", input[name]))
	}
	return errs
}

// UserMessage turns an error into the text shown to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var svcErr *errors.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Transport() {
			return "Error connecting to the prediction service. Please make sure the API is running."
		}
		if svcErr.Err == nil {
			return "Error making prediction: " + svcErr.Body
		}
	}

	if errs := multierr.Errors(err); len(errs) > 1 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = UserMessage(e)
		}
		return strings.Join(msgs, "\n")
	}

	var valErr *errors.ValidationError
	if errors.As(err, &valErr) {
		return fmt.Sprintf("Invalid input: %s %s (got %v)", valErr.ParamName, valErr.Reason, valErr.Value)
	}

	var ioErr *errors.ArtifactIOError
	if errors.As(err, &ioErr) && errors.Is(err, errors.ErrArtifactNotFound) {
		return fmt.Sprintf("Error loading data: %s not found. Please train the model first.", ioErr.Key)
	}

	var dataErr *errors.DataError
	if errors.As(err, &dataErr) || errors.As(err, &ioErr) {
		return "Error loading data: " + err.Error()
	}

	return "An error occurred: " + err.Error()
}

// formatPrice renders v as dollars with thousands separators.
func formatPrice(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func formatNumber(v float64) string {
	return humanize.Ftoa(v)
}
