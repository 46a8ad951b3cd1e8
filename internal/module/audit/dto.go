package audit

import (
	"errors"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/jonathanbglass/cloudauditor/internal/report"
)

// ReportQuery is bound from the query string of GET /reports/:name.
type ReportQuery struct {
	Output   string `form:"output"`
	Sort     string `form:"sort" binding:"omitempty,max=128"`
	Page     string `form:"page"`
	PageSize string `form:"page_size"`
}

// ReportForm is bound from POST /reports/:name. The filter checkboxes are
// present only when ticked.
type ReportForm struct {
	OrderBy       string `form:"orderby" binding:"omitempty,max=128"`
	FilterSubmit  string `form:"filtersubmit"`
	FilterUsers   string `form:"filterusers"`
	FilterRoles   string `form:"filterroles"`
	FilterGroups  string `form:"filtergroups"`
	FilterAccount string `form:"filteraccount" binding:"omitempty,account_selection"`
}

// Submitted reports whether the type filter form was sent.
func (f *ReportForm) Submitted() bool {
	return f.FilterSubmit != ""
}

// Flags lists the ticked type checkboxes by field name.
func (f *ReportForm) Flags() []string {
	var flags []string
	if f.FilterUsers != "" {
		flags = append(flags, "filterusers")
	}
	if f.FilterRoles != "" {
		flags = append(flags, "filterroles")
	}
	if f.FilterGroups != "" {
		flags = append(flags, "filtergroups")
	}
	return flags
}

// discardInvalid clears the fields named in a validation error so that they
// fall back to their defaults. It returns false when err is not a field
// validation error.
func (f *ReportForm) discardInvalid(err error) bool {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return false
	}
	for _, fe := range ve {
		switch fe.StructField() {
		case "OrderBy":
			f.OrderBy = ""
		case "FilterAccount":
			f.FilterAccount = report.AccountAll
		}
	}
	return true
}

var registerOnce sync.Once

// RegisterValidators installs the module's custom validation tags on gin's
// validator engine. It is safe to call more than once.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = errors.New("gin validator engine is not go-playground/validator")
			return
		}
		err = v.RegisterValidation("account_selection", validateAccountSelection)
	})
	return err
}

// validateAccountSelection accepts "all" or a 1 to 12 digit account id.
func validateAccountSelection(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == report.AccountAll {
		return true
	}
	_, err := report.ParseAccountID(value)
	return err == nil
}
