package analytics

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/ardash/internal/aging"
)

type limitsForm struct {
	Limits []int `validate:"required,min=1,max=12,ascending,dive,gte=0,lte=36500"`
}

var limitsValidator = newLimitsValidator()

func newLimitsValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ascending", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice {
			return false
		}
		for i := 1; i < field.Len(); i++ {
			if field.Index(i).Int() <= field.Index(i-1).Int() {
				return false
			}
		}
		return true
	})
	return v
}

// ResolveBuckets validates user supplied limits. When they are missing or
// invalid the 30/60/90 default is returned together with a warning message.
func ResolveBuckets(limits []int) (aging.BucketConfig, string) {
	if len(limits) == 0 {
		return aging.DefaultBucketConfig(), ""
	}
	if err := limitsValidator.Struct(limitsForm{Limits: limits}); err != nil {
		return aging.DefaultBucketConfig(), limitsWarning(err)
	}
	return aging.NewBucketConfig(limits...), ""
}

// ParseLimits reads form values such as "30", "60", "90". All blank means no
// limits were submitted; otherwise a blank or unparseable slot yields a
// negative sentinel so validation fails and the default is used.
func ParseLimits(values ...string) []int {
	out := make([]int, 0, len(values))
	submitted := false
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if raw != "" {
			submitted = true
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			n = -1
		}
		out = append(out, n)
	}
	if !submitted {
		return nil
	}
	return out
}

func limitsWarning(err error) string {
	const msg = "Bucket limits must be non-negative and strictly increasing; using 30/60/90."
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return msg
	}
	switch verrs[0].Tag() {
	case "ascending":
		return "Bucket limits must be strictly increasing; using 30/60/90."
	case "gte":
		return "Bucket limits cannot be negative; using 30/60/90."
	}
	return msg
}
