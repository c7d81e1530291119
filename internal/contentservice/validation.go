package contentservice

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sushihentaime/showcase/internal/common"
)

var (
	DecimalRX = regexp.MustCompile(`^[0-9]{1,10}(\.[0-9]{1,2})?$`)
)

// validateInput checks supplied fields against r. On update a required field may be omitted but not cleared.
func validateInput(v *common.Validator, r Resource, in Input, creating bool) {
	for _, f := range r.Fields {
		value, ok := in.Fields[f.Name]

		if f.Required {
			if creating {
				v.Check(ok && strings.TrimSpace(value) != "", f.Name, "must be provided")
			} else if ok {
				v.Check(strings.TrimSpace(value) != "", f.Name, "must not be empty")
			}
		}

		if !ok || value == "" {
			continue
		}

		v.Check(utf8.RuneCountInString(value) <= f.MaxLen, f.Name, fmt.Sprintf("must not be more than %d characters long", f.MaxLen))

		if f.Kind == KindDecimal {
			v.Check(DecimalRX.MatchString(value), f.Name, "must be a non-negative number with at most two decimal places")
		}
	}

	for slot, upload := range in.Files {
		if !r.HasSlot(slot) {
			continue
		}
		v.Check(upload.Content != nil, slot, "must contain a file")
	}
}
