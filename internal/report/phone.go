package report

import (
	"regexp"
	"strings"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

var e164 = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidatePhone checks an E.164 number such as +5491112345678.
func ValidatePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	if !strings.HasPrefix(p, "+") {
		return "", domain.Validationf("phone number %q must be in E.164 format (start with +)", phone)
	}
	if !e164.MatchString(p) {
		return "", domain.Validationf("phone number %q is not a valid E.164 number", phone)
	}
	return p, nil
}
