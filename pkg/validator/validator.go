package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate  *validator.Validate
	sanitizer *bluemonday.Policy
)

func Init() {
	validate = validator.New()

	sanitizer = bluemonday.StrictPolicy()

	registerCustomValidations(validate)

	if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
		registerCustomValidations(engine)
	}
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("client_secret", validateClientSecret)
	v.RegisterValidation("hex_color", validateHexColor)
	v.RegisterValidation("country_code", validateCountryCode)
	v.RegisterValidation("card_number", validateCardNumber)
}

func Validate(s interface{}) error {
	return validate.Struct(s)
}

// SanitizeString strips all markup from host-supplied display strings such as
// merchant names and wallet labels before they reach logs or the UI.
func SanitizeString(s string) string {
	if sanitizer == nil {
		return bluemonday.StrictPolicy().Sanitize(s)
	}
	return sanitizer.Sanitize(s)
}

var clientSecretRegex = regexp.MustCompile(`^(pi|seti)_[A-Za-z0-9]+_secret_[A-Za-z0-9]+$`)

func validateClientSecret(fl validator.FieldLevel) bool {
	return clientSecretRegex.MatchString(fl.Field().String())
}

var hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

var countryCodeRegex = regexp.MustCompile(`^[A-Z]{2}$`)

func validateCountryCode(fl validator.FieldLevel) bool {
	return countryCodeRegex.MatchString(fl.Field().String())
}

// validateCardNumber accepts 12 to 19 digits that pass the Luhn check.
func validateCardNumber(fl validator.FieldLevel) bool {
	return ValidateCardNumber(fl.Field().String())
}

func ValidateCardNumber(number string) bool {
	digits := strings.ReplaceAll(strings.ReplaceAll(number, " ", ""), "-", "")
	if len(digits) < 12 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func ValidateEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func TrimSpaces(s string) string {
	return strings.TrimSpace(s)
}

func NormalizeSpaces(s string) string {
	space := regexp.MustCompile(`\s+`)
	return space.ReplaceAllString(s, " ")
}

func ValidateURL(url string) bool {
	urlRegex := regexp.MustCompile(`^https?://[a-zA-Z0-9\-\.]+\.[a-zA-Z]{2,}(/.*)?$`)
	return urlRegex.MatchString(url)
}
