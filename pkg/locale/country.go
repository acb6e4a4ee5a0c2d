package locale

const (
	DefaultTimezone = "UTC"
	LocalTimezone   = "Local"
)

type Country struct {
	Code            string // ISO 3166-1 alpha-2
	Name            string
	DefaultTimezone string // IANA identifier
}

// Countries lets deployments configure a campus by country code instead of
// an IANA zone name.
var Countries = map[string]Country{
	"IL": {Code: "IL", Name: "Israel", DefaultTimezone: "Asia/Jerusalem"},
	"US": {Code: "US", Name: "United States", DefaultTimezone: "America/New_York"},
	"GB": {Code: "GB", Name: "United Kingdom", DefaultTimezone: "Europe/London"},
	"DE": {Code: "DE", Name: "Germany", DefaultTimezone: "Europe/Berlin"},
	"IN": {Code: "IN", Name: "India", DefaultTimezone: "Asia/Kolkata"},
	"VN": {Code: "VN", Name: "Vietnam", DefaultTimezone: "Asia/Ho_Chi_Minh"},
	"AU": {Code: "AU", Name: "Australia", DefaultTimezone: "Australia/Sydney"},
}
