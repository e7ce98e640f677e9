package catalog

// countryTable maps remittance-relevant countries to their default payout
// currency. Alpha-2 and alpha-3 codes follow ISO-3166-1; currencies ISO-4217.
var countryTable = []Country{
	{"AE", "ARE", "AED"},
	{"AL", "ALB", "ALL"},
	{"AM", "ARM", "AMD"},
	{"AR", "ARG", "ARS"},
	{"AT", "AUT", "EUR"},
	{"AU", "AUS", "AUD"},
	{"AZ", "AZE", "AZN"},
	{"BA", "BIH", "BAM"},
	{"BD", "BGD", "BDT"},
	{"BE", "BEL", "EUR"},
	{"BG", "BGR", "BGN"},
	{"BH", "BHR", "BHD"},
	{"BO", "BOL", "BOB"},
	{"BR", "BRA", "BRL"},
	{"CA", "CAN", "CAD"},
	{"CH", "CHE", "CHF"},
	{"CL", "CHL", "CLP"},
	{"CM", "CMR", "XAF"},
	{"CN", "CHN", "CNY"},
	{"CO", "COL", "COP"},
	{"CR", "CRI", "CRC"},
	{"CY", "CYP", "EUR"},
	{"CZ", "CZE", "CZK"},
	{"DE", "DEU", "EUR"},
	{"DK", "DNK", "DKK"},
	{"DO", "DOM", "DOP"},
	{"DZ", "DZA", "DZD"},
	{"EC", "ECU", "USD"},
	{"EE", "EST", "EUR"},
	{"EG", "EGY", "EGP"},
	{"ES", "ESP", "EUR"},
	{"ET", "ETH", "ETB"},
	{"FI", "FIN", "EUR"},
	{"FJ", "FJI", "FJD"},
	{"FR", "FRA", "EUR"},
	{"GB", "GBR", "GBP"},
	{"GE", "GEO", "GEL"},
	{"GH", "GHA", "GHS"},
	{"GM", "GMB", "GMD"},
	{"GR", "GRC", "EUR"},
	{"GT", "GTM", "GTQ"},
	{"HK", "HKG", "HKD"},
	{"HN", "HND", "HNL"},
	{"HR", "HRV", "EUR"},
	{"HT", "HTI", "HTG"},
	{"HU", "HUN", "HUF"},
	{"ID", "IDN", "IDR"},
	{"IE", "IRL", "EUR"},
	{"IL", "ISR", "ILS"},
	{"IN", "IND", "INR"},
	{"IQ", "IRQ", "IQD"},
	{"IS", "ISL", "ISK"},
	{"IT", "ITA", "EUR"},
	{"JM", "JAM", "JMD"},
	{"JO", "JOR", "JOD"},
	{"JP", "JPN", "JPY"},
	{"KE", "KEN", "KES"},
	{"KG", "KGZ", "KGS"},
	{"KH", "KHM", "KHR"},
	{"KR", "KOR", "KRW"},
	{"KW", "KWT", "KWD"},
	{"KZ", "KAZ", "KZT"},
	{"LB", "LBN", "LBP"},
	{"LK", "LKA", "LKR"},
	{"LT", "LTU", "EUR"},
	{"LU", "LUX", "EUR"},
	{"LV", "LVA", "EUR"},
	{"MA", "MAR", "MAD"},
	{"MD", "MDA", "MDL"},
	{"ME", "MNE", "EUR"},
	{"MK", "MKD", "MKD"},
	{"MM", "MMR", "MMK"},
	{"MN", "MNG", "MNT"},
	{"MT", "MLT", "EUR"},
	{"MU", "MUS", "MUR"},
	{"MV", "MDV", "MVR"},
	{"MW", "MWI", "MWK"},
	{"MX", "MEX", "MXN"},
	{"MY", "MYS", "MYR"},
	{"MZ", "MOZ", "MZN"},
	{"NA", "NAM", "NAD"},
	{"NG", "NGA", "NGN"},
	{"NI", "NIC", "NIO"},
	{"NL", "NLD", "EUR"},
	{"NO", "NOR", "NOK"},
	{"NP", "NPL", "NPR"},
	{"NZ", "NZL", "NZD"},
	{"OM", "OMN", "OMR"},
	{"PA", "PAN", "PAB"},
	{"PE", "PER", "PEN"},
	{"PH", "PHL", "PHP"},
	{"PK", "PAK", "PKR"},
	{"PL", "POL", "PLN"},
	{"PT", "PRT", "EUR"},
	{"PY", "PRY", "PYG"},
	{"QA", "QAT", "QAR"},
	{"RO", "ROU", "RON"},
	{"RS", "SRB", "RSD"},
	{"RW", "RWA", "RWF"},
	{"SA", "SAU", "SAR"},
	{"SE", "SWE", "SEK"},
	{"SG", "SGP", "SGD"},
	{"SI", "SVN", "EUR"},
	{"SK", "SVK", "EUR"},
	{"SL", "SLE", "SLL"},
	{"SN", "SEN", "XOF"},
	{"SO", "SOM", "SOS"},
	{"SV", "SLV", "USD"},
	{"TH", "THA", "THB"},
	{"TJ", "TJK", "TJS"},
	{"TN", "TUN", "TND"},
	{"TR", "TUR", "TRY"},
	{"TW", "TWN", "TWD"},
	{"TZ", "TZA", "TZS"},
	{"UA", "UKR", "UAH"},
	{"UG", "UGA", "UGX"},
	{"US", "USA", "USD"},
	{"UY", "URY", "UYU"},
	{"UZ", "UZB", "UZS"},
	{"VN", "VNM", "VND"},
	{"XK", "XKX", "EUR"},
	{"ZA", "ZAF", "ZAR"},
	{"ZM", "ZMB", "ZMW"},
	{"ZW", "ZWE", "USD"},
}

// currencyTable lists every ISO-4217 code accepted on a request, including
// codes that are not any country's default payout currency.
var currencyTable = []string{
	"AED", "ALL", "AMD", "ARS", "AUD", "AZN", "BAM", "BDT", "BGN", "BHD",
	"BOB", "BRL", "CAD", "CHF", "CLP", "CNY", "COP", "CRC", "CZK", "DKK",
	"DOP", "DZD", "EGP", "ETB", "EUR", "FJD", "GBP", "GEL", "GHS", "GMD",
	"GTQ", "HKD", "HNL", "HTG", "HUF", "IDR", "ILS", "INR", "IQD", "ISK",
	"JMD", "JOD", "JPY", "KES", "KGS", "KHR", "KRW", "KWD", "KZT", "LBP",
	"LKR", "MAD", "MDL", "MKD", "MMK", "MNT", "MUR", "MVR", "MWK", "MXN",
	"MYR", "MZN", "NAD", "NGN", "NIO", "NOK", "NPR", "NZD", "OMR", "PAB",
	"PEN", "PHP", "PKR", "PLN", "PYG", "QAR", "RON", "RSD", "RWF", "SAR",
	"SEK", "SGD", "SLL", "SOS", "THB", "TJS", "TND", "TRY", "TWD", "TZS",
	"UAH", "UGX", "USD", "UYU", "UZS", "VND", "XAF", "XOF", "ZAR", "ZMW",
}
