package parser

import (
	"regexp"
	"strings"

	"github.com/txyyddss/actions-stock-monitor/internal/stock"
)

const amountPattern = `\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d{1,6}(?:[.,]\d{1,2})?`

var currencyTokens = []string{
	"HK$", "US$", "NT$", "$", "€", "£", "¥", "￥", "元",
	"USD", "EUR", "GBP", "HKD", "CNY", "RMB", "JPY", "TWD",
}

var currencyAliases = map[string]string{
	"$": "USD", "US$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "CNY", "￥": "CNY", "元": "CNY", "RMB": "CNY",
	"HK$": "HKD",
	"NT$": "TWD",
}

// Ordered so that "semi-annually" is tested before its "annually" suffix.
var billingCycleWords = []struct {
	word  string
	cycle string
}{
	{"semi-annually", "Semiannual"},
	{"semiannually", "Semiannual"},
	{"triennially", "Triennial"},
	{"biennially", "Biennial"},
	{"quarterly", "Quarterly"},
	{"monthly", "Monthly"},
	{"/mo", "Monthly"},
	{"per month", "Monthly"},
	{"annually", "Yearly"},
	{"yearly", "Yearly"},
	{"/yr", "Yearly"},
	{"per year", "Yearly"},
	{"one time", "One-Time"},
	{"one-time", "One-Time"},
}

var (
	priceRe  *regexp.Regexp
	priceRe2 *regexp.Regexp
)

func init() {
	escaped := make([]string, 0, len(currencyTokens))
	for _, t := range currencyTokens {
		escaped = append(escaped, regexp.QuoteMeta(t))
	}
	// Longest tokens first so "HK$" wins over "$".
	tokens := strings.Join(escaped, "|")
	priceRe = regexp.MustCompile(`(?i)(` + tokens + `)\s*(` + amountPattern + `)`)
	priceRe2 = regexp.MustCompile(`(?i)(` + amountPattern + `)\s*(` + tokens + `)`)
}

// ExtractPrice pulls the first recognizable price from text and normalizes
// the currency token to an ISO code and the amount's separators.
func ExtractPrice(text string) stock.Price {
	t := compactWS(text)

	var amount, currency string
	if m := priceRe.FindStringSubmatch(t); m != nil {
		currency, amount = m[1], m[2]
	} else if m := priceRe2.FindStringSubmatch(t); m != nil {
		amount, currency = m[1], m[2]
	} else {
		return stock.Price{}
	}

	code := strings.ToUpper(currency)
	if alias, ok := currencyAliases[currency]; ok {
		code = alias
	} else if alias, ok := currencyAliases[code]; ok {
		code = alias
	}

	return stock.Price{
		Amount:       normalizeAmount(amount),
		Currency:     code,
		BillingCycle: extractBillingCycle(t),
	}
}

func normalizeAmount(amount string) string {
	s := strings.NewReplacer(" ", "", "\u00a0", "").Replace(compactWS(amount))
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") > 1:
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		parts := strings.SplitN(s, ",", 2)
		if len(parts[1]) <= 2 {
			return parts[0] + "." + parts[1]
		}
		return parts[0] + parts[1]
	default:
		return s
	}
}

func extractBillingCycle(text string) string {
	t := strings.ToLower(text)
	for _, bc := range billingCycleWords {
		if strings.Contains(t, bc.word) {
			return bc.cycle
		}
	}
	return ""
}
